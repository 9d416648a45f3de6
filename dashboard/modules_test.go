package dashboard_test

import (
	"testing"

	"github.com/jrsteele09/go-shop-client/dashboard"
	"github.com/jrsteele09/go-shop-client/users"
	"github.com/stretchr/testify/require"
)

func moduleTitles(ms []dashboard.Module) []string {
	titles := make([]string, len(ms))
	for i, m := range ms {
		titles[i] = m.Title
	}
	return titles
}

func TestModulesFor(t *testing.T) {
	tests := []struct {
		role users.Role
		want []string
	}{
		{users.RoleSupervisor, []string{"Dashboard", "Customers", "Measurements", "Orders", "Reports"}},
		{users.RoleCashier, []string{"Dashboard", "Customers", "Measurements", "Orders"}},
		{users.RoleBranchTailor, []string{"Dashboard", "Customers", "Measurements"}},
		{users.RoleDriver, []string{}},
		{users.Role("Receptionist"), []string{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			require.Equal(t, tt.want, moduleTitles(dashboard.ModulesFor(tt.role)))
		})
	}
}

func TestModulesFor_ComingSoon(t *testing.T) {
	ready := map[string]bool{}
	for _, m := range dashboard.ModulesFor(users.RoleSupervisor) {
		ready[m.Title] = !m.ComingSoon
	}
	require.Equal(t, map[string]bool{
		"Dashboard":    true,
		"Customers":    true,
		"Measurements": false,
		"Orders":       false,
		"Reports":      false,
	}, ready)
}

func TestModulesFor_ReturnsCopies(t *testing.T) {
	ms := dashboard.ModulesFor(users.RoleCashier)
	ms[1].Roles[0] = users.RoleDriver
	ms[1].Route = "/mutated"

	again := dashboard.ModulesFor(users.RoleCashier)
	require.Equal(t, dashboard.RouteCustomers, again[1].Route)
	require.Contains(t, again[1].Roles, users.RoleCashier)
	require.Empty(t, dashboard.ModulesFor(users.RoleDriver))
}

func TestModule_IsActive(t *testing.T) {
	customers := dashboard.ModulesFor(users.RoleSupervisor)[1]
	require.True(t, customers.IsActive("/dashboard/customers/CUST-0001"))
	require.False(t, customers.IsActive("/dashboard/orders"))
}

func TestDashboardRoute(t *testing.T) {
	require.Equal(t, "/dashboard/cashier", dashboard.DashboardRoute(users.RoleCashier))
	require.Equal(t, "/dashboard/supervisor", dashboard.DashboardRoute(users.RoleSupervisor))
	require.Equal(t, "/dashboard/branch-tailor", dashboard.DashboardRoute(users.RoleBranchTailor))
	require.Equal(t, dashboard.RouteRoleSelector, dashboard.DashboardRoute(users.RoleDriver))
	require.Equal(t, dashboard.RouteRoleSelector, dashboard.DashboardRoute(""))
}
