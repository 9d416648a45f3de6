package dashboard

import (
	"slices"
	"strings"

	"github.com/jrsteele09/go-shop-client/users"
)

const dashboardModuleTitle = "Dashboard"

// Module is a sidebar entry. ComingSoon entries are listed but not yet
// navigable.
type Module struct {
	Title      string       `json:"title"`
	Route      string       `json:"route"`
	Icon       string       `json:"icon"`
	Roles      []users.Role `json:"roles"`
	ComingSoon bool         `json:"isComingSoon,omitempty"`
}

var modules = []Module{
	{Title: dashboardModuleTitle, Route: "/dashboard/cashier", Icon: "🏠", Roles: []users.Role{users.RoleCashier}},
	{Title: dashboardModuleTitle, Route: "/dashboard/supervisor", Icon: "🏠", Roles: []users.Role{users.RoleSupervisor}},
	{Title: dashboardModuleTitle, Route: "/dashboard/branch-tailor", Icon: "🏠", Roles: []users.Role{users.RoleBranchTailor}},
	{Title: "Customers", Route: RouteCustomers, Icon: "👥", Roles: []users.Role{users.RoleCashier, users.RoleSupervisor, users.RoleBranchTailor}},
	{Title: "Measurements", Route: "/dashboard/measurements", Icon: "📏", Roles: []users.Role{users.RoleCashier, users.RoleSupervisor, users.RoleBranchTailor}, ComingSoon: true},
	{Title: "Orders", Route: "/dashboard/orders", Icon: "📋", Roles: []users.Role{users.RoleCashier, users.RoleSupervisor}, ComingSoon: true},
	{Title: "Reports", Route: "/dashboard/reports", Icon: "📊", Roles: []users.Role{users.RoleSupervisor}, ComingSoon: true},
}

// ModulesFor returns the sidebar modules available to role, in display order.
func ModulesFor(role users.Role) []Module {
	var out []Module
	for _, m := range modules {
		if slices.Contains(m.Roles, role) {
			m.Roles = slices.Clone(m.Roles)
			out = append(out, m)
		}
	}
	return out
}

// IsActive reports whether current is within the module's route.
func (m Module) IsActive(current string) bool {
	return strings.HasPrefix(current, m.Route)
}

// DashboardRoute returns the route of role's Dashboard module. Roles without
// one are sent to the role selector.
func DashboardRoute(role users.Role) string {
	for _, m := range modules {
		if m.Title == dashboardModuleTitle && slices.Contains(m.Roles, role) {
			return m.Route
		}
	}
	return RouteRoleSelector
}
