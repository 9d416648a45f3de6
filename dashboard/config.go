package dashboard

import (
	"strings"

	"github.com/jrsteele09/go-shop-client/users"
)

// Routes outside the per-role dashboards.
const (
	RouteLogin        = "/auth/login"
	RouteRoleSelector = "/dashboard/role-selector"
	RouteCustomers    = "/dashboard/customers"
	RouteDefault      = "/dashboard"

	defaultTitle = "Dashboard"
	defaultIcon  = "📋"
)

// Device is the form factor a dashboard is designed for.
type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceMobile  Device = "mobile"
	DeviceBoth    Device = "both"
)

// Config describes the dashboard a role lands on.
type Config struct {
	Role            users.Role `json:"role"`
	Title           string     `json:"title"`
	Route           string     `json:"route"`
	Icon            string     `json:"icon"`
	MobileOptimized bool       `json:"isMobileOptimized"`
	Device          Device     `json:"deviceType"`
}

var configs = []Config{
	{Role: users.RoleSupervisor, Title: "Supervisor Dashboard", Route: "/dashboard/supervisor", Icon: "👨‍💼", Device: DeviceDesktop},
	{Role: users.RoleCashier, Title: "Cashier Dashboard", Route: "/dashboard/cashier", Icon: "💳", Device: DeviceDesktop},
	{Role: users.RoleBranchTailor, Title: "Branch Tailor Dashboard", Route: "/dashboard/branch-tailor", Icon: "📏", Device: DeviceBoth},
	{Role: users.RoleCuttingMaster, Title: "Cutting Master Dashboard", Route: "/dashboard/cutting", Icon: "✂️", MobileOptimized: true, Device: DeviceMobile},
	{Role: users.RoleStitchingMaster, Title: "Stitching Master Dashboard", Route: "/dashboard/stitching", Icon: "🧵", MobileOptimized: true, Device: DeviceMobile},
	{Role: users.RoleIronerMaster, Title: "Ironer Master Dashboard", Route: "/dashboard/ironing", Icon: "👔", MobileOptimized: true, Device: DeviceMobile},
	{Role: users.RolePackagingStaff, Title: "Packaging Staff Dashboard", Route: "/dashboard/packaging", Icon: "📦", MobileOptimized: true, Device: DeviceMobile},
	{Role: users.RoleDriver, Title: "Driver Dashboard", Route: "/dashboard/driver", Icon: "🚚", MobileOptimized: true, Device: DeviceMobile},
}

// Lookup returns the dashboard config for role.
func Lookup(role users.Role) (Config, bool) {
	for _, c := range configs {
		if c.Role == role {
			return c, true
		}
	}
	return Config{}, false
}

// All returns every dashboard config in display order.
func All() []Config {
	out := make([]Config, len(configs))
	copy(out, configs)
	return out
}

// Route returns role's dashboard route, or the generic dashboard route.
func Route(role users.Role) string {
	if c, ok := Lookup(role); ok {
		return c.Route
	}
	return RouteDefault
}

func Title(role users.Role) string {
	if c, ok := Lookup(role); ok {
		return c.Title
	}
	return defaultTitle
}

func Icon(role users.Role) string {
	if c, ok := Lookup(role); ok {
		return c.Icon
	}
	return defaultIcon
}

func IsMobileOptimized(role users.Role) bool {
	c, _ := Lookup(role)
	return c.MobileOptimized
}

// RoleOption is one entry on the role selector screen.
type RoleOption struct {
	Role        users.Role
	Title       string
	Description string
	Route       string
	Icon        string
	Device      Device
}

// RoleOptions lists the selector entries for the roles user holds. Roles
// without a dashboard are skipped.
func RoleOptions(user *users.User) []RoleOption {
	if user == nil {
		return nil
	}
	var out []RoleOption
	for _, role := range user.Roles {
		c, ok := Lookup(role)
		if !ok {
			continue
		}
		out = append(out, RoleOption{
			Role:        c.Role,
			Title:       c.Title,
			Description: strings.Replace(c.Title, " Dashboard", "", 1) + " operations",
			Route:       c.Route,
			Icon:        c.Icon,
			Device:      c.Device,
		})
	}
	return out
}
