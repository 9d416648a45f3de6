package users

import (
	"slices"
	"time"
)

// Role represents a shop persona a user account may hold. The string form is
// what the backend sends in profiles and token claims.
type Role string

const (
	RoleCashier         Role = "Cashier"
	RoleDriver          Role = "Driver"
	RoleStitchingMaster Role = "Stitching Master"
	RoleSupervisor      Role = "Supervisor"
	RoleCuttingMaster   Role = "Cutting Master"
	RoleIronerMaster    Role = "Ironer Master"
	RolePackagingStaff  Role = "Packaging Staff"
	RoleBranchTailor    Role = "Branch Tailor"
)

// AllRoles lists every role the backend may assign.
var AllRoles = []Role{
	RoleSupervisor,
	RoleCashier,
	RoleBranchTailor,
	RoleCuttingMaster,
	RoleStitchingMaster,
	RoleIronerMaster,
	RolePackagingStaff,
	RoleDriver,
}

// IsKnown reports whether r is one of the roles in AllRoles.
func (r Role) IsKnown() bool {
	return slices.Contains(AllRoles, r)
}

// User is the employee profile returned by /auth/profile.
type User struct {
	ID             string     `json:"_id"`                      // Backend document ID
	UserID         string     `json:"user_id"`                  // ERP user identifier
	DisplayName    string     `json:"employee_name"`            // Employee name shown in headers
	Roles          []Role     `json:"roles"`                    // Roles held, non-empty when authenticated
	Designation    string     `json:"designation,omitempty"`    // Job title
	Department     string     `json:"department,omitempty"`     // Department name
	Company        string     `json:"company,omitempty"`        // Company name
	Branch         string     `json:"branch,omitempty"`         // Branch name
	BranchCode     string     `json:"branch_code,omitempty"`    // Branch code
	LastLoggedInAt *time.Time `json:"lastLoggedInAt,omitempty"` // Last login as recorded by the backend
	LastSyncedAt   *time.Time `json:"lastSyncedAt,omitempty"`   // Last ERP sync
}

// HasRole reports whether the user holds role. A nil user holds no roles.
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}

// HasAnyRole reports whether the user holds at least one of roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can never mutate a stored profile.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	if u.LastLoggedInAt != nil {
		t := *u.LastLoggedInAt
		c.LastLoggedInAt = &t
	}
	if u.LastSyncedAt != nil {
		t := *u.LastSyncedAt
		c.LastSyncedAt = &t
	}
	return &c
}
