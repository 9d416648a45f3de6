package dashboard

import (
	"context"
	"fmt"
	"slices"

	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
	"github.com/jrsteele09/go-shop-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Decision is the outcome of DecideLanding. Select is non-empty when the
// chosen role should be persisted as the session's selected role.
type Decision struct {
	Route  string
	Select users.Role
}

// DecideLanding picks where a user lands after login, refresh or restart.
// A user with no roles is an inconsistent profile and goes back to login.
func DecideLanding(user *users.User, stored users.Role) Decision {
	if user == nil || len(user.Roles) == 0 {
		return Decision{Route: RouteLogin}
	}
	if stored != "" && slices.Contains(user.Roles, stored) {
		return Decision{Route: Route(stored)}
	}
	if len(user.Roles) == 1 {
		return Decision{Route: Route(user.Roles[0]), Select: user.Roles[0]}
	}
	return Decision{Route: RouteRoleSelector}
}

// RoleStore persists the selected role for the lifetime of a session.
type RoleStore interface {
	SelectedRole(ctx context.Context) (users.Role, error)
	SetSelectedRole(ctx context.Context, role users.Role) error
	ClearSelectedRole(ctx context.Context) error
}

// Policy applies DecideLanding against the stored role.
type Policy struct {
	roles  RoleStore
	logger zerolog.Logger
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

func WithLogger(logger zerolog.Logger) PolicyOption {
	return func(p *Policy) {
		p.logger = logger
	}
}

func NewPolicy(roles RoleStore, opts ...PolicyOption) *Policy {
	p := &Policy{
		roles:  roles,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Land returns user's landing route. A stored role the user no longer holds
// is deleted; a sole role is persisted. A user with no roles is sent to login
// with ErrNoRoles.
func (p *Policy) Land(ctx context.Context, user *users.User) (string, error) {
	if user == nil {
		return RouteLogin, shoperrors.ErrNotAuthenticated
	}
	stored, err := p.roles.SelectedRole(ctx)
	if err != nil {
		return "", fmt.Errorf("read selected role: %w", err)
	}

	d := DecideLanding(user, stored)
	if stored != "" && !user.HasRole(stored) {
		p.logger.Debug().Str("role", string(stored)).Msg("discarding stale selected role")
		if err := p.roles.ClearSelectedRole(ctx); err != nil {
			return "", fmt.Errorf("clear selected role: %w", err)
		}
	}
	if len(user.Roles) == 0 {
		return d.Route, shoperrors.Wrapf(shoperrors.ErrNoRoles, "land %s", user.UserID)
	}
	if d.Select != "" {
		if err := p.roles.SetSelectedRole(ctx, d.Select); err != nil {
			return "", fmt.Errorf("save selected role: %w", err)
		}
	}
	return d.Route, nil
}

// Select records an explicit pick from the role selector and returns that
// role's route.
func (p *Policy) Select(ctx context.Context, user *users.User, role users.Role) (string, error) {
	if user == nil {
		return RouteLogin, shoperrors.ErrNotAuthenticated
	}
	if len(user.Roles) == 0 {
		return RouteLogin, shoperrors.Wrapf(shoperrors.ErrNoRoles, "select %q", role)
	}
	if !user.HasRole(role) {
		return RouteRoleSelector, shoperrors.Wrapf(shoperrors.ErrRoleNotHeld, "select %q", role)
	}
	if err := p.roles.SetSelectedRole(ctx, role); err != nil {
		return "", fmt.Errorf("save selected role: %w", err)
	}
	return Route(role), nil
}

// CanAccess guards a role dashboard. When access is refused, redirect is the
// route to send the user to instead.
func (p *Policy) CanAccess(ctx context.Context, user *users.User, required users.Role) (ok bool, redirect string, err error) {
	if user == nil {
		return false, RouteLogin, nil
	}
	selected, err := p.roles.SelectedRole(ctx)
	if err != nil {
		return false, "", fmt.Errorf("read selected role: %w", err)
	}
	if selected != required || !user.HasRole(required) {
		return false, RouteRoleSelector, nil
	}
	return true, "", nil
}
