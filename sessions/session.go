package sessions

import (
	"github.com/jrsteele09/go-shop-client/apiclient"
	"github.com/jrsteele09/go-shop-client/token"
	"github.com/jrsteele09/go-shop-client/users"
)

// State is the lifecycle position of a session.
type State int

const (
	StateUnauthenticated   State = iota // No user; tokens cleared
	StateAuthenticating                 // Login in flight
	StateAuthenticated                  // User loaded and tokens stored
	StateRefreshingProfile              // Stored token found at startup, profile loading
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "Authenticating"
	case StateAuthenticated:
		return "Authenticated"
	case StateRefreshingProfile:
		return "RefreshingProfile"
	default:
		return "Unauthenticated"
	}
}

// Snapshot is what subscribers receive on every transition. User and
// Authenticated always change together.
type Snapshot struct {
	User          *users.User
	Authenticated bool
	State         State
}

// AuthResponse is the envelope returned by /auth/login and /auth/refresh.
type AuthResponse = apiclient.Response[token.Pair]

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
