package errors

import (
	"errors"
	"fmt"
)

// Common error types for the shop client
var (
	// Token errors
	ErrNoToken          = errors.New("no token stored")
	ErrNoRefreshToken   = errors.New("no refresh token available")
	ErrPartialTokenPair = errors.New("token pair must carry both tokens")
	ErrMalformedToken   = errors.New("malformed token")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionReset     = errors.New("session was reset while the request was in flight")
	ErrEmptyProfile     = errors.New("profile response carried no user")

	// Role errors
	ErrNoRoles     = errors.New("user has no roles")
	ErrRoleNotHeld = errors.New("role not held by user")

	// Storage errors
	ErrInvalidKey = errors.New("invalid encryption key")

	// Request errors
	ErrInvalidRequest = errors.New("invalid request")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
