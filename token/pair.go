package token

import (
	"strings"

	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
)

// Pair is the access/refresh token pair issued by /auth/login and
// /auth/refresh. Both tokens are opaque bearer strings to the client; only the
// access token's exp claim is ever inspected locally.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Validate rejects pairs missing either token so a partial pair is never
// written.
func (p Pair) Validate() error {
	if strings.TrimSpace(p.AccessToken) == "" || strings.TrimSpace(p.RefreshToken) == "" {
		return shoperrors.ErrPartialTokenPair
	}
	return nil
}
