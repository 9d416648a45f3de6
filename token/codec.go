package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
	"github.com/jrsteele09/go-shop-client/users"
)

// Claims is the access token payload issued by the shop backend.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string       `json:"user_id,omitempty"`
	Roles    []users.Role `json:"roles,omitempty"`
	ERPToken string       `json:"erpToken,omitempty"`
}

// Codec decodes access tokens without verifying their signature. The server
// verifies signatures; the client only needs exp to decide whether a stored
// token is worth presenting.
type Codec struct {
	parser  *jwt.Parser
	nowFunc func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithNowFunc overrides the clock (primarily for testing).
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

// NewCodec creates a Codec using the wall clock.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		parser:  jwt.NewParser(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode parses the claims of raw. Any parse failure is reported as
// ErrMalformedToken.
func (c *Codec) Decode(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, shoperrors.ErrMalformedToken
	}
	claims := &Claims{}
	if _, _, err := c.parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", shoperrors.ErrMalformedToken, err)
	}
	return claims, nil
}

// Expiry returns the exp claim of raw.
func (c *Codec) Expiry(raw string) (time.Time, error) {
	claims, err := c.Decode(raw)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: missing exp claim", shoperrors.ErrMalformedToken)
	}
	return claims.ExpiresAt.Time, nil
}

// IsValid reports whether raw decodes and its exp lies strictly in the
// future. It never returns an error; malformed tokens are simply invalid.
func (c *Codec) IsValid(raw string) bool {
	exp, err := c.Expiry(raw)
	if err != nil {
		return false
	}
	return exp.After(c.nowFunc())
}
