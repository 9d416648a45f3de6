package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
	"github.com/jrsteele09/go-shop-client/token"
	"github.com/jrsteele09/go-shop-client/users"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-checked"))
	require.NoError(t, err)
	return raw
}

func newCodec() *token.Codec {
	return token.NewCodec(token.WithNowFunc(func() time.Time { return fixedNow }))
}

func TestCodec_DecodeShopClaims(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{
		"sub":      "64f0c2",
		"user_id":  "tailor01",
		"roles":    []string{"Branch Tailor", "Cashier"},
		"erpToken": "erp-abc",
		"iat":      fixedNow.Unix(),
		"exp":      fixedNow.Add(15 * time.Minute).Unix(),
	})

	claims, err := newCodec().Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "64f0c2", claims.Subject)
	require.Equal(t, "tailor01", claims.UserID)
	require.Equal(t, []users.Role{users.RoleBranchTailor, users.RoleCashier}, claims.Roles)
	require.Equal(t, "erp-abc", claims.ERPToken)
	require.Equal(t, fixedNow.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestCodec_IsValid(t *testing.T) {
	codec := newCodec()

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"future exp", signedToken(t, jwt.MapClaims{"exp": fixedNow.Add(time.Minute).Unix()}), true},
		{"past exp", signedToken(t, jwt.MapClaims{"exp": fixedNow.Add(-time.Minute).Unix()}), false},
		{"exp equal to now", signedToken(t, jwt.MapClaims{"exp": fixedNow.Unix()}), false},
		{"missing exp", signedToken(t, jwt.MapClaims{"sub": "x"}), false},
		{"exp not a number", signedToken(t, jwt.MapClaims{"exp": "tomorrow"}), false},
		{"empty", "", false},
		{"garbage", "not-a-jwt", false},
		{"bad base64 payload", "eyJhbGciOiJIUzI1NiJ9.!!!.sig", false},
		{"two segments", "a.b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				require.Equal(t, tt.want, codec.IsValid(tt.raw))
			})
		})
	}
}

func TestCodec_SignatureIsNotVerified(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"exp": fixedNow.Add(time.Hour).Unix()})
	tampered := raw[:len(raw)-4] + "AAAA"
	require.True(t, newCodec().IsValid(tampered))
}

func TestCodec_ExpiryErrors(t *testing.T) {
	codec := newCodec()

	_, err := codec.Expiry("garbage")
	require.ErrorIs(t, err, shoperrors.ErrMalformedToken)

	_, err = codec.Expiry(signedToken(t, jwt.MapClaims{"sub": "x"}))
	require.ErrorIs(t, err, shoperrors.ErrMalformedToken)

	exp, err := codec.Expiry(signedToken(t, jwt.MapClaims{"exp": fixedNow.Add(time.Hour).Unix()}))
	require.NoError(t, err)
	require.True(t, exp.Equal(fixedNow.Add(time.Hour)))
}
