package sessions

import (
	"context"

	"github.com/jrsteele09/go-shop-client/token"
	"golang.org/x/oauth2"
)

// TokenSource exposes the session's tokens to any oauth2-aware HTTP client.
// An expired stored access token is renewed through Refresh, so a failed
// renewal ends the session exactly as it would for the gate.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &sessionTokenSource{ctx: ctx, m: m})
}

type sessionTokenSource struct {
	ctx context.Context
	m   *Manager
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	pair, err := s.m.store.Pair(s.ctx)
	if err != nil || !s.m.codec.IsValid(pair.AccessToken) {
		resp, err := s.m.Refresh(s.ctx)
		if err != nil {
			return nil, err
		}
		pair = resp.Data
	}
	return s.m.oauthToken(pair), nil
}

func (m *Manager) oauthToken(pair token.Pair) *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  pair.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: pair.RefreshToken,
	}
	if exp, err := m.codec.Expiry(pair.AccessToken); err == nil {
		t.Expiry = exp
	}
	return t
}
