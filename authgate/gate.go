package authgate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-shop-client/apiclient"
	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
	"github.com/jrsteele09/go-shop-client/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Paths the gate never touches; decorating them would recurse into refresh.
const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"
)

// Tokens is the read side of the token store.
type Tokens interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
}

// Refresher is implemented by the session manager.
type Refresher interface {
	// Renew returns a pair whose access token differs from rejected, refreshing
	// at most once for all concurrent callers.
	Renew(ctx context.Context, rejected string) (token.Pair, error)
	// Expire clears the session and sends the user to login.
	Expire(ctx context.Context)
}

// Gate attaches bearer tokens to outgoing requests and performs one
// refresh-and-retry when the server answers 401.
type Gate struct {
	tokens    Tokens
	refresher Refresher
	skip      []string
	logger    zerolog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithSkipPaths adds path suffixes that bypass the gate.
func WithSkipPaths(paths ...string) Option {
	return func(g *Gate) {
		g.skip = append(g.skip, paths...)
	}
}

// New creates a Gate.
func New(tokens Tokens, refresher Refresher, opts ...Option) *Gate {
	g := &Gate{
		tokens:    tokens,
		refresher: refresher,
		skip:      []string{LoginPath, RefreshPath},
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Middleware returns the gate as an apiclient.Middleware. It should be the
// last middleware in the chain.
func (g *Gate) Middleware() apiclient.Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return apiclient.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return g.roundTrip(next, req)
		})
	}
}

func (g *Gate) roundTrip(next http.RoundTripper, req *http.Request) (*http.Response, error) {
	if g.skipped(req) {
		return next.RoundTrip(req)
	}

	ctx := req.Context()
	access, err := g.tokens.AccessToken(ctx)
	if err != nil {
		if !shoperrors.Is(err, shoperrors.ErrNoToken) {
			g.logger.Warn().Err(err).Msg("reading access token, sending request without it")
		}
		return next.RoundTrip(req)
	}

	req, err = replayable(req)
	if err != nil {
		return nil, err
	}

	first, err := withBearer(req, access, false)
	if err != nil {
		return nil, err
	}
	resp, err := next.RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if _, err := g.tokens.RefreshToken(ctx); err != nil {
		g.logger.Info().Str("path", req.URL.Path).Msg("401 without a refresh token, ending session")
		g.refresher.Expire(ctx)
		return resp, nil
	}
	drain(resp)

	pair, err := g.refresher.Renew(ctx, access)
	if err != nil {
		return nil, err
	}

	retry, err := withBearer(req, pair.AccessToken, true)
	if err != nil {
		return nil, err
	}
	return next.RoundTrip(retry)
}

func (g *Gate) skipped(req *http.Request) bool {
	path := strings.TrimRight(req.URL.Path, "/")
	for _, p := range g.skip {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// replayable makes sure the request body can be sent twice.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	r := req.Clone(req.Context())
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	r.Body, _ = r.GetBody()
	return r, nil
}

func withBearer(req *http.Request, access string, rewind bool) (*http.Request, error) {
	r := req.Clone(req.Context())
	if rewind && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		r.Body = body
	}
	r.Header.Set("Authorization", "Bearer "+access)
	return r, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
