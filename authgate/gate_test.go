package authgate_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jrsteele09/go-shop-client/apiclient"
	"github.com/jrsteele09/go-shop-client/authgate"
	"github.com/jrsteele09/go-shop-client/storage/memory"
	"github.com/jrsteele09/go-shop-client/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	lock        sync.Mutex
	store       *token.Store
	next        token.Pair
	err         error
	rejected    []string
	expireCalls int
}

func (f *fakeRefresher) Renew(ctx context.Context, rejected string) (token.Pair, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.rejected = append(f.rejected, rejected)
	if f.err != nil {
		_ = f.store.Clear(ctx)
		return token.Pair{}, f.err
	}
	if err := f.store.Save(ctx, f.next); err != nil {
		return token.Pair{}, err
	}
	return f.next, nil
}

func (f *fakeRefresher) Expire(ctx context.Context) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.expireCalls++
	_ = f.store.Clear(ctx)
}

// backend accepts only the bearer token in valid and records what it saw.
type backend struct {
	lock   sync.Mutex
	valid  string
	seen   []string
	bodies []string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.lock.Lock()
	auth := r.Header.Get("Authorization")
	b.seen = append(b.seen, auth)
	b.bodies = append(b.bodies, string(body))
	valid := b.valid
	b.lock.Unlock()

	if strings.HasSuffix(r.URL.Path, "/public") || auth == "Bearer "+valid {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
		return
	}
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = io.WriteString(w, `{"success":false,"message":"Token expired"}`)
}

type gateFixture struct {
	store     *token.Store
	refresher *fakeRefresher
	backend   *backend
	server    *httptest.Server
	rt        http.RoundTripper
}

func setupGate(t *testing.T) *gateFixture {
	t.Helper()
	store := token.NewStore(memory.New(), memory.New())
	f := &gateFixture{
		store:     store,
		refresher: &fakeRefresher{store: store},
		backend:   &backend{},
	}
	f.server = httptest.NewServer(f.backend)
	t.Cleanup(f.server.Close)

	gate := authgate.New(store, f.refresher, authgate.WithLogger(zerolog.Nop()))
	f.rt = apiclient.Chain(http.DefaultTransport, gate.Middleware())
	return f
}

func (f *gateFixture) do(t *testing.T, method, path, body string) (*http.Response, error) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	return f.rt.RoundTrip(req)
}

func TestGate_ForwardsUnmodifiedWithoutAccessToken(t *testing.T) {
	f := setupGate(t)

	resp, err := f.do(t, http.MethodGet, "/public", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{""}, f.backend.seen)
}

func TestGate_AttachesBearer(t *testing.T) {
	f := setupGate(t)
	f.backend.valid = "access-1"
	require.NoError(t, f.store.Save(context.Background(), token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	resp, err := f.do(t, http.MethodGet, "/customers", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"Bearer access-1"}, f.backend.seen)
	require.Empty(t, f.refresher.rejected)
}

func TestGate_SkipsLoginAndRefresh(t *testing.T) {
	f := setupGate(t)
	require.NoError(t, f.store.Save(context.Background(), token.Pair{AccessToken: "stale", RefreshToken: "refresh-1"}))

	for _, path := range []string{"/api/auth/login", "/api/auth/refresh"} {
		resp, err := f.do(t, http.MethodPost, path, `{}`)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	require.Equal(t, []string{"", ""}, f.backend.seen)
	require.Empty(t, f.refresher.rejected)
	require.Zero(t, f.refresher.expireCalls)
}

func TestGate_RefreshesAndRetriesOnce(t *testing.T) {
	f := setupGate(t)
	f.backend.valid = "access-2"
	f.refresher.next = token.Pair{AccessToken: "access-2", RefreshToken: "refresh-2"}
	require.NoError(t, f.store.Save(context.Background(), token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	resp, err := f.do(t, http.MethodPost, "/orders", `{"qty":2}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, []string{"access-1"}, f.refresher.rejected)
	require.Equal(t, []string{"Bearer access-1", "Bearer access-2"}, f.backend.seen)
	require.Equal(t, []string{`{"qty":2}`, `{"qty":2}`}, f.backend.bodies, "body is replayed on retry")
}

func TestGate_NoRefreshTokenExpiresSessionAndReturnsOriginal401(t *testing.T) {
	f := setupGate(t)
	ctx := context.Background()
	// An access token without a refresh token can only come from a foreign
	// writer; write it straight to the backing store.
	durable := memory.New()
	require.NoError(t, durable.SetMany(ctx, map[string]string{token.AccessTokenKey: "access-1"}))
	f.store = token.NewStore(durable, memory.New())
	f.refresher.store = f.store
	f.rt = apiclient.Chain(http.DefaultTransport,
		authgate.New(f.store, f.refresher, authgate.WithLogger(zerolog.Nop())).Middleware())

	resp, err := f.do(t, http.MethodGet, "/customers", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), "Token expired")

	require.Equal(t, 1, f.refresher.expireCalls)
	require.Empty(t, f.refresher.rejected)
	_, err = f.store.AccessToken(ctx)
	require.Error(t, err)
}

func TestGate_RefreshFailurePropagatesRefreshError(t *testing.T) {
	f := setupGate(t)
	refreshErr := errors.New("refresh token revoked")
	f.refresher.err = refreshErr
	require.NoError(t, f.store.Save(context.Background(), token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	resp, err := f.do(t, http.MethodGet, "/customers", "")
	require.Nil(t, resp)
	require.ErrorIs(t, err, refreshErr)
	require.Len(t, f.backend.seen, 1, "original request is not retried")
}

func TestGate_SecondUnauthorizedIsReturnedUnchanged(t *testing.T) {
	f := setupGate(t)
	f.backend.valid = "never-issued"
	f.refresher.next = token.Pair{AccessToken: "access-2", RefreshToken: "refresh-2"}
	require.NoError(t, f.store.Save(context.Background(), token.Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	resp, err := f.do(t, http.MethodGet, "/customers", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Len(t, f.refresher.rejected, 1)
	require.Len(t, f.backend.seen, 2)
}

func TestGate_OtherStatusesPassThrough(t *testing.T) {
	store := token.NewStore(memory.New(), memory.New())
	refresher := &fakeRefresher{store: store}
	require.NoError(t, store.Save(context.Background(), token.Pair{AccessToken: "a", RefreshToken: "r"}))

	base := apiclient.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusForbidden, Body: http.NoBody, Request: r}, nil
	})
	rt := apiclient.Chain(base, authgate.New(store, refresher, authgate.WithLogger(zerolog.Nop())).Middleware())

	resp, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://shop.local/customers", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Empty(t, refresher.rejected)
}
