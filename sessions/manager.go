package sessions

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-shop-client/apiclient"
	"github.com/jrsteele09/go-shop-client/authgate"
	"github.com/jrsteele09/go-shop-client/dashboard"
	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
	"github.com/jrsteele09/go-shop-client/token"
	"github.com/jrsteele09/go-shop-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Backend endpoints used by the manager.
const (
	LoginPath   = authgate.LoginPath
	RefreshPath = authgate.RefreshPath
	LogoutPath  = "/auth/logout"
	ProfilePath = "/auth/profile"

	refreshKey = "refresh"
)

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=../internal/mocks/navigator_mock.go github.com/jrsteele09/go-shop-client/sessions Navigator

// Navigator moves the user to another screen. The CLI prints the route; a UI
// would switch views.
type Navigator interface {
	Navigate(ctx context.Context, route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, route string)

func (f NavigatorFunc) Navigate(ctx context.Context, route string) {
	f(ctx, route)
}

var _ authgate.Refresher = (*Manager)(nil)

// Manager owns the session: current user, token lifecycle and the single
// in-flight refresh shared by every request that hit a 401.
type Manager struct {
	store     *token.Store
	codec     *token.Codec
	client    *apiclient.Client
	navigator Navigator
	logger    zerolog.Logger

	transport  http.RoundTripper
	timeout    time.Duration
	codecOpts  []token.CodecOption
	clientOpts []apiclient.Option

	refreshGroup singleflight.Group

	lock        sync.Mutex
	state       State
	user        *users.User
	epoch       uint64
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithNavigator(n Navigator) Option {
	return func(m *Manager) {
		m.navigator = n
	}
}

// WithNowFunc overrides the clock used for token expiry checks.
func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.codecOpts = append(m.codecOpts, token.WithNowFunc(now))
	}
}

// WithTransport sets the RoundTripper beneath the middleware chain.
func WithTransport(rt http.RoundTripper) Option {
	return func(m *Manager) {
		m.transport = rt
	}
}

func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithClientOptions passes extra options to the underlying API client.
func WithClientOptions(opts ...apiclient.Option) Option {
	return func(m *Manager) {
		m.clientOpts = append(m.clientOpts, opts...)
	}
}

// New creates a Manager talking to baseURL. The returned manager's Client
// carries the auth gate, so every request made through it is authenticated and
// retried once after a refresh.
func New(baseURL string, store *token.Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:       store,
		logger:      log.Logger,
		state:       StateUnauthenticated,
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.navigator == nil {
		m.navigator = NavigatorFunc(func(_ context.Context, route string) {
			m.logger.Info().Str("route", route).Msg("navigate")
		})
	}
	m.codec = token.NewCodec(m.codecOpts...)

	gate := authgate.New(store, m, authgate.WithLogger(m.logger))
	clientOpts := []apiclient.Option{
		apiclient.WithLogger(m.logger),
		apiclient.WithMiddleware(gate.Middleware()),
	}
	if m.transport != nil {
		clientOpts = append(clientOpts, apiclient.WithTransport(m.transport))
	}
	if m.timeout > 0 {
		clientOpts = append(clientOpts, apiclient.WithTimeout(m.timeout))
	}
	client, err := apiclient.New(baseURL, append(clientOpts, m.clientOpts...)...)
	if err != nil {
		return nil, err
	}
	m.client = client
	return m, nil
}

// Client returns the authenticated API client.
func (m *Manager) Client() *apiclient.Client {
	return m.client
}

// Store returns the token store backing the session.
func (m *Manager) Store() *token.Store {
	return m.store
}

// Initialize restores a session from stored tokens. A missing or expired
// access token leaves the session cleared; it is not an error.
func (m *Manager) Initialize(ctx context.Context) error {
	access, err := m.store.AccessToken(ctx)
	if err != nil || !m.codec.IsValid(access) {
		if err != nil && !shoperrors.Is(err, shoperrors.ErrNoToken) {
			m.logger.Err(err).Msg("reading stored access token")
		}
		m.reset(ctx)
		return nil
	}

	epoch := m.transition(StateRefreshingProfile, false)
	if _, err := m.loadProfile(ctx, epoch); err != nil {
		m.resetIfCurrent(ctx, epoch)
		return apiclient.Handle(err, "User Profile")
	}
	return nil
}

// Login exchanges credentials for a token pair and loads the profile before
// returning. On any failure the session is left unauthenticated with no
// tokens stored.
func (m *Manager) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	epoch := m.transition(StateAuthenticating, true)

	resp, err := apiclient.Post[token.Pair](ctx, m.client, LoginPath, loginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		m.resetIfCurrent(ctx, epoch)
		return nil, apiclient.Handle(err, "Login")
	}
	if err := m.savePair(ctx, epoch, resp.Data); err != nil {
		m.resetIfCurrent(ctx, epoch)
		return nil, apiclient.Handle(err, "Login")
	}
	if _, err := m.loadProfile(ctx, epoch); err != nil {
		m.resetIfCurrent(ctx, epoch)
		return nil, apiclient.Handle(err, "Login")
	}

	m.logger.Info().Str("username", username).Msg("logged in")
	return resp, nil
}

// Refresh exchanges the stored refresh token for a new pair. Concurrent calls
// share one request. Failure ends the session and navigates to login.
func (m *Manager) Refresh(ctx context.Context) (*AuthResponse, error) {
	v, err, _ := m.refreshGroup.Do(refreshKey, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*AuthResponse), nil
}

// Renew returns a token pair whose access token is not rejected. If another
// caller already refreshed, the stored pair is returned without a request.
func (m *Manager) Renew(ctx context.Context, rejected string) (token.Pair, error) {
	if pair, ok := m.renewed(ctx, rejected); ok {
		return pair, nil
	}
	v, err, shared := m.refreshGroup.Do(refreshKey, func() (any, error) {
		if pair, ok := m.renewed(ctx, rejected); ok {
			return &AuthResponse{Success: true, Data: pair}, nil
		}
		return m.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return token.Pair{}, err
	}
	if shared {
		m.logger.Debug().Msg("joined in-flight token refresh")
	}
	return v.(*AuthResponse).Data, nil
}

func (m *Manager) renewed(ctx context.Context, rejected string) (token.Pair, bool) {
	pair, err := m.store.Pair(ctx)
	if err != nil || pair.AccessToken == rejected {
		return token.Pair{}, false
	}
	return pair, true
}

func (m *Manager) refresh(ctx context.Context) (*AuthResponse, error) {
	epoch := m.currentEpoch()

	refreshToken, err := m.store.RefreshToken(ctx)
	if err != nil {
		m.expire(ctx, epoch)
		return nil, apiclient.Handle(shoperrors.Wrapf(shoperrors.ErrNoRefreshToken, "refresh"), "Token Refresh")
	}

	resp, err := apiclient.Post[token.Pair](ctx, m.client, RefreshPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		m.logger.Warn().Err(err).Msg("token refresh failed, ending session")
		m.expire(ctx, epoch)
		return nil, apiclient.Handle(err, "Token Refresh")
	}
	if err := m.savePair(ctx, epoch, resp.Data); err != nil {
		if !shoperrors.Is(err, shoperrors.ErrSessionReset) {
			m.expire(ctx, epoch)
		}
		return nil, apiclient.Handle(err, "Token Refresh")
	}

	m.logger.Debug().Msg("tokens refreshed")
	return resp, nil
}

// Logout tells the backend, then clears local state and navigates to login
// whatever the backend said. The returned error is for display only.
func (m *Manager) Logout(ctx context.Context) error {
	_, err := apiclient.Post[json.RawMessage](ctx, m.client, LogoutPath, struct{}{})
	m.reset(ctx)
	m.navigator.Navigate(ctx, dashboard.RouteLogin)
	if err != nil {
		return apiclient.Handle(err, "Logout")
	}
	return nil
}

// Expire ends the session and navigates to login.
func (m *Manager) Expire(ctx context.Context) {
	m.reset(ctx)
	m.navigator.Navigate(ctx, dashboard.RouteLogin)
}

func (m *Manager) expire(ctx context.Context, epoch uint64) {
	if m.resetIfCurrent(ctx, epoch) {
		m.navigator.Navigate(ctx, dashboard.RouteLogin)
	}
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (m *Manager) CurrentUser() *users.User {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.user.Clone()
}

// IsAuthenticated reports whether a user is loaded and the stored access
// token has not expired.
func (m *Manager) IsAuthenticated() bool {
	m.lock.Lock()
	hasUser := m.user != nil
	m.lock.Unlock()
	if !hasUser {
		return false
	}
	access, err := m.store.AccessToken(context.Background())
	if err != nil {
		return false
	}
	return m.codec.IsValid(access)
}

// HasRole is false when no user is signed in.
func (m *Manager) HasRole(role users.Role) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.user.HasRole(role)
}

func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// Snapshot returns the current published view of the session.
func (m *Manager) Snapshot() Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn for every transition. fn is called immediately with
// the current snapshot, and never while the manager's lock is held.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.lock.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	snap := m.snapshotLocked()
	m.lock.Unlock()

	fn(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.lock.Lock()
			delete(m.subscribers, id)
			m.lock.Unlock()
		})
	}
}

func (m *Manager) loadProfile(ctx context.Context, epoch uint64) (*users.User, error) {
	resp, err := apiclient.Get[*users.User](ctx, m.client, ProfilePath, nil)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, shoperrors.ErrEmptyProfile
	}

	m.lock.Lock()
	if m.epoch != epoch {
		m.lock.Unlock()
		return nil, shoperrors.ErrSessionReset
	}
	m.user = resp.Data.Clone()
	m.state = StateAuthenticated
	snap, subs := m.publishLocked()
	m.lock.Unlock()

	notify(subs, snap)
	return resp.Data, nil
}

// savePair writes tokens unless the session was reset since epoch began.
func (m *Manager) savePair(ctx context.Context, epoch uint64, pair token.Pair) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.epoch != epoch {
		return shoperrors.ErrSessionReset
	}
	return m.store.Save(ctx, pair)
}

func (m *Manager) currentEpoch() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.epoch
}

// transition moves to state and publishes. With bump, operations that began
// earlier become stale.
func (m *Manager) transition(state State, bump bool) uint64 {
	m.lock.Lock()
	if bump {
		m.epoch++
	}
	m.state = state
	epoch := m.epoch
	snap, subs := m.publishLocked()
	m.lock.Unlock()

	notify(subs, snap)
	return epoch
}

func (m *Manager) reset(ctx context.Context) {
	m.lock.Lock()
	m.resetLocked(ctx)
	snap, subs := m.publishLocked()
	m.lock.Unlock()

	notify(subs, snap)
}

// resetIfCurrent resets only when nothing else has reset or restarted the
// session since epoch.
func (m *Manager) resetIfCurrent(ctx context.Context, epoch uint64) bool {
	m.lock.Lock()
	if m.epoch != epoch {
		m.lock.Unlock()
		return false
	}
	m.resetLocked(ctx)
	snap, subs := m.publishLocked()
	m.lock.Unlock()

	notify(subs, snap)
	return true
}

func (m *Manager) resetLocked(ctx context.Context) {
	m.epoch++
	m.user = nil
	m.state = StateUnauthenticated
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Err(err).Msg("clearing stored tokens")
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		User:          m.user.Clone(),
		Authenticated: m.user != nil && m.state == StateAuthenticated,
		State:         m.state,
	}
}

func (m *Manager) publishLocked() (Snapshot, []func(Snapshot)) {
	subs := make([]func(Snapshot), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	return m.snapshotLocked(), subs
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
