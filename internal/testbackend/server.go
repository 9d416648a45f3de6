// Package testbackend is an in-process shop backend for tests and the
// serve-demo command. It issues real HS256 access tokens and rotating opaque
// refresh tokens, and exposes knobs to expire, revoke and fail requests.
package testbackend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-shop-client/customers"
	"github.com/jrsteele09/go-shop-client/token"
	"github.com/jrsteele09/go-shop-client/users"
	"github.com/rs/zerolog"
)

// APIPrefix is where the backend mounts its API.
const APIPrefix = "/api"

// Routes, relative to APIPrefix.
const (
	RouteLogin     = "/auth/login"
	RouteRefresh   = "/auth/refresh"
	RouteLogout    = "/auth/logout"
	RouteProfile   = "/auth/profile"
	RouteCustomers = "/customers"
	RouteEcho      = "/echo"
)

// Counts records how often each endpoint was hit.
type Counts struct {
	Login        int
	Refresh      int
	Logout       int
	Profile      int
	Customers    int
	Echo         int
	Unauthorized int // requests rejected for a missing, invalid or revoked token
}

// Server is the fake backend. It is an http.Handler; Start serves it on a
// loopback httptest server.
type Server struct {
	mux       *http.ServeMux
	srv       *httptest.Server
	signer    *HMACsigner
	users     *userRepo
	refresh   *refreshManager
	revoked   *revokedTokens
	logger    zerolog.Logger
	accessTTL time.Duration
	nowFunc   func() time.Time

	lock        sync.Mutex
	customers   []customers.Customer
	issued      map[string]time.Time // jti to exp
	failures    map[string]int       // route to one-shot status
	refreshHook func()
	profileHook func()
	counts      Counts
	seenTokens  []string
}

// Option configures a Server.
type Option func(*Server)

// WithAccessTTL sets the lifetime of issued access tokens (default 15m).
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = d
	}
}

// WithRefreshTTL sets how long a refresh token may be used (default 7 days).
func WithRefreshTTL(d time.Duration) Option {
	return func(s *Server) {
		s.refresh.expiry = d
	}
}

func WithSecret(secret string) Option {
	return func(s *Server) {
		s.signer = NewHMACSigner(secret)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
		s.refresh.nowFunc = now
	}
}

// New creates an unstarted backend.
func New(opts ...Option) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		signer:    NewHMACSigner(uuid.NewString()),
		users:     newUserRepo(),
		revoked:   newRevokedTokens(),
		logger:    zerolog.Nop(),
		accessTTL: 15 * time.Minute,
		nowFunc:   time.Now,
		issued:    make(map[string]time.Time),
		failures:  make(map[string]int),
	}
	s.refresh = newRefreshManager(7*24*time.Hour, time.Now)
	for _, opt := range opts {
		opt(s)
	}
	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	s.mux.HandleFunc("POST "+APIPrefix+RouteLogin, s.loginHandler)
	s.mux.HandleFunc("POST "+APIPrefix+RouteRefresh, s.refreshHandler)
	s.mux.HandleFunc("POST "+APIPrefix+RouteLogout, s.logoutHandler)
	s.mux.HandleFunc("GET "+APIPrefix+RouteProfile, s.requireAuth(RouteProfile, s.profileHandler))
	s.mux.HandleFunc("GET "+APIPrefix+RouteCustomers, s.requireAuth(RouteCustomers, s.listCustomersHandler))
	s.mux.HandleFunc("GET "+APIPrefix+RouteCustomers+"/{code}", s.requireAuth(RouteCustomers, s.getCustomerHandler))
	s.mux.HandleFunc("POST "+APIPrefix+RouteEcho, s.requireAuth(RouteEcho, s.echoHandler))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("backend request")
	s.mux.ServeHTTP(w, r)
}

// Start serves the backend on a loopback address.
func (s *Server) Start() *Server {
	s.srv = httptest.NewServer(s)
	return s
}

// Close stops a started backend.
func (s *Server) Close() {
	if s.srv != nil {
		s.srv.Close()
	}
}

// BaseURL is the API base URL clients should be configured with.
func (s *Server) BaseURL() string {
	return s.srv.URL + APIPrefix
}

// AddUser registers an account; username is user.UserID.
func (s *Server) AddUser(user users.User, password string) error {
	return s.users.upsert(user, password)
}

func (s *Server) AddCustomers(cs ...customers.Customer) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.customers = append(s.customers, cs...)
}

// IssuePair mints a pair for userID directly, as if the user had logged in.
// A negative accessTTL yields an access token that is already expired.
func (s *Server) IssuePair(userID string, accessTTL time.Duration) (token.Pair, error) {
	user, err := s.userByLogin(userID)
	if err != nil {
		return token.Pair{}, err
	}
	return s.issuePair(user, accessTTL)
}

// RevokeAccessTokens makes every access token issued so far unacceptable,
// simulating server-side expiry the client cannot see.
func (s *Server) RevokeAccessTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for jti, exp := range s.issued {
		s.revoked.add(jti, exp)
	}
	s.revoked.cleanup(s.nowFunc())
}

// RevokeRefreshTokens invalidates every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.refresh.repo.clear()
}

// FailNext makes the next request to route answer with status.
func (s *Server) FailNext(route string, status int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failures[route] = status
}

// SetRefreshHook installs fn to run at the start of every refresh request,
// before any token work. Tests use it to hold a refresh open.
func (s *Server) SetRefreshHook(fn func()) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshHook = fn
}

// SetProfileHook installs fn to run on every authorized profile request,
// before the profile is written.
func (s *Server) SetProfileHook(fn func()) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.profileHook = fn
}

func (s *Server) Counts() Counts {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.counts
}

// SeenTokens returns the bearer tokens presented to protected routes, in
// arrival order.
func (s *Server) SeenTokens() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]string, len(s.seenTokens))
	copy(out, s.seenTokens)
	return out
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *meta  `json:"meta,omitempty"`
}

type meta struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	RequestID string `json:"requestId"`
}

func (s *Server) writeData(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	s.write(w, status, envelope{
		Success: true,
		Message: message,
		Data:    data,
		Meta: &meta{
			Timestamp: s.nowFunc().UTC().Format(time.RFC3339),
			Version:   "1.0",
			RequestID: r.Header.Get("X-Request-ID"),
		},
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.write(w, status, envelope{
		Message: message,
		Error:   http.StatusText(status),
	})
}

func (s *Server) write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Err(err).Msg("writing response")
	}
}

// injected answers with a queued failure for route, if any.
func (s *Server) injected(w http.ResponseWriter, route string) bool {
	s.lock.Lock()
	status, ok := s.failures[route]
	delete(s.failures, route)
	s.lock.Unlock()
	if !ok {
		return false
	}
	if status == 0 {
		// Drop the connection to look like a network failure.
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
				return true
			}
		}
		status = http.StatusBadGateway
	}
	s.writeError(w, status, "")
	return true
}

func (s *Server) bump(counter *int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	*counter++
}

// requireAuth validates the bearer token and passes the token's user to next.
func (s *Server) requireAuth(route string, next func(http.ResponseWriter, *http.Request, *users.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := ""
		if parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			raw = parts[1]
		}

		s.lock.Lock()
		s.seenTokens = append(s.seenTokens, raw)
		s.lock.Unlock()

		if s.injected(w, route) {
			return
		}

		user, err := s.verify(raw)
		if err != nil {
			s.bump(&s.counts.Unauthorized)
			s.writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next(w, r, user)
	}
}

func (s *Server) verify(raw string) (*users.User, error) {
	if raw == "" {
		return nil, jwt.ErrTokenMalformed
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, s.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{s.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(s.nowFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	jti, _ := claims["jti"].(string)
	if jti == "" || s.revoked.isRevoked(jti) {
		return nil, jwt.ErrTokenInvalidId
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}
	return s.users.getByID(sub)
}

func (s *Server) userByLogin(userID string) (*users.User, error) {
	s.users.lock.RLock()
	defer s.users.lock.RUnlock()
	rec, ok := s.users.users[userID]
	if !ok {
		return nil, errUserNotFound
	}
	return rec.user.Clone(), nil
}

func (s *Server) issuePair(user *users.User, accessTTL time.Duration) (token.Pair, error) {
	now := s.nowFunc()
	exp := now.Add(accessTTL)
	jti := uuid.NewString()

	access, err := s.signer.Sign(jwt.MapClaims{
		"sub":      user.ID,
		"user_id":  user.UserID,
		"roles":    user.Roles,
		"erpToken": "erp-" + user.UserID,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
		"jti":      jti,
	})
	if err != nil {
		return token.Pair{}, err
	}
	refreshToken, err := s.refresh.create(user.ID)
	if err != nil {
		return token.Pair{}, err
	}

	s.lock.Lock()
	s.issued[jti] = exp
	s.lock.Unlock()
	return token.Pair{AccessToken: access, RefreshToken: refreshToken}, nil
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	s.bump(&s.counts.Login)
	if s.injected(w, RouteLogin) {
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := s.users.authenticate(req.Username, req.Password)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	pair, err := s.issuePair(user, s.accessTTL)
	if err != nil {
		s.logger.Err(err).Msg("issuing tokens")
		s.writeError(w, http.StatusInternalServerError, "")
		return
	}
	s.writeData(w, r, http.StatusOK, "Login successful", pair)
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	s.bump(&s.counts.Refresh)

	s.lock.Lock()
	hook := s.refreshHook
	s.lock.Unlock()
	if hook != nil {
		hook()
	}

	if s.injected(w, RouteRefresh) {
		return
	}

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		s.writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	userID, err := s.refresh.rotate(req.RefreshToken)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	user, err := s.users.getByID(userID)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	pair, err := s.issuePair(user, s.accessTTL)
	if err != nil {
		s.logger.Err(err).Msg("issuing tokens")
		s.writeError(w, http.StatusInternalServerError, "")
		return
	}
	s.writeData(w, r, http.StatusOK, "Token refreshed", pair)
}

// logoutHandler revokes the caller's refresh token when the bearer token is
// valid and always succeeds otherwise.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s.bump(&s.counts.Logout)
	if s.injected(w, RouteLogout) {
		return
	}
	if parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2); len(parts) == 2 {
		if user, err := s.verify(parts[1]); err == nil {
			s.refresh.revokeUser(user.ID)
		}
	}
	s.writeData(w, r, http.StatusOK, "Logged out", nil)
}

func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request, user *users.User) {
	s.bump(&s.counts.Profile)

	s.lock.Lock()
	hook := s.profileHook
	s.lock.Unlock()
	if hook != nil {
		hook()
	}
	s.writeData(w, r, http.StatusOK, "Profile retrieved", user)
}

func (s *Server) listCustomersHandler(w http.ResponseWriter, r *http.Request, _ *users.User) {
	s.bump(&s.counts.Customers)

	page, limit := positiveInt(r.URL.Query().Get("page"), customers.DefaultPage), positiveInt(r.URL.Query().Get("limit"), customers.DefaultLimit)
	s.lock.Lock()
	all := make([]customers.Customer, len(s.customers))
	copy(all, s.customers)
	s.lock.Unlock()

	s.writeData(w, r, http.StatusOK, "Customers retrieved", pageCustomers(all, r.URL.Query().Get("mobile"), page, limit))
}

func (s *Server) getCustomerHandler(w http.ResponseWriter, r *http.Request, _ *users.User) {
	s.bump(&s.counts.Customers)

	code := r.PathValue("code")
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, c := range s.customers {
		if c.Code == code {
			s.writeData(w, r, http.StatusOK, "Customer retrieved", c)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "")
}

// echoHandler returns the request body; tests use it to check body replay.
func (s *Server) echoHandler(w http.ResponseWriter, r *http.Request, _ *users.User) {
	s.bump(&s.counts.Echo)
	var body any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Body must be JSON")
		return
	}
	s.writeData(w, r, http.StatusOK, "Echo", body)
}

func positiveInt(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
