package testbackend

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errRefreshTokenNotFound = errors.New("refresh token not found")

// storedRefreshToken is the server-side record behind an opaque refresh token.
type storedRefreshToken struct {
	Token  string
	UserID string
	Iat    time.Time
}

type refreshRepo struct {
	tokens  map[string]*storedRefreshToken
	userIDs map[string]string // user ID to token
	lock    sync.RWMutex
}

func newRefreshRepo() *refreshRepo {
	return &refreshRepo{
		tokens:  make(map[string]*storedRefreshToken),
		userIDs: make(map[string]string),
	}
}

func (r *refreshRepo) upsert(rt *storedRefreshToken) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.tokens[rt.Token] = rt
	r.userIDs[rt.UserID] = rt.Token
}

func (r *refreshRepo) get(token string) (*storedRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	rt, ok := r.tokens[token]
	if !ok {
		return nil, errRefreshTokenNotFound
	}
	return rt, nil
}

func (r *refreshRepo) getByUserID(userID string) (*storedRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	token, ok := r.userIDs[userID]
	if !ok {
		return nil, errRefreshTokenNotFound
	}
	return r.tokens[token], nil
}

// delete removes token. It reports whether the token existed so that two
// concurrent rotations of the same token cannot both succeed.
func (r *refreshRepo) delete(token string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	rt, ok := r.tokens[token]
	if !ok {
		return false
	}
	if r.userIDs[rt.UserID] == token {
		delete(r.userIDs, rt.UserID)
	}
	delete(r.tokens, token)
	return true
}

func (r *refreshRepo) clear() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.tokens = make(map[string]*storedRefreshToken)
	r.userIDs = make(map[string]string)
}

// refreshManager issues opaque refresh tokens, one per user, and rotates them
// on every use.
type refreshManager struct {
	repo    *refreshRepo
	expiry  time.Duration
	length  int
	nowFunc func() time.Time
}

func newRefreshManager(expiry time.Duration, nowFunc func() time.Time) *refreshManager {
	return &refreshManager{
		repo:    newRefreshRepo(),
		expiry:  expiry,
		length:  32,
		nowFunc: nowFunc,
	}
}

// create generates a new refresh token for userID, replacing any existing one.
func (m *refreshManager) create(userID string) (string, error) {
	if existing, err := m.repo.getByUserID(userID); err == nil {
		m.repo.delete(existing.Token)
	}

	tokenBytes := make([]byte, m.length)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	m.repo.upsert(&storedRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    m.nowFunc(),
	})
	return tokenStr, nil
}

// rotate consumes token and returns the user it belonged to.
func (m *refreshManager) rotate(token string) (string, error) {
	rt, err := m.repo.get(token)
	if err != nil {
		return "", err
	}
	if !m.repo.delete(token) {
		return "", errRefreshTokenNotFound
	}
	if m.nowFunc().Sub(rt.Iat) > m.expiry {
		return "", errors.New("refresh token expired")
	}
	return rt.UserID, nil
}

// revokeUser removes userID's refresh token, if any.
func (m *refreshManager) revokeUser(userID string) {
	if existing, err := m.repo.getByUserID(userID); err == nil {
		m.repo.delete(existing.Token)
	}
}
