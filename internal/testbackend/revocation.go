package testbackend

import (
	"sync"
	"time"
)

// revokedTokens tracks access token ids the server no longer accepts even
// though their exp has not passed.
type revokedTokens struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
}

func newRevokedTokens() *revokedTokens {
	return &revokedTokens{
		revoked: make(map[string]time.Time),
	}
}

func (c *revokedTokens) add(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = exp
}

func (c *revokedTokens) isRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}

// cleanup drops entries whose tokens have expired anyway.
func (c *revokedTokens) cleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
}
