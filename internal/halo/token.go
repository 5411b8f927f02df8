package halo

import (
	"context"
	"sync"
	"time"
)

// Halo bearer tokens live 3600s; cache slightly under that so a token is
// never used right at its expiry.
const tokenTTL = 3000 * time.Second

// TokenCache owns the (token, expiry) pair for one Halo tenant and is
// injected into the client rather than living in ambient global state.
type TokenCache struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
	fetch  func(ctx context.Context) (string, error)
}

func NewTokenCache(fetch func(ctx context.Context) (string, error)) *TokenCache {
	return &TokenCache{now: time.Now, fetch: fetch}
}

// GetOrRefresh returns the cached token, re-authenticating when the cached
// one has expired. Authentication is idempotent, so callers racing through
// the expiry gap at worst cost a redundant auth call.
func (c *TokenCache) GetOrRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiry) {
		return c.token, nil
	}
	token, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiry = c.now().Add(tokenTTL)
	return token, nil
}

// Reset discards the cached token. The client calls it when Halo answers
// a resource request with 401 before the TTL ran out.
func (c *TokenCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiry = time.Time{}
}
