package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// DefaultSessionTTL bounds how long a payment session is reused for
// identical checkout inputs before a fresh one is created.
const DefaultSessionTTL = 5 * time.Minute

// sessionCache provides idempotency for payment-session creation by caching
// results under a content-addressed key and tracking in-flight requests.
// UI re-renders and concurrent identical setups collapse to one backend
// call instead of double-invoicing the buyer.
type sessionCache struct {
	mu       sync.Mutex
	results  map[string]*PaymentSetup
	expiry   map[string]time.Time
	inFlight map[string]chan struct{}
	ttl      time.Duration
}

func newSessionCache(ttl time.Duration) *sessionCache {
	return &sessionCache{
		results:  make(map[string]*PaymentSetup),
		expiry:   make(map[string]time.Time),
		inFlight: make(map[string]chan struct{}),
		ttl:      ttl,
	}
}

// sessionKey hashes the normalized asset list, label, and credential into a
// stable content-addressed cache key.
func sessionKey(assets []ResolvedAsset, label, credential string) string {
	payload, _ := json.Marshal(struct {
		Assets     []ResolvedAsset `json:"assets"`
		Label      string          `json:"label"`
		Credential string          `json:"credential"`
	}{assets, label, credential})

	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:])
}

// cacheStatus is the result of checking the cache
type cacheStatus int

const (
	statusNotFound cacheStatus = iota
	statusCached
	statusInFlight
)

// checkAndMark atomically checks the cache and marks the key in-flight if
// this caller should proceed to create the session.
func (c *sessionCache) checkAndMark(key string) (cacheStatus, *PaymentSetup, chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expiry, exists := c.expiry[key]; exists {
		if time.Now().Before(expiry) {
			if result, ok := c.results[key]; ok {
				return statusCached, result, nil
			}
		}
		delete(c.results, key)
		delete(c.expiry, key)
	}

	if done, exists := c.inFlight[key]; exists {
		return statusInFlight, nil, done
	}

	done := make(chan struct{})
	c.inFlight[key] = done
	return statusNotFound, nil, done
}

// waitForResult blocks until the in-flight creation finishes, respecting
// context cancellation. A nil result means the in-flight attempt failed and
// the caller should retry.
func (c *sessionCache) waitForResult(ctx context.Context, key string, done chan struct{}) (*PaymentSetup, error) {
	select {
	case <-done:
		return c.get(key), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *sessionCache) get(key string) *PaymentSetup {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, exists := c.expiry[key]
	if !exists {
		return nil
	}
	if time.Now().After(expiry) {
		delete(c.results, key)
		delete(c.expiry, key)
		return nil
	}
	return c.results[key]
}

// complete caches the created session and wakes any waiters
func (c *sessionCache) complete(key string, setup *PaymentSetup, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results[key] = setup
	c.expiry[key] = time.Now().Add(c.ttl)
	delete(c.inFlight, key)
	close(done)

	c.cleanupExpiredLocked()
}

// fail clears the in-flight marker without caching, allowing a retry
func (c *sessionCache) fail(key string, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inFlight, key)
	close(done)
}

// invalidate drops a cached session so the next setup re-creates it
func (c *sessionCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.results, key)
	delete(c.expiry, key)
}

// cleanupExpiredLocked removes expired entries. Must be called with lock held.
func (c *sessionCache) cleanupExpiredLocked() {
	now := time.Now()
	for key, expiry := range c.expiry {
		if now.After(expiry) {
			delete(c.results, key)
			delete(c.expiry, key)
		}
	}
}
