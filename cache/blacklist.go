package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// TokenBlacklist records revoked tokens until their natural expiry. Entries
// are keyed by token hash so raw token material never reaches the backend.
type TokenBlacklist interface {
	// Revoke marks a token revoked for ttl. A non-positive ttl is a no-op
	// since the token is already expired.
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	// IsRevoked reports whether a token was revoked and has not yet aged out.
	IsRevoked(ctx context.Context, token string) (bool, error)
	Close() error
}

// MemoryTokenBlacklist implements TokenBlacklist using ttlcache.
type MemoryTokenBlacklist struct {
	cache *ttlcache.Cache[string, struct{}]
}

// NewMemoryTokenBlacklist creates an in-memory blacklist with automatic
// expiry cleanup.
func NewMemoryTokenBlacklist() *MemoryTokenBlacklist {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)

	go cache.Start()

	return &MemoryTokenBlacklist{cache: cache}
}

// Revoke implements TokenBlacklist.Revoke.
func (b *MemoryTokenBlacklist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.cache.Set(HashToken(token), struct{}{}, ttl)
	return nil
}

// IsRevoked implements TokenBlacklist.IsRevoked.
func (b *MemoryTokenBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	return b.cache.Has(HashToken(token)), nil
}

// Close stops the cleanup goroutine.
func (b *MemoryTokenBlacklist) Close() error {
	b.cache.Stop()
	return nil
}
