package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edustack/authserver/cache"
)

// blacklistKeyPrefix namespaces revocation entries in Redis.
const blacklistKeyPrefix = "token:blacklist:"

// TokenBlacklist implements cache.TokenBlacklist backed by Redis. Expiry is
// delegated to Redis key TTLs so revocations age out with the token itself.
type TokenBlacklist struct {
	client *redis.Client
}

// NewTokenBlacklist creates a new [TokenBlacklist] instance.
func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

func (b *TokenBlacklist) redisKey(token string) string {
	return blacklistKeyPrefix + cache.HashToken(token)
}

// Revoke implements cache.TokenBlacklist.Revoke.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, b.redisKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token in redis: %w", err)
	}
	return nil
}

// IsRevoked implements cache.TokenBlacklist.IsRevoked.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := b.client.Get(ctx, b.redisKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist in redis: %w", err)
	}
	return true, nil
}

// Close is a no-op, the Redis client is owned by the caller.
func (b *TokenBlacklist) Close() error {
	return nil
}

var _ cache.TokenBlacklist = (*TokenBlacklist)(nil)
