package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edustack/authserver/cache"
	"github.com/edustack/authserver/domain"
)

// pendingKeyPrefix namespaces pending authorization requests in Redis.
const pendingKeyPrefix = "oauth2:auth:request:"

// PendingAuthorizationStore implements cache.PendingAuthorizationStore
// backed by Redis. Entries are stored as JSON with the request TTL, so a
// restart or a second server instance sees the same pending requests.
type PendingAuthorizationStore struct {
	client *redis.Client
}

// NewPendingAuthorizationStore creates a new [PendingAuthorizationStore]
// instance.
func NewPendingAuthorizationStore(client *redis.Client) *PendingAuthorizationStore {
	return &PendingAuthorizationStore{client: client}
}

func (s *PendingAuthorizationStore) redisKey(id string) string {
	return pendingKeyPrefix + id
}

// Save implements cache.PendingAuthorizationStore.Save.
func (s *PendingAuthorizationStore) Save(ctx context.Context, authz *domain.PendingAuthorization) error {
	ttl := time.Until(authz.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(authz)
	if err != nil {
		return fmt.Errorf("failed to marshal pending authorization: %w", err)
	}

	if err := s.client.Set(ctx, s.redisKey(authz.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store pending authorization in redis: %w", err)
	}
	return nil
}

// Get implements cache.PendingAuthorizationStore.Get.
func (s *PendingAuthorizationStore) Get(ctx context.Context, id string) (*domain.PendingAuthorization, error) {
	payload, err := s.client.Get(ctx, s.redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrPendingAuthorizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending authorization from redis: %w", err)
	}

	var authz domain.PendingAuthorization
	if err := json.Unmarshal(payload, &authz); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending authorization: %w", err)
	}
	return &authz, nil
}

// Delete implements cache.PendingAuthorizationStore.Delete.
func (s *PendingAuthorizationStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.redisKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete pending authorization from redis: %w", err)
	}
	return nil
}

// Close is a no-op, the Redis client is owned by the caller.
func (s *PendingAuthorizationStore) Close() error {
	return nil
}

var _ cache.PendingAuthorizationStore = (*PendingAuthorizationStore)(nil)
