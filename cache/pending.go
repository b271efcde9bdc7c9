package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/edustack/authserver/domain"
)

// PendingAuthorizationStore holds authorization requests awaiting the user's
// consent decision. Entries disappear on delete or when their TTL lapses.
type PendingAuthorizationStore interface {
	Save(ctx context.Context, authz *domain.PendingAuthorization) error
	// Get returns the pending authorization, or domain.ErrPendingAuthorizationNotFound
	// when it does not exist or has expired.
	Get(ctx context.Context, id string) (*domain.PendingAuthorization, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// MemoryPendingAuthorizationStore implements PendingAuthorizationStore using
// ttlcache.
type MemoryPendingAuthorizationStore struct {
	cache *ttlcache.Cache[string, *domain.PendingAuthorization]
}

// NewMemoryPendingAuthorizationStore creates an in-memory pending
// authorization store with automatic expiry cleanup.
func NewMemoryPendingAuthorizationStore() *MemoryPendingAuthorizationStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.PendingAuthorization](),
	)

	go cache.Start()

	return &MemoryPendingAuthorizationStore{cache: cache}
}

// Save implements PendingAuthorizationStore.Save.
func (s *MemoryPendingAuthorizationStore) Save(_ context.Context, authz *domain.PendingAuthorization) error {
	ttl := time.Until(authz.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(authz.ID, authz, ttl)
	return nil
}

// Get implements PendingAuthorizationStore.Get.
func (s *MemoryPendingAuthorizationStore) Get(_ context.Context, id string) (*domain.PendingAuthorization, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, domain.ErrPendingAuthorizationNotFound
	}
	return item.Value(), nil
}

// Delete implements PendingAuthorizationStore.Delete.
func (s *MemoryPendingAuthorizationStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryPendingAuthorizationStore) Close() error {
	s.cache.Stop()
	return nil
}
