package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/authserver/cache"
	"github.com/edustack/authserver/domain"
)

func TestMemoryTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	bl := cache.NewMemoryTokenBlacklist()
	defer bl.Close()

	revoked, err := bl.IsRevoked(ctx, "unknown-token")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "some-access-token", time.Minute))

	revoked, err = bl.IsRevoked(ctx, "some-access-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	t.Run("ExpiredTokenIsNoop", func(t *testing.T) {
		require.NoError(t, bl.Revoke(ctx, "already-expired", -time.Second))

		revoked, err := bl.IsRevoked(ctx, "already-expired")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}

func TestMemoryPendingAuthorizationStore(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryPendingAuthorizationStore()
	defer store.Close()

	authz := &domain.PendingAuthorization{
		ID:              "11111111-2222-3333-4444-555555555555",
		ClientID:        "web-app",
		UserID:          "user-1",
		RequestedScopes: []string{"openid", "profile"},
		RedirectURI:     "https://app.example.com/callback",
		CreatedAt:       time.Now(),
		ExpiresAt:       time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, store.Save(ctx, authz))

	got, err := store.Get(ctx, authz.ID)
	require.NoError(t, err)
	assert.Equal(t, authz.ClientID, got.ClientID)
	assert.Equal(t, authz.RequestedScopes, got.RequestedScopes)

	require.NoError(t, store.Delete(ctx, authz.ID))

	_, err = store.Get(ctx, authz.ID)
	assert.ErrorIs(t, err, domain.ErrPendingAuthorizationNotFound)

	t.Run("ExpiredEntryIsNeverStored", func(t *testing.T) {
		expired := &domain.PendingAuthorization{
			ID:        "expired-id",
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		require.NoError(t, store.Save(ctx, expired))

		_, err := store.Get(ctx, "expired-id")
		assert.ErrorIs(t, err, domain.ErrPendingAuthorizationNotFound)
	})
}
