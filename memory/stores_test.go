package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/authserver/domain"
	"github.com/edustack/authserver/memory"
)

func TestInMemoryAuthCodeRepository_Consume(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInMemoryAuthCodeRepository()

	code := &domain.AuthCode{
		Code:        "abc123",
		ClientID:    "web-app",
		UserID:      "user-1",
		RedirectURI: "https://app.example.com/callback",
		Scope:       "openid profile",
		ExpiresAt:   time.Now().Add(10 * time.Minute),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, repo.SaveAuthCode(ctx, code))

	got, err := repo.ConsumeAuthCode(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, got.Used)
	assert.Equal(t, "user-1", got.UserID)

	_, err = repo.ConsumeAuthCode(ctx, "abc123")
	assert.ErrorIs(t, err, domain.ErrAuthCodeConsumed)

	_, err = repo.ConsumeAuthCode(ctx, "no-such-code")
	assert.ErrorIs(t, err, domain.ErrAuthCodeNotFound)
}

func TestInMemoryAuthCodeRepository_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInMemoryAuthCodeRepository()

	require.NoError(t, repo.SaveAuthCode(ctx, &domain.AuthCode{
		Code:      "race-code",
		ClientID:  "web-app",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}))

	const workers = 32

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ConsumeAuthCode(ctx, "race-code")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrAuthCodeConsumed)
		}
	}
	assert.Equal(t, 1, successes, "exactly one consumer must win")
}

func TestInMemoryAuthCodeRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInMemoryAuthCodeRepository()

	require.NoError(t, repo.SaveAuthCode(ctx, &domain.AuthCode{
		Code:      "live",
		ExpiresAt: time.Now().Add(time.Minute),
	}))
	require.NoError(t, repo.SaveAuthCode(ctx, &domain.AuthCode{
		Code:      "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	require.NoError(t, repo.DeleteExpiredAuthCodes(ctx))

	_, err := repo.GetAuthCode(ctx, "live")
	require.NoError(t, err)

	_, err = repo.GetAuthCode(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrAuthCodeNotFound)
}

func TestInMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInMemoryUserRepository()

	user := &domain.User{ID: "user-1", Username: "alice"}
	require.NoError(t, repo.CreateUser(ctx, user))

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)

	got.FailedLoginAttempts = 3
	require.NoError(t, repo.UpdateUser(ctx, got))

	// The stored record must not alias the caller's copy.
	got.FailedLoginAttempts = 99
	reread, err := repo.GetUserByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, reread.FailedLoginAttempts)
}
