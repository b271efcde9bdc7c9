package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/authserver/cache"
	"github.com/edustack/authserver/domain"
	serrors "github.com/edustack/authserver/errors"
)

const testSecret = "test-secret-which-is-long-enough"

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()

	bl := cache.NewMemoryTokenBlacklist()
	t.Cleanup(func() { bl.Close() })

	return NewJWTService(testSecret, "https://auth.example.com", bl)
}

func TestJWTService_MintAndParse(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)

	token, err := svc.Mint("user-1", "web-app", "openid profile", TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ParseToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "web-app", claims.ClientID)
	assert.Equal(t, "openid profile", claims.Scope)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "https://auth.example.com", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_ParseErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)

	t.Run("Expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := svc.Mint("user-1", "web-app", "", TokenTypeAccess, time.Hour)
		require.NoError(t, err)
		svc.now = time.Now

		_, err = svc.ParseToken(ctx, token)
		assert.ErrorIs(t, err, serrors.ErrTokenExpired)
	})

	t.Run("BadSignature", func(t *testing.T) {
		other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"userId": "user-1",
			"exp":    time.Now().Add(time.Hour).Unix(),
		})
		token, err := other.SignedString([]byte("a-different-secret-entirely!!"))
		require.NoError(t, err)

		_, err = svc.ParseToken(ctx, token)
		assert.ErrorIs(t, err, serrors.ErrTokenSignatureInvalid)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.ParseToken(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, serrors.ErrTokenInvalid)
	})
}

func TestJWTService_RevokeThenIntrospect(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)

	token, err := svc.Mint("user-1", "web-app", "openid", TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	result := svc.Introspect(ctx, token, "")
	require.True(t, result.Active)
	assert.Equal(t, "web-app", result.ClientID)
	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, TokenTypeAccess, result.TokenType)
	assert.NotZero(t, result.ExpiresAt)

	require.NoError(t, svc.Revoke(ctx, token))

	result = svc.Introspect(ctx, token, "")
	assert.False(t, result.Active)
	assert.Empty(t, result.ClientID)

	_, err = svc.ParseToken(ctx, token)
	assert.ErrorIs(t, err, serrors.ErrTokenRevoked)
}

func TestJWTService_IntrospectNeverErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)

	assert.False(t, svc.Introspect(ctx, "garbage", "").Active)
	assert.False(t, svc.Introspect(ctx, "", "access_token").Active)
}

func TestJWTService_RevokeInvalidTokenSucceeds(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)

	assert.NoError(t, svc.Revoke(ctx, "complete-garbage"))
}

func TestJWTService_IDTokenIntrospection(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(t)

	user := &domain.User{
		ID:                "user-1",
		Email:             "alice@example.com",
		EmailVerified:     true,
		PreferredUsername: "alice",
	}
	token, err := svc.MintIDToken(user, "web-app", "nonce-123", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ParseToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "nonce-123", claims.Nonce)
	assert.Equal(t, "alice", claims.PreferredUsername)

	// ID tokens fall back to subject and audience.
	result := svc.Introspect(ctx, token, "")
	require.True(t, result.Active)
	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, "web-app", result.ClientID)
}
