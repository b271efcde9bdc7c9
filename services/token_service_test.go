package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/authserver/cache"
	"github.com/edustack/authserver/domain"
	serrors "github.com/edustack/authserver/errors"
	"github.com/edustack/authserver/internal/auth"
	"github.com/edustack/authserver/memory"
)

type tokenServiceFixture struct {
	tokenService *TokenService
	codeService  *AuthCodeService
	jwtService   *JWTService
	client       *domain.Client
	user         *domain.User
}

func newTokenServiceFixture(t *testing.T) *tokenServiceFixture {
	t.Helper()
	ctx := context.Background()

	hasher := auth.NewBcryptPasswordHasher(4)

	secretHash, err := hasher.Hash("client-secret")
	require.NoError(t, err)
	client := &domain.Client{
		ID:            "web-app",
		Name:          "Web App",
		SecretHash:    secretHash,
		RedirectURIs:  []string{"https://app.example.com/callback"},
		AllowedScopes: []string{"openid", "profile"},
	}
	clientRepo := memory.NewInMemoryClientRepository()
	require.NoError(t, clientRepo.CreateClient(ctx, client))

	user := &domain.User{
		ID:                "user-1",
		Username:          "alice",
		Email:             "alice@example.com",
		EmailVerified:     true,
		PreferredUsername: "alice",
	}
	userRepo := memory.NewInMemoryUserRepository()
	require.NoError(t, userRepo.CreateUser(ctx, user))

	bl := cache.NewMemoryTokenBlacklist()
	t.Cleanup(func() { bl.Close() })

	jwtService := NewJWTService(testSecret, "https://auth.example.com", bl)
	codeService := NewAuthCodeService(memory.NewInMemoryAuthCodeRepository())

	return &tokenServiceFixture{
		tokenService: NewTokenService(clientRepo, userRepo, codeService, jwtService, hasher),
		codeService:  codeService,
		jwtService:   jwtService,
		client:       client,
		user:         user,
	}
}

func (f *tokenServiceFixture) issueCode(t *testing.T, scope, nonce string) *domain.AuthCode {
	t.Helper()
	authCode, err := f.codeService.Issue(context.Background(), f.client, f.user.ID,
		"https://app.example.com/callback", scope, "", "", nonce)
	require.NoError(t, err)
	return authCode
}

func TestTokenService_AuthorizationCodeGrant(t *testing.T) {
	ctx := context.Background()
	f := newTokenServiceFixture(t)
	authCode := f.issueCode(t, "openid profile", "nonce-123")

	resp, err := f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
		GrantType:   GrantTypeAuthorizationCode,
		Code:        authCode.Code,
		RedirectURI: "https://app.example.com/callback",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "openid profile", resp.Scope)

	claims, err := f.jwtService.ParseToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "user-1", claims.UserID)

	require.NotEmpty(t, resp.IDToken)
	idClaims, err := f.jwtService.ParseToken(ctx, resp.IDToken)
	require.NoError(t, err)
	assert.Equal(t, "nonce-123", idClaims.Nonce)
	assert.Equal(t, "alice@example.com", idClaims.Email)

	t.Run("CodeReplayFails", func(t *testing.T) {
		_, err := f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
			GrantType:   GrantTypeAuthorizationCode,
			Code:        authCode.Code,
			RedirectURI: "https://app.example.com/callback",
		})
		assert.ErrorIs(t, err, serrors.ErrAuthorizationCodeUsed)
	})
}

func TestTokenService_NoIDTokenWithoutOpenID(t *testing.T) {
	ctx := context.Background()
	f := newTokenServiceFixture(t)
	authCode := f.issueCode(t, "profile", "")

	resp, err := f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
		GrantType:   GrantTypeAuthorizationCode,
		Code:        authCode.Code,
		RedirectURI: "https://app.example.com/callback",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.IDToken)
}

func TestTokenService_ClientAuthentication(t *testing.T) {
	ctx := context.Background()
	f := newTokenServiceFixture(t)
	authCode := f.issueCode(t, "openid", "")

	req := &TokenRequest{
		GrantType:   GrantTypeAuthorizationCode,
		Code:        authCode.Code,
		RedirectURI: "https://app.example.com/callback",
	}

	_, err := f.tokenService.Exchange(ctx, "web-app", "wrong-secret", req)
	assert.ErrorIs(t, err, serrors.ErrInvalidClientCredentials)

	_, err = f.tokenService.Exchange(ctx, "ghost-app", "client-secret", req)
	assert.ErrorIs(t, err, serrors.ErrInvalidClientCredentials)

	_, err = f.tokenService.Exchange(ctx, "", "", req)
	assert.ErrorIs(t, err, serrors.ErrInvalidClientCredentials)
}

func TestTokenService_MissingParameters(t *testing.T) {
	ctx := context.Background()
	f := newTokenServiceFixture(t)

	_, err := f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
		GrantType: GrantTypeAuthorizationCode,
	})
	assert.ErrorIs(t, err, serrors.ErrParameterValidationFailed)

	_, err = f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
		GrantType: GrantTypeRefreshToken,
	})
	assert.ErrorIs(t, err, serrors.ErrParameterValidationFailed)
}

func TestTokenService_UnsupportedGrant(t *testing.T) {
	ctx := context.Background()
	f := newTokenServiceFixture(t)

	_, err := f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
		GrantType: "password",
	})
	assert.ErrorIs(t, err, serrors.ErrInvalidGrantType)
}

func TestTokenService_RefreshTokenGrant(t *testing.T) {
	ctx := context.Background()
	f := newTokenServiceFixture(t)
	authCode := f.issueCode(t, "openid profile", "")

	initial, err := f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
		GrantType:   GrantTypeAuthorizationCode,
		Code:        authCode.Code,
		RedirectURI: "https://app.example.com/callback",
	})
	require.NoError(t, err)

	refreshed, err := f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		RefreshToken: initial.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, "openid profile", refreshed.Scope)

	claims, err := f.jwtService.ParseToken(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	t.Run("AccessTokenRejectedAsRefreshToken", func(t *testing.T) {
		_, err := f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
			GrantType:    GrantTypeRefreshToken,
			RefreshToken: initial.AccessToken,
		})
		assert.ErrorIs(t, err, serrors.ErrTokenInvalid)
	})

	t.Run("TamperedTokenRejected", func(t *testing.T) {
		_, err := f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
			GrantType:    GrantTypeRefreshToken,
			RefreshToken: initial.RefreshToken + "x",
		})
		assert.ErrorIs(t, err, serrors.ErrTokenSignatureInvalid)
	})

	t.Run("RevokedRefreshTokenRejected", func(t *testing.T) {
		require.NoError(t, f.jwtService.Revoke(ctx, refreshed.RefreshToken))

		_, err := f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
			GrantType:    GrantTypeRefreshToken,
			RefreshToken: refreshed.RefreshToken,
		})
		assert.ErrorIs(t, err, serrors.ErrTokenRevoked)
	})
}

func TestTokenService_RefreshClientMismatch(t *testing.T) {
	ctx := context.Background()
	f := newTokenServiceFixture(t)

	// A refresh token minted for a different client.
	foreign, err := f.jwtService.Mint("user-1", "other-app", "openid", TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	_, err = f.tokenService.Exchange(ctx, "web-app", "client-secret", &TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		RefreshToken: foreign,
	})
	assert.ErrorIs(t, err, serrors.ErrInvalidClient)
}

func TestTokenService_PublicClientSkipsSecret(t *testing.T) {
	ctx := context.Background()
	f := newTokenServiceFixture(t)

	public := &domain.Client{
		ID:                "spa-app",
		RedirectURIs:      []string{"https://spa.example.com/cb"},
		AllowedScopes:     []string{"openid"},
		TokenEndpointAuth: "none",
		RequirePKCE:       true,
	}
	clientRepo := memory.NewInMemoryClientRepository()
	require.NoError(t, clientRepo.CreateClient(ctx, public))

	svc := NewTokenService(clientRepo, memory.NewInMemoryUserRepository(),
		f.codeService, f.jwtService, auth.NewBcryptPasswordHasher(4))

	_, err := svc.Exchange(ctx, "spa-app", "", &TokenRequest{GrantType: "password"})
	// Grant dispatch is reached without client credentials.
	assert.ErrorIs(t, err, serrors.ErrInvalidGrantType)
}
