package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edustack/authserver/api"
	"github.com/edustack/authserver/domain"
	serrors "github.com/edustack/authserver/errors"
	"github.com/edustack/authserver/internal/auth"
)

const (
	// GrantTypeAuthorizationCode exchanges a one-time code for tokens.
	GrantTypeAuthorizationCode = "authorization_code"
	// GrantTypeRefreshToken exchanges a refresh token for a fresh pair.
	GrantTypeRefreshToken = "refresh_token"

	defaultAccessTokenTTL  = time.Hour
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenRequest carries the form parameters of a token request.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
}

// TokenService authenticates clients and dispatches token grants.
type TokenService struct {
	clientRepo  domain.ClientRepository
	userRepo    domain.UserRepository
	codeService *AuthCodeService
	jwtService  *JWTService
	hasher      auth.PasswordHasher
}

// NewTokenService creates a new TokenService instance.
func NewTokenService(
	clientRepo domain.ClientRepository,
	userRepo domain.UserRepository,
	codeService *AuthCodeService,
	jwtService *JWTService,
	hasher auth.PasswordHasher,
) *TokenService {
	return &TokenService{
		clientRepo:  clientRepo,
		userRepo:    userRepo,
		codeService: codeService,
		jwtService:  jwtService,
		hasher:      hasher,
	}
}

// Exchange authenticates the client and runs the requested grant.
func (s *TokenService) Exchange(ctx context.Context, clientID, clientSecret string, req *TokenRequest) (*api.TokenResponse, error) {
	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	switch req.GrantType {
	case GrantTypeAuthorizationCode:
		return s.exchangeAuthorizationCode(ctx, client, req)
	case GrantTypeRefreshToken:
		return s.exchangeRefreshToken(ctx, client, req)
	default:
		return nil, serrors.ErrInvalidGrantType
	}
}

// AuthenticateClient verifies client credentials without running a grant.
// Introspection and revocation use it to gate their endpoints.
func (s *TokenService) AuthenticateClient(ctx context.Context, clientID, clientSecret string) error {
	_, err := s.authenticateClient(ctx, clientID, clientSecret)
	return err
}

// authenticateClient verifies the client secret against the stored bcrypt
// hash. Public clients registered with token_endpoint_auth_method "none"
// skip the secret check and rely on PKCE.
func (s *TokenService) authenticateClient(ctx context.Context, clientID, clientSecret string) (*domain.Client, error) {
	if clientID == "" {
		return nil, serrors.ErrInvalidClientCredentials
	}

	client, err := s.clientRepo.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, serrors.ErrClientNotFound) {
			return nil, serrors.ErrInvalidClientCredentials
		}
		return nil, err
	}

	if client.TokenEndpointAuth == "none" {
		return client, nil
	}
	if err := s.hasher.Verify(client.SecretHash, clientSecret); err != nil {
		log.Warn().Str("client_id", clientID).Msg("Client authentication failed")
		return nil, serrors.ErrInvalidClientCredentials
	}
	return client, nil
}

func (s *TokenService) exchangeAuthorizationCode(ctx context.Context, client *domain.Client, req *TokenRequest) (*api.TokenResponse, error) {
	if req.Code == "" || req.RedirectURI == "" {
		return nil, serrors.ErrParameterValidationFailed
	}

	authCode, err := s.codeService.ValidateAndConsume(ctx, req.Code, client.ID, req.RedirectURI, req.CodeVerifier)
	if err != nil {
		return nil, err
	}

	resp, err := s.mintPair(client, authCode.UserID, authCode.Scope)
	if err != nil {
		return nil, err
	}

	if hasScope(authCode.Scope, "openid") {
		user, err := s.userRepo.GetUserByID(ctx, authCode.UserID)
		if err != nil {
			return nil, err
		}
		idToken, err := s.jwtService.MintIDToken(user, client.ID, authCode.Nonce, s.accessTokenTTL(client))
		if err != nil {
			return nil, err
		}
		resp.IDToken = idToken
	}

	log.Info().Str("client_id", client.ID).Str("user_id", authCode.UserID).
		Msg("Tokens issued for authorization code")

	return resp, nil
}

func (s *TokenService) exchangeRefreshToken(ctx context.Context, client *domain.Client, req *TokenRequest) (*api.TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, serrors.ErrParameterValidationFailed
	}

	claims, err := s.jwtService.ParseToken(ctx, req.RefreshToken)
	if err != nil {
		var authErr *serrors.AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}
		return nil, serrors.ErrTokenInvalid
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, serrors.ErrTokenInvalid
	}
	if claims.ClientID != client.ID {
		return nil, serrors.ErrInvalidClient
	}

	resp, err := s.mintPair(client, claims.UserID, claims.Scope)
	if err != nil {
		return nil, err
	}

	log.Info().Str("client_id", client.ID).Str("user_id", claims.UserID).
		Msg("Tokens refreshed")

	return resp, nil
}

func (s *TokenService) mintPair(client *domain.Client, userID, scope string) (*api.TokenResponse, error) {
	accessTTL := s.accessTokenTTL(client)

	accessToken, err := s.jwtService.Mint(userID, client.ID, scope, TokenTypeAccess, accessTTL)
	if err != nil {
		return nil, err
	}

	refreshTTL := client.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}
	refreshToken, err := s.jwtService.Mint(userID, client.ID, scope, TokenTypeRefresh, refreshTTL)
	if err != nil {
		return nil, err
	}

	return &api.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(accessTTL.Seconds()),
		RefreshToken: refreshToken,
		Scope:        scope,
	}, nil
}

func (s *TokenService) accessTokenTTL(client *domain.Client) time.Duration {
	if client.AccessTokenTTL > 0 {
		return client.AccessTokenTTL
	}
	return defaultAccessTokenTTL
}

func hasScope(scope, want string) bool {
	for _, s := range strings.Fields(scope) {
		if s == want {
			return true
		}
	}
	return false
}
