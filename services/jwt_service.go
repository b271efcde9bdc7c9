package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/edustack/authserver/cache"
	"github.com/edustack/authserver/domain"
	serrors "github.com/edustack/authserver/errors"
)

// Token type discriminators carried in the "type" claim.
const (
	TokenTypeAccess  = "access_token"
	TokenTypeRefresh = "refresh_token"
	TokenTypeID      = "id_token"
)

// TokenClaims is the JWT claim set for all tokens minted here. ID tokens
// additionally carry OIDC profile claims.
type TokenClaims struct {
	UserID    string `json:"userId,omitempty"`
	ClientID  string `json:"clientId,omitempty"`
	Scope     string `json:"scope,omitempty"`
	TokenType string `json:"type,omitempty"`

	// OIDC profile claims, ID tokens only.
	PreferredUsername string `json:"preferred_username,omitempty"`
	GivenName         string `json:"given_name,omitempty"`
	FamilyName        string `json:"family_name,omitempty"`
	Email             string `json:"email,omitempty"`
	EmailVerified     bool   `json:"email_verified,omitempty"`
	Nonce             string `json:"nonce,omitempty"`

	jwt.RegisteredClaims
}

// JWTService mints, validates, introspects and revokes JWTs. Signing is
// HS256 with a shared secret from configuration. Revocation is a blacklist
// entry that lives as long as the token would have.
type JWTService struct {
	secret    []byte
	issuer    string
	blacklist cache.TokenBlacklist

	now func() time.Time
}

// NewJWTService creates a new JWTService instance.
func NewJWTService(secret, issuer string, blacklist cache.TokenBlacklist) *JWTService {
	return &JWTService{
		secret:    []byte(secret),
		issuer:    issuer,
		blacklist: blacklist,
		now:       time.Now,
	}
}

// Mint signs a token of the given type for the user and client.
func (s *JWTService) Mint(userID, clientID, scope, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &TokenClaims{
		UserID:    userID,
		ClientID:  clientID,
		Scope:     scope,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// MintIDToken signs an OIDC ID token carrying the user's profile claims and
// the nonce from the authorization request, when one was supplied.
func (s *JWTService) MintIDToken(user *domain.User, clientID, nonce string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &TokenClaims{
		UserID:            user.ID,
		ClientID:          clientID,
		TokenType:         TokenTypeID,
		PreferredUsername: user.PreferredUsername,
		GivenName:         user.GivenName,
		FamilyName:        user.FamilyName,
		Email:             user.Email,
		EmailVerified:     user.EmailVerified,
		Nonce:             nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign id token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token. The blacklist is consulted before the
// signature so revoked tokens fail regardless of their validity.
func (s *JWTService) ParseToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	revoked, err := s.blacklist.IsRevoked(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, serrors.ErrTokenRevoked
	}

	return s.parse(tokenString)
}

func (s *JWTService) parse(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, serrors.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, serrors.ErrTokenSignatureInvalid
		case errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, serrors.ErrTokenUnsupported
		default:
			return nil, serrors.ErrTokenInvalid
		}
	}
	return claims, nil
}

// Introspect reports token state per RFC 7662. Any failure, revocation
// included, yields active=false rather than an error. The type hint is
// advisory and ignored.
func (s *JWTService) Introspect(ctx context.Context, tokenString, _ string) *domain.TokenIntrospection {
	inactive := &domain.TokenIntrospection{Active: false}

	claims, err := s.ParseToken(ctx, tokenString)
	if err != nil {
		return inactive
	}

	result := &domain.TokenIntrospection{
		Active:    true,
		ClientID:  claims.ClientID,
		UserID:    claims.UserID,
		Scope:     claims.Scope,
		TokenType: claims.TokenType,
	}
	// ID tokens carry subject and audience instead of the flat claims.
	if result.UserID == "" {
		result.UserID = claims.Subject
	}
	if result.ClientID == "" && len(claims.Audience) > 0 {
		result.ClientID = claims.Audience[0]
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Unix()
	}
	return result
}

// Revoke blacklists a token for its remaining lifetime, per RFC 7009 always
// reporting success. Expired or unparseable tokens have nothing to revoke.
func (s *JWTService) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		log.Debug().Msg("Revocation of invalid or expired token ignored")
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if err := s.blacklist.Revoke(ctx, tokenString, ttl); err != nil {
		return err
	}

	log.Debug().Str("client_id", claims.ClientID).Str("type", claims.TokenType).
		Msg("Token revoked")

	return nil
}
