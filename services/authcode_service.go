package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edustack/authserver/domain"
	serrors "github.com/edustack/authserver/errors"
)

// authCodeTTL bounds how long an issued code stays redeemable.
const authCodeTTL = 10 * time.Minute

// authCodeBytes of entropy per code, 43 characters once encoded.
const authCodeBytes = 32

// AuthCodeService issues and redeems one-time authorization codes.
type AuthCodeService struct {
	codeRepo domain.AuthCodeRepository

	now func() time.Time
}

// NewAuthCodeService creates a new AuthCodeService instance.
func NewAuthCodeService(codeRepo domain.AuthCodeRepository) *AuthCodeService {
	return &AuthCodeService{
		codeRepo: codeRepo,
		now:      time.Now,
	}
}

// Issue generates a fresh authorization code bound to the client, user,
// redirect URI, granted scope and PKCE challenge.
func (s *AuthCodeService) Issue(ctx context.Context, client *domain.Client, userID, redirectURI, scope, codeChallenge, codeChallengeMethod, nonce string) (*domain.AuthCode, error) {
	buf := make([]byte, authCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate authorization code: %w", err)
	}

	now := s.now()
	authCode := &domain.AuthCode{
		Code:                base64.RawURLEncoding.EncodeToString(buf),
		ClientID:            client.ID,
		UserID:              userID,
		RedirectURI:         redirectURI,
		Scope:               scope,
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
		Nonce:               nonce,
		ExpiresAt:           now.Add(authCodeTTL),
		CreatedAt:           now,
	}

	if err := s.codeRepo.SaveAuthCode(ctx, authCode); err != nil {
		return nil, err
	}

	log.Debug().Str("client_id", client.ID).Str("user_id", userID).
		Msg("Authorization code issued")

	return authCode, nil
}

// ValidateAndConsume redeems a code exactly once. Consumption happens first
// so a replayed or raced code is dead regardless of which validation would
// have failed afterwards.
func (s *AuthCodeService) ValidateAndConsume(ctx context.Context, code, clientID, redirectURI, codeVerifier string) (*domain.AuthCode, error) {
	authCode, err := s.codeRepo.ConsumeAuthCode(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAuthCodeNotFound):
			return nil, serrors.ErrInvalidAuthorizationCode
		case errors.Is(err, domain.ErrAuthCodeConsumed):
			log.Warn().Str("client_id", clientID).Msg("Authorization code replay detected")
			return nil, serrors.ErrAuthorizationCodeUsed
		default:
			return nil, err
		}
	}

	if s.now().After(authCode.ExpiresAt) {
		return nil, serrors.ErrAuthorizationCodeExpired
	}
	if authCode.ClientID != clientID {
		return nil, serrors.ErrInvalidClient
	}
	if authCode.RedirectURI != redirectURI {
		return nil, serrors.ErrRedirectURIInvalid
	}

	if authCode.CodeChallenge != "" {
		if codeVerifier == "" {
			return nil, serrors.ErrCodeVerifierRequired
		}
		if !VerifyCodeVerifier(codeVerifier, authCode.CodeChallenge, authCode.CodeChallengeMethod) {
			return nil, serrors.ErrInvalidCodeVerifier
		}
	}

	return authCode, nil
}
