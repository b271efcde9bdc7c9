package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/edustack/authserver/api"
	"github.com/edustack/authserver/cache"
	"github.com/edustack/authserver/domain"
	serrors "github.com/edustack/authserver/errors"
)

// pendingAuthTTL bounds how long a consent decision can take.
const pendingAuthTTL = 10 * time.Minute

// AuthorizeRequest carries the query parameters of an authorization request.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizationService coordinates the authorization request and consent
// flow. Validated requests either short-circuit to a code for internal
// auto-approve clients or wait in the pending store for the user's decision.
type AuthorizationService struct {
	clientRepo  domain.ClientRepository
	pendingRepo cache.PendingAuthorizationStore
	codeService *AuthCodeService

	now func() time.Time
}

// NewAuthorizationService creates a new AuthorizationService instance.
func NewAuthorizationService(
	clientRepo domain.ClientRepository,
	pendingRepo cache.PendingAuthorizationStore,
	codeService *AuthCodeService,
) *AuthorizationService {
	return &AuthorizationService{
		clientRepo:  clientRepo,
		pendingRepo: pendingRepo,
		codeService: codeService,
		now:         time.Now,
	}
}

// CreateAuthorizationRequest validates an authorization request on behalf of
// the authenticated user. Every parameter is checked before any state is
// created, so an invalid request leaves no trace.
func (s *AuthorizationService) CreateAuthorizationRequest(ctx context.Context, req *AuthorizeRequest, userID string) (*api.AuthorizeResponse, error) {
	if req.ResponseType != "code" {
		return nil, serrors.ErrResponseTypeInvalid
	}
	if req.ClientID == "" || req.RedirectURI == "" {
		return nil, serrors.ErrParameterValidationFailed
	}

	client, err := s.clientRepo.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if !client.HasRedirectURI(req.RedirectURI) {
		return nil, serrors.ErrRedirectURIInvalid
	}

	scopes := strings.Fields(req.Scope)
	if !client.AllowsScopes(scopes) {
		return nil, serrors.ErrScopeInvalid
	}

	challengeMethod := req.CodeChallengeMethod
	if req.CodeChallenge != "" {
		// RFC 7636 §4.3: the method defaults to plain when omitted.
		if challengeMethod == "" {
			challengeMethod = CodeChallengeMethodPlain
		}
		if err := ValidateCodeChallenge(req.CodeChallenge, challengeMethod); err != nil {
			return nil, err
		}
	} else if client.RequirePKCE {
		return nil, serrors.ErrPKCERequired
	}

	if client.ConsentPolicy() == domain.AutoApprove {
		authCode, err := s.codeService.Issue(ctx, client, userID, req.RedirectURI,
			strings.Join(scopes, " "), req.CodeChallenge, challengeMethod, req.Nonce)
		if err != nil {
			return nil, err
		}

		log.Debug().Str("client_id", client.ID).Msg("Authorization auto-approved for internal client")

		return &api.AuthorizeResponse{
			Code:        authCode.Code,
			State:       req.State,
			RedirectURI: req.RedirectURI,
		}, nil
	}

	now := s.now()
	pending := &domain.PendingAuthorization{
		ID:                  uuid.NewString(),
		ClientID:            client.ID,
		ClientName:          client.Name,
		UserID:              userID,
		RequestedScopes:     scopes,
		RedirectURI:         req.RedirectURI,
		State:               req.State,
		Nonce:               req.Nonce,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: challengeMethod,
		CreatedAt:           now,
		ExpiresAt:           now.Add(pendingAuthTTL),
	}
	if err := s.pendingRepo.Save(ctx, pending); err != nil {
		return nil, err
	}

	log.Debug().Str("client_id", client.ID).Str("authorization_id", pending.ID).
		Msg("Authorization request pending user consent")

	return &api.AuthorizeResponse{
		RequiresConsent: true,
		AuthorizationID: pending.ID,
		ClientName:      client.Name,
		RequestedScopes: scopes,
	}, nil
}

// Consent approves a pending authorization with the scopes the user granted
// and issues the code. The pending entry is deleted before issuance, so a
// repeated consent for the same id fails with not found.
func (s *AuthorizationService) Consent(ctx context.Context, authorizationID string, approvedScopes []string, userID string) (*api.ConsentResponse, error) {
	pending, err := s.lookupPending(ctx, authorizationID, userID)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(pending.RequestedScopes))
	for _, scope := range pending.RequestedScopes {
		requested[scope] = true
	}
	for _, scope := range approvedScopes {
		if !requested[scope] {
			return nil, serrors.ErrInvalidApprovedScopes
		}
	}

	if err := s.pendingRepo.Delete(ctx, authorizationID); err != nil {
		return nil, err
	}

	client, err := s.clientRepo.GetClient(ctx, pending.ClientID)
	if err != nil {
		return nil, err
	}

	authCode, err := s.codeService.Issue(ctx, client, pending.UserID, pending.RedirectURI,
		strings.Join(approvedScopes, " "), pending.CodeChallenge, pending.CodeChallengeMethod, pending.Nonce)
	if err != nil {
		return nil, err
	}

	log.Info().Str("client_id", pending.ClientID).Str("user_id", pending.UserID).
		Msg("User consent granted")

	return &api.ConsentResponse{
		Code:        authCode.Code,
		State:       pending.State,
		RedirectURI: pending.RedirectURI,
	}, nil
}

// Deny rejects a pending authorization and removes it, returning what the
// caller needs to redirect with error=access_denied.
func (s *AuthorizationService) Deny(ctx context.Context, authorizationID, userID string) (*api.DenyResponse, error) {
	pending, err := s.lookupPending(ctx, authorizationID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.pendingRepo.Delete(ctx, authorizationID); err != nil {
		return nil, err
	}

	log.Info().Str("client_id", pending.ClientID).Str("user_id", pending.UserID).
		Msg("User consent denied")

	return &api.DenyResponse{
		Error:       "access_denied",
		State:       pending.State,
		RedirectURI: pending.RedirectURI,
	}, nil
}

func (s *AuthorizationService) lookupPending(ctx context.Context, authorizationID, userID string) (*domain.PendingAuthorization, error) {
	pending, err := s.pendingRepo.Get(ctx, authorizationID)
	if err != nil {
		return nil, serrors.ErrAuthorizationRequestNotFound
	}
	if s.now().After(pending.ExpiresAt) {
		return nil, serrors.ErrAuthorizationRequestNotFound
	}
	if pending.UserID != userID {
		return nil, serrors.ErrUnauthorized
	}
	return pending, nil
}
