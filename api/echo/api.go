// Package echo exposes the OAuth2 authorization server over HTTP.
package echo

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/edustack/authserver/api"
	"github.com/edustack/authserver/errors"
	"github.com/edustack/authserver/services"
)

// HealthChecker reports backing store liveness for the health endpoint.
type HealthChecker func(ctx context.Context) error

// OAuth2API holds the handler dependencies.
type OAuth2API struct {
	authService  *services.AuthService
	authzService *services.AuthorizationService
	tokenService *services.TokenService
	jwtService   *services.JWTService
	health       HealthChecker
}

// NewOAuth2API initializes the OAuth2 API.
func NewOAuth2API(
	authService *services.AuthService,
	authzService *services.AuthorizationService,
	tokenService *services.TokenService,
	jwtService *services.JWTService,
	health HealthChecker,
) *OAuth2API {
	return &OAuth2API{
		authService:  authService,
		authzService: authzService,
		tokenService: tokenService,
		jwtService:   jwtService,
		health:       health,
	}
}

// RegisterRoutes registers the OAuth2 routes.
func (oa *OAuth2API) RegisterRoutes(e *echo.Echo) {
	authn := oa.RequireBearerToken()

	e.POST("/auth/login", oa.LoginHandler)
	e.GET("/oauth2/authorize", oa.AuthorizeHandler, authn)
	e.POST("/oauth2/authorize", oa.AuthorizeHandler, authn)
	e.POST("/oauth2/consent", oa.ConsentHandler, authn)
	e.POST("/oauth2/token", oa.TokenHandler)
	e.POST("/oauth2/introspect", oa.IntrospectHandler)
	e.POST("/oauth2/revoke", oa.RevokeHandler)
	e.GET("/healthz", oa.HealthzHandler)
}

// sessionTokenTTL is the lifetime of the first-party session token issued at
// login.
const sessionTokenTTL = time.Hour

// LoginHandler verifies the resource owner's credentials and issues the
// session access token used to call the authorize and consent endpoints.
func (oa *OAuth2API) LoginHandler(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return writeAuthError(c, errors.ErrParameterValidationFailed.WithMessage("username and password are required"))
	}

	user, err := oa.authService.Authenticate(c.Request().Context(), username, password, c.RealIP())
	if err != nil {
		return writeAuthError(c, err)
	}

	accessToken, err := oa.jwtService.Mint(user.ID, "", "", services.TokenTypeAccess, sessionTokenTTL)
	if err != nil {
		return writeAuthError(c, err)
	}

	log.Info().Str("username", username).Msg("User logged in")

	return c.JSON(http.StatusOK, api.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(sessionTokenTTL.Seconds()),
	})
}

// writeAuthError maps a service error onto the uniform error payload.
func writeAuthError(c echo.Context, err error) error {
	authErr := errors.AsAuthError(err)
	if authErr.Code == errors.ErrServerError.Code {
		log.Error().Err(err).Msg("Unexpected internal error")
	}
	return c.JSON(authErr.Status, api.ErrorResponse{
		Code:    authErr.Code,
		Message: authErr.Message,
	})
}

// param reads a request parameter from the form body with query fallback, so
// GET and POST variants of an endpoint share a handler.
func param(c echo.Context, name string) string {
	if v := c.FormValue(name); v != "" {
		return v
	}
	return c.QueryParam(name)
}

// AuthorizeHandler validates an authorization request for the authenticated
// user. Internal auto-approve clients get a code immediately; everyone else
// receives a pending authorization id for the consent step.
func (oa *OAuth2API) AuthorizeHandler(c echo.Context) error {
	req := &services.AuthorizeRequest{
		ResponseType:        param(c, "response_type"),
		ClientID:            param(c, "client_id"),
		RedirectURI:         param(c, "redirect_uri"),
		Scope:               param(c, "scope"),
		State:               param(c, "state"),
		Nonce:               param(c, "nonce"),
		CodeChallenge:       param(c, "code_challenge"),
		CodeChallengeMethod: param(c, "code_challenge_method"),
	}

	resp, err := oa.authzService.CreateAuthorizationRequest(c.Request().Context(), req, PrincipalUserID(c))
	if err != nil {
		return writeAuthError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ConsentHandler resolves a pending authorization. approve=true with the
// granted scopes issues the code; approve=false removes the request and
// reports access_denied.
func (oa *OAuth2API) ConsentHandler(c echo.Context) error {
	authorizationID := c.FormValue("authorization_id")
	if authorizationID == "" {
		return writeAuthError(c, errors.ErrParameterValidationFailed.WithMessage("authorization_id is required"))
	}

	ctx := c.Request().Context()
	userID := PrincipalUserID(c)

	if c.FormValue("approve") != "true" {
		resp, err := oa.authzService.Deny(ctx, authorizationID, userID)
		if err != nil {
			return writeAuthError(c, err)
		}
		return c.JSON(http.StatusOK, resp)
	}

	approvedScopes := strings.Fields(c.FormValue("approved_scopes"))
	resp, err := oa.authzService.Consent(ctx, authorizationID, approvedScopes, userID)
	if err != nil {
		return writeAuthError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// TokenHandler runs the token grant for an authenticated client. Client
// credentials arrive via HTTP Basic or the form body.
func (oa *OAuth2API) TokenHandler(c echo.Context) error {
	clientID, clientSecret := clientCredentials(c)

	req := &services.TokenRequest{
		GrantType:    c.FormValue("grant_type"),
		Code:         c.FormValue("code"),
		RedirectURI:  c.FormValue("redirect_uri"),
		CodeVerifier: c.FormValue("code_verifier"),
		RefreshToken: c.FormValue("refresh_token"),
	}

	resp, err := oa.tokenService.Exchange(c.Request().Context(), clientID, clientSecret, req)
	if err != nil {
		return writeAuthError(c, err)
	}

	log.Info().
		Str("client_id", clientID).
		Str("grant_type", req.GrantType).
		Int("expires_in", resp.ExpiresIn).
		Msg("Token issued")

	return c.JSON(http.StatusOK, resp)
}

// IntrospectHandler implements RFC 7662 token introspection. The endpoint
// requires client authentication; the introspection itself never fails, an
// unusable token is simply inactive.
func (oa *OAuth2API) IntrospectHandler(c echo.Context) error {
	if err := oa.authenticateClient(c); err != nil {
		return writeAuthError(c, err)
	}

	token := c.FormValue("token")
	if token == "" {
		return writeAuthError(c, errors.ErrParameterValidationFailed.WithMessage("token parameter is required"))
	}

	result := oa.jwtService.Introspect(c.Request().Context(), token, c.FormValue("token_type_hint"))

	return c.JSON(http.StatusOK, api.IntrospectionResponse{
		Active:    result.Active,
		ClientID:  result.ClientID,
		UserID:    result.UserID,
		Scope:     result.Scope,
		TokenType: result.TokenType,
		Exp:       result.ExpiresAt,
		Iat:       result.IssuedAt,
	})
}

// RevokeHandler implements RFC 7009 token revocation. Revocation reports
// success even for unknown or expired tokens.
func (oa *OAuth2API) RevokeHandler(c echo.Context) error {
	if err := oa.authenticateClient(c); err != nil {
		return writeAuthError(c, err)
	}

	token := c.FormValue("token")
	if token == "" {
		return writeAuthError(c, errors.ErrParameterValidationFailed.WithMessage("token parameter is required"))
	}

	if err := oa.jwtService.Revoke(c.Request().Context(), token); err != nil {
		log.Error().Err(err).Msg("Failed to revoke token")
		return writeAuthError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{})
}

// HealthzHandler probes the backing store.
func (oa *OAuth2API) HealthzHandler(c echo.Context) error {
	if oa.health != nil {
		if err := oa.health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// authenticateClient verifies the caller's client credentials against the
// registered client record.
func (oa *OAuth2API) authenticateClient(c echo.Context) error {
	clientID, clientSecret := clientCredentials(c)
	return oa.tokenService.AuthenticateClient(c.Request().Context(), clientID, clientSecret)
}

// clientCredentials extracts client credentials from HTTP Basic auth with a
// form body fallback.
func clientCredentials(c echo.Context) (string, string) {
	if id, secret, ok := c.Request().BasicAuth(); ok {
		return id, secret
	}
	return c.FormValue("client_id"), c.FormValue("client_secret")
}
