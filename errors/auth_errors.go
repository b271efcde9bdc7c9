package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError is a classified domain failure. Code is a stable machine-readable
// identifier and Status the HTTP status it maps to at the API boundary.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is makes errors.Is match two AuthErrors by code, so sentinel values below
// can be compared against wrapped copies.
func (e *AuthError) Is(target error) bool {
	var other *AuthError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// WithMessage returns a copy of the error carrying a more specific message.
// The code and status stay stable so callers can still match on the sentinel.
func (e *AuthError) WithMessage(msg string) *AuthError {
	return &AuthError{Code: e.Code, Message: msg, Status: e.Status}
}

func newAuthError(code, message string, status int) *AuthError {
	return &AuthError{Code: code, Message: message, Status: status}
}

// Sentinel errors forming the full taxonomy. Handlers map these to
// {code, message} JSON payloads; raw library errors never reach clients.
var (
	ErrParameterValidationFailed = newAuthError("PARAMETER_VALIDATION_FAILED", "required parameter is missing or malformed", http.StatusBadRequest)
	ErrInvalidCredentials        = newAuthError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized)
	ErrAccountLocked             = newAuthError("ACCOUNT_LOCKED", "account is locked due to repeated failed logins", http.StatusUnauthorized)
	ErrUserNotFound              = newAuthError("USER_NOT_FOUND", "user not found", http.StatusNotFound)
	ErrUnauthorized              = newAuthError("UNAUTHORIZED", "authentication required", http.StatusUnauthorized)

	ErrClientNotFound           = newAuthError("CLIENT_NOT_FOUND", "client not found", http.StatusNotFound)
	ErrInvalidClient            = newAuthError("INVALID_CLIENT", "client does not match the authorization", http.StatusBadRequest)
	ErrInvalidClientCredentials = newAuthError("INVALID_CLIENT_CREDENTIALS", "invalid client credentials", http.StatusUnauthorized)

	ErrResponseTypeInvalid          = newAuthError("RESPONSE_TYPE_INVALID", "response_type must be \"code\"", http.StatusBadRequest)
	ErrScopeInvalid                 = newAuthError("SCOPE_INVALID", "requested scope exceeds the scopes allowed for this client", http.StatusBadRequest)
	ErrRedirectURIInvalid           = newAuthError("REDIRECT_URI_INVALID", "redirect_uri is not registered for this client", http.StatusBadRequest)
	ErrAuthorizationRequestNotFound = newAuthError("AUTHORIZATION_REQUEST_NOT_FOUND", "authorization request not found or expired", http.StatusNotFound)
	ErrInvalidApprovedScopes        = newAuthError("INVALID_APPROVED_SCOPES", "approved scopes exceed the scopes allowed for this client", http.StatusBadRequest)

	ErrPKCERequired               = newAuthError("PKCE_REQUIRED", "code_challenge is required for this client", http.StatusBadRequest)
	ErrInvalidCodeChallenge       = newAuthError("INVALID_CODE_CHALLENGE", "code_challenge is malformed", http.StatusBadRequest)
	ErrInvalidCodeChallengeMethod = newAuthError("INVALID_CODE_CHALLENGE_METHOD", "code_challenge_method must be \"plain\" or \"S256\"", http.StatusBadRequest)
	ErrCodeVerifierRequired       = newAuthError("CODE_VERIFIER_REQUIRED", "code_verifier is required", http.StatusBadRequest)
	ErrInvalidCodeVerifier        = newAuthError("INVALID_CODE_VERIFIER", "code_verifier validation failed", http.StatusBadRequest)

	ErrInvalidAuthorizationCode = newAuthError("INVALID_AUTHORIZATION_CODE", "authorization code is invalid", http.StatusBadRequest)
	ErrAuthorizationCodeUsed    = newAuthError("AUTHORIZATION_CODE_USED", "authorization code has already been used", http.StatusBadRequest)
	ErrAuthorizationCodeExpired = newAuthError("AUTHORIZATION_CODE_EXPIRED", "authorization code has expired", http.StatusBadRequest)

	ErrInvalidGrantType = newAuthError("INVALID_GRANT_TYPE", "unsupported grant_type", http.StatusBadRequest)

	ErrTokenExpired          = newAuthError("TOKEN_EXPIRED", "token has expired", http.StatusUnauthorized)
	ErrTokenSignatureInvalid = newAuthError("TOKEN_SIGNATURE_INVALID", "token signature verification failed", http.StatusUnauthorized)
	ErrTokenUnsupported      = newAuthError("TOKEN_UNSUPPORTED", "token format is not supported", http.StatusUnauthorized)
	ErrTokenRevoked          = newAuthError("TOKEN_REVOKED", "token has been revoked", http.StatusUnauthorized)
	ErrTokenInvalid          = newAuthError("TOKEN_INVALID", "token is invalid", http.StatusUnauthorized)

	ErrServerError = newAuthError("SERVER_ERROR", "internal server error", http.StatusInternalServerError)
)

// AsAuthError extracts an *AuthError from err, or wraps it as a SERVER_ERROR
// with a generic message when it is not part of the taxonomy.
func AsAuthError(err error) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	return ErrServerError
}
