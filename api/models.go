package api

// TokenResponse represents an OAuth 2.0 token response.
type TokenResponse struct {
	IDToken      string `json:"id_token,omitempty"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// AuthorizeResponse is returned by the authorization endpoint. Auto-approved
// requests carry the code directly; everything else points the caller at the
// consent step.
type AuthorizeResponse struct {
	// Populated when the client auto-approves.
	Code        string `json:"code,omitempty"`
	State       string `json:"state,omitempty"`
	RedirectURI string `json:"redirect_uri,omitempty"`

	// Populated when user consent is required.
	RequiresConsent bool     `json:"requires_consent"`
	AuthorizationID string   `json:"authorization_id,omitempty"`
	ClientName      string   `json:"client_name,omitempty"`
	RequestedScopes []string `json:"requested_scopes,omitempty"`
}

// ConsentResponse is returned after the user approves a pending
// authorization.
type ConsentResponse struct {
	Code        string `json:"code"`
	State       string `json:"state,omitempty"`
	RedirectURI string `json:"redirect_uri"`
}

// DenyResponse is returned after the user rejects a pending authorization,
// carrying what the caller needs to build the error redirect.
type DenyResponse struct {
	Error       string `json:"error"`
	State       string `json:"state,omitempty"`
	RedirectURI string `json:"redirect_uri"`
}

// IntrospectionResponse mirrors RFC 7662 §2.2.
type IntrospectionResponse struct {
	Active    bool   `json:"active"`
	ClientID  string `json:"client_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
