package domain

import (
	"errors"
	"time"
)

// ErrPendingAuthorizationNotFound is returned by pending authorization
// stores when no live entry exists for the given id.
var ErrPendingAuthorizationNotFound = errors.New("pending authorization not found")

// PendingAuthorization holds a validated authorization request while it
// waits for the user's consent decision. Exactly one entry exists per
// authorization ID; the entry is deleted on consent, denial or TTL expiry.
type PendingAuthorization struct {
	ID                  string    `json:"authorization_id"`
	ClientID            string    `json:"client_id"`
	ClientName          string    `json:"client_name"`
	UserID              string    `json:"user_id"`
	RequestedScopes     []string  `json:"requested_scopes"`
	RedirectURI         string    `json:"redirect_uri"`
	State               string    `json:"state,omitempty"`
	Nonce               string    `json:"nonce,omitempty"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
}
