package domain

import (
	"context"
	"errors"
	"time"
)

// Storage-level sentinels for code consumption. The service layer translates
// them into the client-facing taxonomy.
var (
	ErrAuthCodeNotFound = errors.New("authorization code not found")
	ErrAuthCodeConsumed = errors.New("authorization code already consumed")
)

// AuthCode represents a one-time OAuth 2.0 authorization code.
type AuthCode struct {
	Code        string    `bson:"code" json:"code"`
	ClientID    string    `bson:"client_id" json:"client_id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	RedirectURI string    `bson:"redirect_uri" json:"redirect_uri"`
	Scope       string    `bson:"scope" json:"scope"` // space-delimited
	ExpiresAt   time.Time `bson:"expires_at" json:"expires_at"`
	Used        bool      `bson:"used" json:"used"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`

	CodeChallenge       string `bson:"code_challenge,omitempty" json:"code_challenge,omitempty"`
	CodeChallengeMethod string `bson:"code_challenge_method,omitempty" json:"code_challenge_method,omitempty"`

	// Nonce from the authorization request, echoed into the ID token.
	Nonce string `bson:"nonce,omitempty" json:"nonce,omitempty"`
}

// AuthCodeRepository persists authorization codes. ConsumeAuthCode is the
// single place the at-most-once redemption guarantee lives: it must flip
// used from false to true atomically and return the record, so two
// concurrent redemptions of the same code can never both succeed.
type AuthCodeRepository interface {
	SaveAuthCode(ctx context.Context, code *AuthCode) error
	GetAuthCode(ctx context.Context, code string) (*AuthCode, error)
	// ConsumeAuthCode atomically marks the code as used. Returns
	// ErrAuthCodeNotFound when no record exists and ErrAuthCodeConsumed
	// when the record exists but used was already true.
	ConsumeAuthCode(ctx context.Context, code string) (*AuthCode, error)
	DeleteExpiredAuthCodes(ctx context.Context) error
}
