package domain

import (
	"context"
	"time"
)

// User represents a resource owner. Login attempt state lives on the user
// record and is persisted on every authentication outcome.
type User struct {
	ID           string `bson:"_id,omitempty" json:"id"`
	Username     string `bson:"username" json:"username"`
	PasswordHash string `bson:"password_hash" json:"-"`
	Email        string `bson:"email,omitempty" json:"email,omitempty"`

	// OIDC profile claims surfaced in ID tokens.
	PreferredUsername string `bson:"preferred_username,omitempty" json:"preferred_username,omitempty"`
	GivenName         string `bson:"given_name,omitempty" json:"given_name,omitempty"`
	FamilyName        string `bson:"family_name,omitempty" json:"family_name,omitempty"`
	EmailVerified     bool   `bson:"email_verified" json:"email_verified"`

	FailedLoginAttempts int        `bson:"failed_login_attempts" json:"-"`
	AccountLocked       bool       `bson:"account_locked" json:"-"`
	LockedAt            *time.Time `bson:"locked_at,omitempty" json:"-"`
	LastLoginAt         *time.Time `bson:"last_login_at,omitempty" json:"-"`
	LastLoginIP         string     `bson:"last_login_ip,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UserRepository persists users and their login attempt state.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
}
