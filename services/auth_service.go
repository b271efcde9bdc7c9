package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edustack/authserver/domain"
	serrors "github.com/edustack/authserver/errors"
	"github.com/edustack/authserver/internal/auth"
)

const (
	// maxFailedLoginAttempts locks the account on the fifth failure.
	maxFailedLoginAttempts = 5
	// accountLockDuration is how long a locked account stays locked.
	accountLockDuration = 30 * time.Minute
)

// AuthService verifies resource owner credentials and enforces the login
// lockout policy. Attempt state is persisted on every outcome so restarts
// and other instances see it.
type AuthService struct {
	userRepo domain.UserRepository
	hasher   auth.PasswordHasher

	now func() time.Time
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(userRepo domain.UserRepository, hasher auth.PasswordHasher) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		now:      time.Now,
	}
}

// Authenticate verifies username and password. On success the failure
// counter resets and the login time and IP are recorded. Lock expiry is
// lazy: a login attempt after the lock window clears the lock in place.
func (s *AuthService) Authenticate(ctx context.Context, username, password, ip string) (*domain.User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, serrors.ErrUserNotFound) {
			// Same error as a bad password, usernames are not probeable.
			return nil, serrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.AccountLocked {
		if user.LockedAt != nil && s.now().Sub(*user.LockedAt) >= accountLockDuration {
			user.AccountLocked = false
			user.LockedAt = nil
			user.FailedLoginAttempts = 0
			if err := s.userRepo.UpdateUser(ctx, user); err != nil {
				return nil, err
			}
		} else {
			log.Warn().Str("username", username).Msg("Login attempt on locked account")
			return nil, serrors.ErrAccountLocked
		}
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= maxFailedLoginAttempts {
			now := s.now()
			user.AccountLocked = true
			user.LockedAt = &now
			log.Warn().Str("username", username).
				Int("failed_attempts", user.FailedLoginAttempts).
				Msg("Account locked after repeated failed logins")
		}
		if updateErr := s.userRepo.UpdateUser(ctx, user); updateErr != nil {
			return nil, updateErr
		}
		if user.AccountLocked {
			return nil, serrors.ErrAccountLocked
		}
		return nil, serrors.ErrInvalidCredentials
	}

	now := s.now()
	user.FailedLoginAttempts = 0
	user.LastLoginAt = &now
	user.LastLoginIP = ip
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Debug().Str("username", username).Msg("User authenticated")

	return user, nil
}
