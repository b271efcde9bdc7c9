// Package memory provides in-memory repository implementations used for
// development setups and tests. They honor the same contracts as the MongoDB
// repositories, including atomic code consumption.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/edustack/authserver/domain"
	"github.com/edustack/authserver/errors"
)

// InMemoryUserRepository stores users in memory.
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User // keyed by user ID
}

// NewInMemoryUserRepository creates a new InMemoryUserRepository.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]domain.User),
	}
}

// CreateUser adds a new user to the store.
func (s *InMemoryUserRepository) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

// GetUserByID retrieves a user by its ID.
func (s *InMemoryUserRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *InMemoryUserRepository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

// UpdateUser replaces an existing user record.
func (s *InMemoryUserRepository) UpdateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return errors.ErrUserNotFound
	}
	s.users[user.ID] = *user
	return nil
}

// InMemoryClientRepository stores registered clients in memory.
type InMemoryClientRepository struct {
	mu      sync.RWMutex
	clients map[string]domain.Client
}

// NewInMemoryClientRepository creates a new InMemoryClientRepository.
func NewInMemoryClientRepository() *InMemoryClientRepository {
	return &InMemoryClientRepository{
		clients: make(map[string]domain.Client),
	}
}

// CreateClient adds a new client to the store.
func (s *InMemoryClientRepository) CreateClient(_ context.Context, client *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.ID] = *client
	return nil
}

// GetClient retrieves a client by its client_id.
func (s *InMemoryClientRepository) GetClient(_ context.Context, clientID string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[clientID]
	if !ok {
		return nil, errors.ErrClientNotFound
	}
	return &client, nil
}

// InMemoryAuthCodeRepository stores authorization codes in memory. The
// consume path is a mutex guarded compare-and-set on the used flag.
type InMemoryAuthCodeRepository struct {
	mu    sync.Mutex
	codes map[string]*domain.AuthCode
}

// NewInMemoryAuthCodeRepository creates a new InMemoryAuthCodeRepository.
func NewInMemoryAuthCodeRepository() *InMemoryAuthCodeRepository {
	return &InMemoryAuthCodeRepository{
		codes: make(map[string]*domain.AuthCode),
	}
}

// SaveAuthCode adds a new authorization code record.
func (s *InMemoryAuthCodeRepository) SaveAuthCode(_ context.Context, code *domain.AuthCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *code
	s.codes[code.Code] = &c
	return nil
}

// GetAuthCode retrieves an authorization code record without consuming it.
func (s *InMemoryAuthCodeRepository) GetAuthCode(_ context.Context, code string) (*domain.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.codes[code]
	if !ok {
		return nil, domain.ErrAuthCodeNotFound
	}
	c := *record
	return &c, nil
}

// ConsumeAuthCode flips used from false to true under the lock. Exactly one
// of any number of concurrent callers observes used=false.
func (s *InMemoryAuthCodeRepository) ConsumeAuthCode(_ context.Context, code string) (*domain.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.codes[code]
	if !ok {
		return nil, domain.ErrAuthCodeNotFound
	}
	if record.Used {
		return nil, domain.ErrAuthCodeConsumed
	}
	record.Used = true
	c := *record
	return &c, nil
}

// DeleteExpiredAuthCodes removes codes past their expiry.
func (s *InMemoryAuthCodeRepository) DeleteExpiredAuthCodes(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for code, record := range s.codes {
		if now.After(record.ExpiresAt) {
			delete(s.codes, code)
		}
	}
	return nil
}

var (
	_ domain.UserRepository     = (*InMemoryUserRepository)(nil)
	_ domain.ClientRepository   = (*InMemoryClientRepository)(nil)
	_ domain.AuthCodeRepository = (*InMemoryAuthCodeRepository)(nil)
)
