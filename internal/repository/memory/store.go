// Package memory keeps users and their session slots in process memory.
// It serves local development (STORE_DRIVER=memory) and tests; data does
// not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository"
	"github.com/google/uuid"
)

var (
	_ repository.UserRepository    = (*Store)(nil)
	_ repository.SessionRepository = (*Store)(nil)
)

type Store struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*domain.User
	byEmail map[string]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		users:   make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *Store) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return domain.ErrEmailTaken
	}
	s.users[user.ID] = clone(user)
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(s.users[id]), nil
}

func (s *Store) UpdateProfile(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if owner, taken := s.byEmail[user.Email]; taken && owner != user.ID {
		return domain.ErrEmailTaken
	}

	delete(s.byEmail, u.Email)
	s.byEmail[user.Email] = u.ID
	u.FirstName = user.FirstName
	u.LastName = user.LastName
	u.Email = user.Email
	u.PhoneNumber = user.PhoneNumber
	u.UpdatedAt = user.UpdatedAt
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) GetByRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok || u.RefreshTokenHash == nil || *u.RefreshTokenHash != tokenHash {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *Store) Save(_ context.Context, userID uuid.UUID, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	hash, expires, at := session.RefreshTokenHash, session.TokenExpiresAt, session.LoginAt
	u.RefreshTokenHash = &hash
	u.TokenExpiresAt = &expires
	u.RememberMe = session.RememberMe
	u.LastTokenRefresh = &at
	u.LastLoginAt = &at
	u.UpdatedAt = at
	return nil
}

func (s *Store) Rotate(_ context.Context, userID uuid.UUID, expectedHash string, rotation domain.Rotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.RefreshTokenHash == nil || *u.RefreshTokenHash != expectedHash ||
		u.TokenExpiresAt == nil || !u.TokenExpiresAt.After(rotation.RefreshedAt) {
		return domain.ErrSessionConflict
	}

	hash, expires, at := rotation.RefreshTokenHash, rotation.TokenExpiresAt, rotation.RefreshedAt
	u.RefreshTokenHash = &hash
	u.TokenExpiresAt = &expires
	u.LastTokenRefresh = &at
	u.UpdatedAt = at
	return nil
}

func (s *Store) Clear(_ context.Context, userID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	u.RefreshTokenHash = nil
	u.TokenExpiresAt = nil
	u.LastTokenRefresh = &at
	u.UpdatedAt = at
	return nil
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.RefreshTokenHash = clonePtr(u.RefreshTokenHash)
	c.TokenExpiresAt = clonePtr(u.TokenExpiresAt)
	c.LastTokenRefresh = clonePtr(u.LastTokenRefresh)
	c.LastLoginAt = clonePtr(u.LastLoginAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
