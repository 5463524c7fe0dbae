package memory

import (
	"context"
	"sync"
	"time"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
	domerrors "github.com/forgeboard/authkit/internal/domain/errors"
)

// UserStore is an in-memory ports.UserRepository suitable for tests and
// single-instance dev deployments.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[domain.UserID]*domain.User
	byEmail map[string]domain.UserID
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[domain.UserID]*domain.User),
		byEmail: make(map[string]domain.UserID),
	}
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := domain.NormalizeEmail(user.Email)
	if _, exists := s.byEmail[email]; exists {
		return domerrors.ErrUserExists
	}
	u := *user
	u.Email = email
	s.byID[u.ID] = &u
	s.byEmail[email] = u.ID
	return nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return copyUser(s.byID[id]), nil
}

func (s *UserStore) GetByID(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, userID domain.UserID, update domain.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return domerrors.ErrUserNotFound
	}
	if update.FirstName != nil {
		u.FirstName = update.FirstName
	}
	if update.LastName != nil {
		u.LastName = update.LastName
	}
	if update.Username != nil {
		u.Username = update.Username
	}
	if update.PictureURL != nil {
		u.PictureURL = update.PictureURL
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, userID domain.UserID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return domerrors.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

var _ ports.UserRepository = (*UserStore)(nil)
