package memory

import (
	"context"
	"sync"
	"time"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
)

// SessionStore is an in-memory ports.SessionRepository. Expiry is enforced
// lazily on read and in bulk via DeleteExpired, mirroring the persistent
// stores.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[domain.SessionID]*domain.Session)}
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *session
	s.sessions[c.ID] = &c
	return nil
}

func (s *SessionStore) GetByID(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if sess.Expired(time.Now()) {
		delete(s.sessions, sessionID)
		return nil, nil
	}
	c := *sess
	return &c, nil
}

func (s *SessionStore) Refresh(ctx context.Context, sessionID domain.SessionID, expiresAt time.Time) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if sess.Expired(time.Now()) {
		delete(s.sessions, sessionID)
		return nil, nil
	}
	sess.ExpiresAt = expiresAt
	c := *sess
	return &c, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var count int64
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// Len reports the number of stored sessions, expired or not. Test helper.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ ports.SessionRepository = (*SessionStore)(nil)
