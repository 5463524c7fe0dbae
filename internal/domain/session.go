package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionID is a value object for session identity. Its string form is the
// bearer value the client carries in the session cookie.
type SessionID struct{ uuid.UUID }

// NewSessionID creates a new SessionID from uuid.
func NewSessionID(id uuid.UUID) SessionID { return SessionID{UUID: id} }

// ParseSessionID parses the canonical string form.
func ParseSessionID(s string) (SessionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID{UUID: id}, nil
}

// String returns the canonical string form.
func (s SessionID) String() string { return s.UUID.String() }

// Session is a short-lived bearer credential bound to a user. Expiry is
// enforced lazily at read time and in bulk by a periodic sweep; refresh
// pushes the expiry forward for sliding-window behavior.
type Session struct {
	ID        SessionID
	UserID    UserID
	ExpiresAt time.Time
	CreatedAt time.Time
	UserAgent string
	IP        string
}

// Expired reports whether the session's TTL has passed at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
