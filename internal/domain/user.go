package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserID is a value object for user identity.
type UserID struct{ uuid.UUID }

// NewUserID creates a new UserID from uuid.
func NewUserID(id uuid.UUID) UserID { return UserID{UUID: id} }

// ParseUserID parses the canonical string form.
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID{UUID: id}, nil
}

// String returns the canonical string form.
func (u UserID) String() string { return u.UUID.String() }

// User is an account record. Accounts are never hard-deleted by this core.
type User struct {
	ID            UserID
	Email         string
	PasswordHash  string
	FirstName     *string
	LastName      *string
	Username      *string
	PictureURL    *string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProfileUpdate carries optional profile mutations. A nil field is left
// untouched; presence is per-field, not "falsy means skip".
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Username   *string
	PictureURL *string
}

// NormalizeEmail trims and lowercases an email address. All lookups and
// uniqueness checks run on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
