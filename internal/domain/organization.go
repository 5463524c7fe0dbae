package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrgID is a value object for organization identity.
type OrgID struct{ uuid.UUID }

// NewOrgID creates a new OrgID from uuid.
func NewOrgID(id uuid.UUID) OrgID { return OrgID{UUID: id} }

// ParseOrgID parses the canonical string form.
func ParseOrgID(s string) (OrgID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return OrgID{}, err
	}
	return OrgID{UUID: id}, nil
}

// String returns the canonical string form.
func (o OrgID) String() string { return o.UUID.String() }

// Organization groups users via memberships. Every new user gets a default
// personal organization at signup.
type Organization struct {
	ID        OrgID
	Name      string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership links a user to an organization. The (UserID, OrgID) pair is
// unique; a user holds at most one membership per organization.
//
// Permissions is denormalized from Role for fast authorization checks and is
// recomputed from the static role table on every write. It is never accepted
// as external input.
type Membership struct {
	UserID      UserID
	OrgID       OrgID
	Role        Role
	Permissions []string
	JoinedAt    time.Time
}
