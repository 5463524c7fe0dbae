package ports

import (
	"context"
	"time"

	"github.com/forgeboard/authkit/internal/domain"
)

// UserRepository defines persistence for account records.
type UserRepository interface {
	// Create inserts the user. Returns domain/errors.ErrUserExists when the
	// normalized email is already taken.
	Create(ctx context.Context, user *domain.User) error
	// GetByEmail looks up by normalized email. Returns (nil, nil) on absence.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByID returns (nil, nil) on absence.
	GetByID(ctx context.Context, userID domain.UserID) (*domain.User, error)
	// UpdateProfile overwrites only the fields present in the update.
	UpdateProfile(ctx context.Context, userID domain.UserID, update domain.ProfileUpdate) error
	// UpdatePassword replaces the stored hash.
	UpdatePassword(ctx context.Context, userID domain.UserID, passwordHash string) error
}

// SessionRepository defines persistence for bearer sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	// GetByID enforces expiry lazily: an expired session is deleted as a side
	// effect and (nil, nil) is returned.
	GetByID(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error)
	// Refresh sets the expiry to the given instant and returns the updated
	// session, or (nil, nil) when the session is absent or already expired.
	Refresh(ctx context.Context, sessionID domain.SessionID, expiresAt time.Time) (*domain.Session, error)
	Delete(ctx context.Context, sessionID domain.SessionID) error
	DeleteAllForUser(ctx context.Context, userID domain.UserID) error
	// DeleteExpired bulk-deletes sessions past their expiry and returns the
	// count. Intended to run on a schedule external to the stores.
	DeleteExpired(ctx context.Context) (int64, error)
}

// APIKeyRepository defines persistence for hashed bearer API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, keyID domain.APIKeyID) (*domain.APIKey, error)
	// ListByPrefix returns all keys sharing the non-secret token prefix. The
	// prefix bounds the candidate set for validation; it is not a security
	// boundary.
	ListByPrefix(ctx context.Context, prefix string) ([]*domain.APIKey, error)
	// TouchLastUsed records a successful validation.
	TouchLastUsed(ctx context.Context, keyID domain.APIKeyID, usedAt time.Time) error
	Delete(ctx context.Context, keyID domain.APIKeyID) error
	ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.APIKey, error)
	ListByOrg(ctx context.Context, orgID domain.OrgID, limit, offset int) ([]*domain.APIKey, int64, error)
	GetByResource(ctx context.Context, resourceType domain.ResourceType, resourceID string) (*domain.APIKey, error)
}

// OrganizationRepository defines persistence for organizations and
// memberships.
type OrganizationRepository interface {
	// Create inserts the organization and the creator's Owner membership in a
	// single atomic operation.
	Create(ctx context.Context, org *domain.Organization, owner domain.UserID) error
	GetByID(ctx context.Context, orgID domain.OrgID) (*domain.Organization, error)
	// UpsertMember inserts or replaces the membership keyed by (user, org).
	// Implementations recompute permissions from the role; the Permissions
	// field of the argument is ignored.
	UpsertMember(ctx context.Context, member *domain.Membership) error
	RemoveMember(ctx context.Context, userID domain.UserID, orgID domain.OrgID) error
	GetMember(ctx context.Context, userID domain.UserID, orgID domain.OrgID) (*domain.Membership, error)
	// ListForUser returns the user's memberships ordered by joined_at
	// descending, most recent first.
	ListForUser(ctx context.Context, userID domain.UserID) ([]*domain.Membership, error)
	// ListMembers pages through an organization's memberships and returns the
	// total count alongside.
	ListMembers(ctx context.Context, orgID domain.OrgID, limit, offset int) ([]*domain.Membership, int64, error)
}
