package ports

import (
	"context"
	"time"

	"github.com/forgeboard/authkit/internal/domain"
)

// SignupParams are the inputs for account creation.
type SignupParams struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
	Username  *string
}

// SignupResult is returned on successful signup: the user, their default
// personal organization, and a fresh session.
type SignupResult struct {
	User    *domain.User
	Org     *domain.Organization
	Session *domain.Session
}

// LoginParams are the inputs for credential login.
type LoginParams struct {
	Email     string
	Password  string
	UserAgent string
	IP        string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	User    *domain.User
	Session *domain.Session
}

// CreateAPIKeyParams scope an API key to exactly one of a user, an
// organization, or a resource.
type CreateAPIKeyParams struct {
	UserID           *domain.UserID
	OrgID            *domain.OrgID
	ResourceType     *domain.ResourceType
	ResourceID       *string
	Metadata         map[string]any
	ExpiresAtSeconds *int64 // unix seconds; nil means no expiry
}

// CreateAPIKeyResult carries the plaintext token exactly once. It is never
// stored or retrievable again.
type CreateAPIKeyResult struct {
	KeyID          domain.APIKeyID
	PlaintextToken string
	Info           domain.APIKeyInfo
}

// APIKeyValidation is the result of a successful bearer-token validation.
type APIKeyValidation struct {
	User     *domain.User
	Org      *domain.Organization
	Metadata map[string]any
}

// OrgUserInfo joins a membership row with user profile fields.
type OrgUserInfo struct {
	UserID    domain.UserID
	Email     string
	FirstName *string
	LastName  *string
	Username  *string
	Role      domain.Role
	JoinedAt  time.Time
}

// OrgUsersPage is one page of an organization's users plus the total count.
type OrgUsersPage struct {
	Users      []OrgUserInfo
	TotalCount int64
}

// AuthProvider is the capability interface callers depend on. The local
// implementation composes the self-hosted stores; an alternate cloud identity
// implementation satisfies the same contract and is selected by configuration
// at process start, never by runtime type inspection.
type AuthProvider interface {
	// GetUser resolves a session bearer to the aggregate identity view.
	// Returns (nil, nil) for unknown or expired sessions.
	GetUser(ctx context.Context, sessionID string) (*domain.AuthUser, error)
	// GetUserByID builds the same aggregation without the session hop.
	GetUserByID(ctx context.Context, userID domain.UserID) (*domain.AuthUser, error)

	Signup(ctx context.Context, params SignupParams) (*SignupResult, error)
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	// RefreshSession extends the session's expiry for sliding-window
	// behavior. Returns (nil, nil) when the session is gone.
	RefreshSession(ctx context.Context, sessionID string) (*domain.Session, error)
	// CleanExpiredSessions bulk-deletes expired sessions and returns the
	// count.
	CleanExpiredSessions(ctx context.Context) (int64, error)

	CreateOrganization(ctx context.Context, name string, creator domain.UserID) (*domain.Organization, error)
	AddUserToOrg(ctx context.Context, userID domain.UserID, orgID domain.OrgID, role domain.Role) error
	RemoveUserFromOrg(ctx context.Context, userID domain.UserID, orgID domain.OrgID) error
	ChangeUserRoleInOrg(ctx context.Context, userID domain.UserID, orgID domain.OrgID, role domain.Role) error
	FetchUsersInOrg(ctx context.Context, orgID domain.OrgID, pageSize, pageNumber int) (*OrgUsersPage, error)
	// InviteUserToOrg only supports existing accounts: an unknown invitee
	// email is a logged no-op returning false, not an error.
	InviteUserToOrg(ctx context.Context, orgID domain.OrgID, email string, role domain.Role) (bool, error)

	CreateAPIKey(ctx context.Context, params CreateAPIKeyParams) (*CreateAPIKeyResult, error)
	// ValidateAPIKey returns (nil, nil) for unmatched, tampered, or expired
	// tokens; the cases are indistinguishable to the caller.
	ValidateAPIKey(ctx context.Context, plaintextToken string) (*APIKeyValidation, error)
	DeleteAPIKey(ctx context.Context, keyID domain.APIKeyID) error
	FetchAPIKeysForUser(ctx context.Context, userID domain.UserID) ([]domain.APIKeyInfo, error)
	FetchAPIKeysForOrg(ctx context.Context, orgID domain.OrgID, pageSize, pageNumber int) ([]domain.APIKeyInfo, int64, error)
	FetchAPIKeyForResource(ctx context.Context, resourceType domain.ResourceType, resourceID string) (*domain.APIKeyInfo, error)

	UpdateUserMetadata(ctx context.Context, userID domain.UserID, update domain.ProfileUpdate) error
	ChangePassword(ctx context.Context, userID domain.UserID, newPassword string) error
}
