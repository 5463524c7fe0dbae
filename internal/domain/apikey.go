package domain

import (
	"time"

	"github.com/google/uuid"
)

// APIKeyID is a value object for API key identity.
type APIKeyID struct{ uuid.UUID }

// NewAPIKeyID creates a new APIKeyID from uuid.
func NewAPIKeyID(id uuid.UUID) APIKeyID { return APIKeyID{UUID: id} }

// ParseAPIKeyID parses the canonical string form.
func ParseAPIKeyID(s string) (APIKeyID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return APIKeyID{}, err
	}
	return APIKeyID{UUID: id}, nil
}

// String returns the canonical string form.
func (k APIKeyID) String() string { return k.UUID.String() }

// ResourceType identifies the kind of resource an API key can be pinned to.
type ResourceType string

const (
	ResourceAgent   ResourceType = "agent"
	ResourceGateway ResourceType = "gateway"
)

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	return t == ResourceAgent || t == ResourceGateway
}

// APIKey is a long-lived hashed bearer credential. The plaintext token is
// returned exactly once at creation; only its hash and a short non-secret
// prefix/suffix are persisted. Exactly one of user, org, or resource scope
// is set.
type APIKey struct {
	ID           APIKeyID
	TokenHash    string
	TokenPrefix  string
	TokenSuffix  string
	UserID       *UserID
	OrgID        *OrgID
	ResourceType *ResourceType
	ResourceID   *string
	Metadata     map[string]any
	ExpiresAt    *time.Time
	LastUsedAt   *time.Time
	CreatedAt    time.Time
}

// Expired reports whether the key has an expiry in the past at the given
// instant. Keys without an expiry never expire.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// Info is the display-safe projection of the key: prefix/suffix only, never
// the hash or the plaintext.
func (k *APIKey) Info() APIKeyInfo {
	info := APIKeyInfo{
		ID:           k.ID,
		TokenPrefix:  k.TokenPrefix,
		TokenSuffix:  k.TokenSuffix,
		UserID:       k.UserID,
		OrgID:        k.OrgID,
		ResourceType: k.ResourceType,
		ResourceID:   k.ResourceID,
		Metadata:     k.Metadata,
		ExpiresAt:    k.ExpiresAt,
		LastUsedAt:   k.LastUsedAt,
		CreatedAt:    k.CreatedAt,
	}
	return info
}

// APIKeyInfo is what listings return to callers.
type APIKeyInfo struct {
	ID           APIKeyID
	TokenPrefix  string
	TokenSuffix  string
	UserID       *UserID
	OrgID        *OrgID
	ResourceType *ResourceType
	ResourceID   *string
	Metadata     map[string]any
	ExpiresAt    *time.Time
	LastUsedAt   *time.Time
	CreatedAt    time.Time
}
