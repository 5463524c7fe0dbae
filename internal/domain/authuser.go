package domain

import "time"

// OrgMemberInfo is one entry of the per-organization view inside AuthUser.
type OrgMemberInfo struct {
	OrgID       OrgID
	OrgName     string
	Role        Role
	Permissions []string
	JoinedAt    time.Time
}

// AuthUser is the aggregate identity view handed to callers: the user's
// profile merged with every organization membership. ActiveOrgID is pinned to
// the most-recently-joined membership so it stays stable across calls.
type AuthUser struct {
	UserID         UserID
	Email          string
	FirstName      *string
	LastName       *string
	Username       *string
	PictureURL     *string
	EmailVerified  bool
	ActiveOrgID    *OrgID
	OrgIDToOrgInfo map[string]OrgMemberInfo
}

// HasPermission reports whether the user holds the capability in the given
// organization.
func (u *AuthUser) HasPermission(orgID OrgID, permission string) bool {
	info, ok := u.OrgIDToOrgInfo[orgID.String()]
	if !ok {
		return false
	}
	for _, p := range info.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
