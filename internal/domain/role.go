package domain

// Role is the coarse membership role within an organization.
type Role string

const (
	RoleOwner  Role = "Owner"
	RoleAdmin  Role = "Admin"
	RoleMember Role = "Member"
)

// rolePermissions is the static role to capability mapping. Each role maps to
// exactly one fixed, total set of capability strings; Owner ⊇ Admin ⊇ Member.
var rolePermissions = map[Role][]string{
	RoleMember: {
		"org::read",
		"org::members::read",
	},
	RoleAdmin: {
		"org::read",
		"org::members::read",
		"org::update",
		"org::members::invite",
		"org::api_keys::read",
		"org::api_keys::create",
		"org::api_keys::delete",
	},
	RoleOwner: {
		"org::read",
		"org::members::read",
		"org::update",
		"org::members::invite",
		"org::api_keys::read",
		"org::api_keys::create",
		"org::api_keys::delete",
		"org::members::change_role",
		"org::members::remove",
		"org::delete",
	},
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns a fresh copy of the capability set for the role.
// This is the only source permissions are ever derived from; stores persist
// the result denormalized and recompute it on every role write.
func (r Role) Permissions() []string {
	perms, ok := rolePermissions[r]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
