package errors

import "errors"

// Sentinel errors for handlers to map to HTTP status. Read paths prefer
// returning absence (nil, nil) over these; they mark the cases callers must
// branch on.
var (
	ErrUserExists         = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrOrgNotFound        = errors.New("organization not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrAPIKeyNotFound     = errors.New("api key not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidScope       = errors.New("api key must have exactly one of user, org, or resource scope")
	ErrValidation         = errors.New("missing or invalid request fields")
)
