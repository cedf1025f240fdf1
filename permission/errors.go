package permission

import "errors"

var (
	// ErrNotAuthenticated is the denial reason for a missing or malformed session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrRoleNotPermitted is the denial reason for a role outside the required set.
	ErrRoleNotPermitted = errors.New("role not permitted")
	// ErrPolicyInvalid is returned when a policy table fails validation.
	ErrPolicyInvalid = errors.New("invalid role policy")
)
