package portalAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/permission"
	"github.com/MrEthical07/portalAuth/session"
)

type (
	// Session is the authenticated identity plus optional bearer.
	Session = session.Session
	// User is the identity record from the identity provider.
	User = session.User
	// UserPatch is a shallow update applied by [Manager.UpdateUser].
	UserPatch = session.UserPatch
	// Role is one of the fixed portal roles.
	Role = permission.Role
	// Decision is the outcome of an access check.
	Decision = permission.Decision
)

// CredentialGateway is the identity-provider client used by the Manager.
// Implementations normalise every outcome into a result and never panic;
// [gateway.Client] is the HTTP implementation.
type CredentialGateway interface {
	Login(ctx context.Context, identifier, secret string) gateway.LoginResult
	RequestOTP(ctx context.Context, email string) gateway.Result
	VerifyOTP(ctx context.Context, email, otp string) gateway.Result
	ChangePassword(ctx context.Context, email, otp, newSecret string) gateway.Result
}

// ResetStatus describes the open password-reset request, if any.
type ResetStatus struct {
	Active            bool
	Email             string
	State             string
	AttemptsRemaining int
	RequestedAt       time.Time
	ExpiresAt         time.Time
}
