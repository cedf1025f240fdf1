package portalAuth

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/portalAuth/permission"
)

var (
	// ErrInvalidCredentials is returned when the identity provider rejects a
	// login, OTP or password change. It never says which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMalformedResponse is returned when the identity provider reports
	// success without a usable payload.
	ErrMalformedResponse = errors.New("malformed identity provider response")
	// ErrNetwork is returned when the identity provider could not be reached.
	ErrNetwork = errors.New("network error")
	// ErrNotAuthenticated is returned by operations that need a live session.
	ErrNotAuthenticated = permission.ErrNotAuthenticated
	// ErrTooManyAttempts is returned once the OTP attempts of a reset request
	// are exhausted. A new OTP must be requested.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrRoleNotPermitted is the reason of an access denial.
	ErrRoleNotPermitted = permission.ErrRoleNotPermitted

	// ErrInvalidOTP is returned for a rejected OTP that still has attempts left.
	ErrInvalidOTP = fmt.Errorf("invalid otp: %w", ErrInvalidCredentials)
	// ErrInvalidEmail is returned for a blank reset email.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidNewSecret is returned for a blank new password.
	ErrInvalidNewSecret = errors.New("invalid new secret")
	// ErrResetNotRequested is returned when no OTP request is open for the email.
	ErrResetNotRequested = errors.New("password reset not requested")
	// ErrResetNotVerified is returned when a password change is attempted
	// before the OTP was verified, or with a different email or OTP.
	ErrResetNotVerified = errors.New("password reset not verified")
	// ErrResetExpired is returned when the open request outlived its TTL.
	ErrResetExpired = errors.New("password reset expired")
	// ErrOTPRequestRateLimited is returned when OTP requests for an email come
	// faster than the configured interval.
	ErrOTPRequestRateLimited = errors.New("otp request rate limited")
	// ErrOperationInFlight is returned when a second login or reset call is
	// made while one is outstanding.
	ErrOperationInFlight = errors.New("operation already in flight")
	// ErrLoginSuperseded is returned when the session changed while the call
	// was outstanding, typically because of a logout. Nothing was written.
	ErrLoginSuperseded = errors.New("superseded by a newer session state")
	// ErrInvalidUserPatch is returned when a merged user record has no id.
	ErrInvalidUserPatch = errors.New("invalid user patch")
	// ErrSessionStoreUnavailable wraps session backend failures.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")

	// ErrGatewayRequired is returned by Build when no gateway can be made.
	ErrGatewayRequired = errors.New("credential gateway required")
	// ErrManagerClosed is returned after Close.
	ErrManagerClosed = errors.New("manager closed")
)

// IsInfrastructure reports whether err is a transport or storage failure
// rather than an authentication failure.
func IsInfrastructure(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrSessionStoreUnavailable)
}

// UserMessage returns the text to show an end user for err. Authentication
// failures are generic; infrastructure failures are distinct.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return "network error, try again"
	case errors.Is(err, ErrSessionStoreUnavailable),
		errors.Is(err, ErrMalformedResponse):
		return "service unavailable, try again later"
	case errors.Is(err, ErrTooManyAttempts):
		return "too many attempts, request a new code"
	case errors.Is(err, ErrResetExpired):
		return "code expired, request a new code"
	case errors.Is(err, ErrOTPRequestRateLimited):
		return "please wait before requesting another code"
	case errors.Is(err, ErrResetNotRequested),
		errors.Is(err, ErrResetNotVerified):
		return "verify your code first"
	case errors.Is(err, ErrInvalidEmail):
		return "enter your email"
	case errors.Is(err, ErrInvalidNewSecret):
		return "enter a new password"
	case errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrLoginSuperseded):
		return "please sign in"
	case errors.Is(err, ErrRoleNotPermitted):
		return "you do not have access to this area"
	case errors.Is(err, ErrOperationInFlight):
		return "please wait"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	default:
		return "something went wrong"
	}
}
