package gateway

import "github.com/MrEthical07/portalAuth/session"

// Kind classifies a failed call.
type Kind uint8

const (
	// KindNone marks a successful call.
	KindNone Kind = iota
	// KindRejected is a non-2xx status or success:false.
	KindRejected
	// KindNetwork is a transport failure or cancelled context.
	KindNetwork
	// KindMalformed is a 2xx reply whose body could not be decoded.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindRejected:
		return "rejected"
	case KindNetwork:
		return "network"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Result is the normalised outcome of a gateway call.
type Result struct {
	OK     bool
	Kind   Kind
	Status int
	// Message is the provider's message, if any. It is not shown to users.
	Message string
}

// LoginResult adds the identity payload to [Result]. User is nil when the
// provider reported success without a usable user record.
type LoginResult struct {
	Result
	User  *session.User
	Token string
}

// Operation names a remote call for metrics and logs.
type Operation string

const (
	OpLogin          Operation = "login"
	OpRequestOTP     Operation = "otp_request"
	OpVerifyOTP      Operation = "otp_verify"
	OpChangePassword Operation = "password_change"
)
