package portalAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/portalAuth/gateway"
)

const (
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLoginTokenMissing = "login_token_missing"
	auditEventLogout            = "logout"
	auditEventRestoreSuccess    = "session_restored"
	auditEventRestoreCorrupt    = "session_corrupt"
	auditEventUserUpdated       = "user_updated"
	auditEventOTPRequest        = "otp_request"
	auditEventOTPVerify         = "otp_verify"
	auditEventPasswordChange    = "password_change"
	auditEventAccessDenied      = "access_denied"
)

// AuditErrorCode is the stable, secret-free error label carried by audit
// events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrMalformedResponse  AuditErrorCode = "malformed_response"
	auditErrNetwork            AuditErrorCode = "network"
	auditErrNotAuthenticated   AuditErrorCode = "not_authenticated"
	auditErrRoleNotPermitted   AuditErrorCode = "role_not_permitted"
	auditErrAttemptsExceeded   AuditErrorCode = "attempts_exceeded"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrResetState         AuditErrorCode = "reset_state"
	auditErrExpired            AuditErrorCode = "expired"
	auditErrSuperseded         AuditErrorCode = "superseded"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	event := newAuditEvent(m.now(), eventType)
	event.UserID = userID
	event.Success = success
	if id, ok := gateway.RequestIDFromContext(ctx); ok {
		event.RequestID = id
	}
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTooManyAttempts):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidNewSecret),
		errors.Is(err, ErrInvalidUserPatch):
		return auditErrInvalidInput
	case errors.Is(err, ErrMalformedResponse):
		return auditErrMalformedResponse
	case errors.Is(err, ErrNetwork):
		return auditErrNetwork
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuthenticated
	case errors.Is(err, ErrRoleNotPermitted):
		return auditErrRoleNotPermitted
	case errors.Is(err, ErrOTPRequestRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrResetNotRequested),
		errors.Is(err, ErrResetNotVerified):
		return auditErrResetState
	case errors.Is(err, ErrResetExpired):
		return auditErrExpired
	case errors.Is(err, ErrLoginSuperseded):
		return auditErrSuperseded
	case errors.Is(err, ErrSessionStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
