package flows

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/internal/stores"
)

// PasswordResetMetrics carries metric IDs needed by the reset flows.
type PasswordResetMetrics struct {
	OTPRequest                int
	OTPRequestFailure         int
	OTPRequestRateLimited     int
	OTPVerifySuccess          int
	OTPVerifyFailure          int
	OTPAttemptsExceeded       int
	OTPExpired                int
	PasswordChangeSuccess     int
	PasswordChangeFailure     int
	PasswordChangeNotVerified int
}

// PasswordResetEvents carries audit event names used by the reset flows.
type PasswordResetEvents struct {
	OTPRequest     string
	OTPVerify      string
	PasswordChange string
}

// PasswordResetErrors carries host-level sentinel errors used by the reset flows.
type PasswordResetErrors struct {
	GatewayErrors
	InvalidEmail     error
	InvalidOTP       error
	InvalidNewSecret error
	RateLimited      error
	NotRequested     error
	NotVerified      error
	Expired          error
	TooManyAttempts  error
}

// PasswordResetDeps captures reset dependencies.
type PasswordResetDeps struct {
	MaxAttempts int
	TTL         time.Duration
	Logger      *slog.Logger

	Store        *stores.PasswordResetStore
	AllowRequest func(email string) error

	RequestOTP     func(ctx context.Context, email string) gateway.Result
	VerifyOTP      func(ctx context.Context, email, otp string) gateway.Result
	ChangePassword func(ctx context.Context, email, otp, newSecret string) gateway.Result

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	normalizeCommon(&deps.Logger, &deps.MetricInc, &deps.EmitAudit)
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = 3
	}
	if deps.AllowRequest == nil {
		deps.AllowRequest = func(string) error { return nil }
	}
}

func emailMeta(email string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"email": email}
	}
}

// RunRequestOTP asks the provider for an OTP and opens a new request. A
// failed call leaves any existing request untouched.
func RunRequestOTP(ctx context.Context, email string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	email = stores.NormalizeEmail(email)
	if email == "" {
		deps.MetricInc(deps.Metrics.OTPRequestFailure)
		deps.EmitAudit(ctx, deps.Events.OTPRequest, false, "", deps.Errors.InvalidEmail, nil)
		return deps.Errors.InvalidEmail
	}

	if err := deps.AllowRequest(email); err != nil {
		deps.MetricInc(deps.Metrics.OTPRequestRateLimited)
		deps.EmitAudit(ctx, deps.Events.OTPRequest, false, "", deps.Errors.RateLimited, emailMeta(email))
		return deps.Errors.RateLimited
	}

	res := deps.RequestOTP(ctx, email)
	if !res.OK {
		err := mapGatewayFailure(res.Kind, deps.Errors.GatewayErrors)
		deps.MetricInc(deps.Metrics.OTPRequestFailure)
		deps.Logger.Debug("portalAuth: otp request rejected", "kind", res.Kind.String(), "status", res.Status)
		deps.EmitAudit(ctx, deps.Events.OTPRequest, false, "", err, emailMeta(email))
		return err
	}

	rec := deps.Store.Begin(email, deps.MaxAttempts, deps.TTL)
	deps.MetricInc(deps.Metrics.OTPRequest)
	deps.Logger.Debug("portalAuth: password reset requested", "request_id", rec.ID.String())
	deps.EmitAudit(ctx, deps.Events.OTPRequest, true, "", nil, func() map[string]string {
		return map[string]string{"email": email, "request_id": rec.ID.String()}
	})
	return nil
}

// RunVerifyOTP checks otp against the open request. Exhausted requests fail
// without contacting the provider; transport failures do not consume an attempt.
func RunVerifyOTP(ctx context.Context, email, otp string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)
	email = stores.NormalizeEmail(email)

	rec, err := activeRequest(email, deps)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.OTPVerify, false, "", err, emailMeta(email))
		return err
	}
	if rec.State != stores.ResetRequested {
		deps.EmitAudit(ctx, deps.Events.OTPVerify, false, "", deps.Errors.NotRequested, emailMeta(email))
		return deps.Errors.NotRequested
	}
	if rec.Exhausted() {
		deps.MetricInc(deps.Metrics.OTPAttemptsExceeded)
		deps.EmitAudit(ctx, deps.Events.OTPVerify, false, "", deps.Errors.TooManyAttempts, emailMeta(email))
		return deps.Errors.TooManyAttempts
	}
	if strings.TrimSpace(otp) == "" {
		deps.MetricInc(deps.Metrics.OTPVerifyFailure)
		return deps.Errors.InvalidOTP
	}

	res := deps.VerifyOTP(ctx, email, otp)
	if !res.OK {
		if res.Kind != gateway.KindRejected {
			err := mapGatewayFailure(res.Kind, deps.Errors.GatewayErrors)
			deps.MetricInc(deps.Metrics.OTPVerifyFailure)
			deps.EmitAudit(ctx, deps.Events.OTPVerify, false, "", err, emailMeta(email))
			return err
		}

		remaining, err := deps.Store.RecordFailure(rec.ID)
		switch {
		case errors.Is(err, stores.ErrResetAttemptsExceeded):
			deps.MetricInc(deps.Metrics.OTPVerifyFailure)
			deps.MetricInc(deps.Metrics.OTPAttemptsExceeded)
			deps.Logger.Warn("portalAuth: password reset attempts exhausted", "request_id", rec.ID.String())
			deps.EmitAudit(ctx, deps.Events.OTPVerify, false, "", deps.Errors.TooManyAttempts, func() map[string]string {
				return map[string]string{"email": email, "reason": "attempts_exceeded"}
			})
			return deps.Errors.TooManyAttempts
		case err != nil:
			deps.MetricInc(deps.Metrics.OTPVerifyFailure)
			deps.EmitAudit(ctx, deps.Events.OTPVerify, false, "", deps.Errors.NotRequested, emailMeta(email))
			return deps.Errors.NotRequested
		}

		deps.MetricInc(deps.Metrics.OTPVerifyFailure)
		deps.EmitAudit(ctx, deps.Events.OTPVerify, false, "", deps.Errors.InvalidOTP, func() map[string]string {
			return map[string]string{"email": email, "attempts_remaining": strconv.Itoa(remaining)}
		})
		return deps.Errors.InvalidOTP
	}

	if err := deps.Store.MarkVerified(rec.ID, otp); err != nil {
		deps.EmitAudit(ctx, deps.Events.OTPVerify, false, "", deps.Errors.NotRequested, emailMeta(email))
		return deps.Errors.NotRequested
	}
	deps.MetricInc(deps.Metrics.OTPVerifySuccess)
	deps.EmitAudit(ctx, deps.Events.OTPVerify, true, "", nil, emailMeta(email))
	return nil
}

// RunCompletePasswordChange sets the new secret for a verified request. The
// same email and otp that verified the request must be supplied; the provider
// re-validates the otp. A failure keeps the request verified.
func RunCompletePasswordChange(ctx context.Context, email, otp, newSecret string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)
	email = stores.NormalizeEmail(email)

	rec, err := deps.Store.MatchVerified(email, otp)
	if err != nil {
		mapped := deps.Errors.NotVerified
		if errors.Is(err, stores.ErrResetExpired) {
			deps.MetricInc(deps.Metrics.OTPExpired)
			mapped = deps.Errors.Expired
		}
		deps.MetricInc(deps.Metrics.PasswordChangeNotVerified)
		deps.EmitAudit(ctx, deps.Events.PasswordChange, false, "", mapped, emailMeta(email))
		return mapped
	}

	if strings.TrimSpace(newSecret) == "" {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChange, false, "", deps.Errors.InvalidNewSecret, emailMeta(email))
		return deps.Errors.InvalidNewSecret
	}

	res := deps.ChangePassword(ctx, email, otp, newSecret)
	if !res.OK {
		err := mapGatewayFailure(res.Kind, deps.Errors.GatewayErrors)
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChange, false, "", err, emailMeta(email))
		return err
	}

	deps.Store.Delete(rec.ID)
	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChange, true, "", nil, func() map[string]string {
		return map[string]string{"email": email, "request_id": rec.ID.String()}
	})
	return nil
}

func activeRequest(email string, deps PasswordResetDeps) (stores.ResetRecord, error) {
	if email == "" {
		return stores.ResetRecord{}, deps.Errors.InvalidEmail
	}
	rec, err := deps.Store.Active(email)
	switch {
	case errors.Is(err, stores.ErrResetExpired):
		deps.MetricInc(deps.Metrics.OTPExpired)
		return stores.ResetRecord{}, deps.Errors.Expired
	case err != nil:
		return stores.ResetRecord{}, deps.Errors.NotRequested
	}
	return rec, nil
}
