package portalAuth

import (
	"context"

	"github.com/MrEthical07/portalAuth/internal/flows"
	"github.com/MrEthical07/portalAuth/internal/stores"
)

// RequestPasswordReset asks the identity provider to send an OTP to email
// and opens a reset request. An open request for any email is replaced.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	release, err := m.acquireReset()
	if err != nil {
		return err
	}
	defer release()

	return flows.RunRequestOTP(ensureContext(ctx), email, m.flowDeps.PasswordReset)
}

// VerifyPasswordResetOTP checks otp with the identity provider. Each
// rejection spends one attempt; the last one fails with
// [ErrTooManyAttempts] and every later call fails locally.
func (m *Manager) VerifyPasswordResetOTP(ctx context.Context, email, otp string) error {
	release, err := m.acquireReset()
	if err != nil {
		return err
	}
	defer release()

	return flows.RunVerifyOTP(ensureContext(ctx), email, otp, m.flowDeps.PasswordReset)
}

// CompletePasswordChange sets newSecret for a verified request. email and
// otp must match the verified request.
func (m *Manager) CompletePasswordChange(ctx context.Context, email, otp, newSecret string) error {
	release, err := m.acquireReset()
	if err != nil {
		return err
	}
	defer release()

	return flows.RunCompletePasswordChange(ensureContext(ctx), email, otp, newSecret, m.flowDeps.PasswordReset)
}

// VerifyAndChangePassword verifies otp when the request is still waiting
// for it and then completes the change.
func (m *Manager) VerifyAndChangePassword(ctx context.Context, email, otp, newSecret string) error {
	release, err := m.acquireReset()
	if err != nil {
		return err
	}
	defer release()
	ctx = ensureContext(ctx)

	deps := m.flowDeps.PasswordReset
	rec, ok := m.resets.Current()
	if !ok || rec.Email != stores.NormalizeEmail(email) || rec.State != stores.ResetVerified {
		if err := flows.RunVerifyOTP(ctx, email, otp, deps); err != nil {
			return err
		}
	}
	return flows.RunCompletePasswordChange(ctx, email, otp, newSecret, deps)
}

// CancelPasswordReset discards any open reset request.
func (m *Manager) CancelPasswordReset() {
	m.resets.Clear()
	m.logger.Debug("portalAuth: password reset cancelled")
}

// PasswordResetStatus describes the open request. Expired requests are
// reported inactive.
func (m *Manager) PasswordResetStatus() ResetStatus {
	rec, ok := m.resets.Current()
	if !ok {
		return ResetStatus{}
	}
	active, err := m.resets.Active(rec.Email)
	if err != nil {
		return ResetStatus{Email: rec.Email, State: "expired"}
	}
	return ResetStatus{
		Active:            !active.Exhausted(),
		Email:             active.Email,
		State:             active.State.String(),
		AttemptsRemaining: active.AttemptsRemaining,
		RequestedAt:       active.RequestedAt,
		ExpiresAt:         active.ExpiresAt,
	}
}

func (m *Manager) acquireReset() (func(), error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	if !m.resetSem.TryAcquire(1) {
		m.metrics.Inc(MetricOperationInFlight)
		return nil, ErrOperationInFlight
	}
	return func() { m.resetSem.Release(1) }, nil
}
