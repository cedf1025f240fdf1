package portalAuth

import "time"

// SecurityReport summarises the security-relevant configuration of a
// running Manager.
type SecurityReport struct {
	StoreBackend       StoreBackend
	DurableStore       bool
	GatewayTLS         bool
	GatewayTimeout     time.Duration
	OTPTTL             time.Duration
	OTPMaxAttempts     int
	RateLimitingActive bool
	AuditEnabled       bool
	PolicyFromFile     bool
	Authenticated      bool
	TokenPresent       bool
	TokenExpired       bool
}

func (m *Manager) SecurityReport() SecurityReport {
	if m == nil {
		return SecurityReport{}
	}

	report := SecurityReport{
		StoreBackend:       m.config.Store.Backend,
		DurableStore:       m.store.Backend().Durable(),
		GatewayTLS:         gatewayUsesTLS(m.gateway, m.config.Gateway),
		GatewayTimeout:     m.config.Gateway.Timeout,
		OTPTTL:             m.config.PasswordReset.OTPTTL,
		OTPMaxAttempts:     m.config.PasswordReset.MaxAttempts,
		RateLimitingActive: m.limiter != nil,
		AuditEnabled:       m.audit != nil,
		PolicyFromFile:     m.config.Policy.File != "",
	}

	if sess := m.Current(); sess != nil {
		report.Authenticated = true
		report.TokenPresent = sess.HasToken()
		report.TokenExpired = !sess.TokenExpiresAt.IsZero() && !m.now().Before(sess.TokenExpiresAt)
	}
	return report
}
