package internaldefs

import (
	portalAuth "github.com/MrEthical07/portalAuth"
)

// CounterDef names one counter for every exporter.
type CounterDef struct {
	ID   portalAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram for every exporter.
type HistogramDef struct {
	ID   portalAuth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: portalAuth.MetricLoginSuccess, Name: "portal_auth_login_success_total", Help: "Successful logins."},
	{ID: portalAuth.MetricLoginFailure, Name: "portal_auth_login_failure_total", Help: "Logins rejected by the identity provider or for blank input."},
	{ID: portalAuth.MetricLoginNetworkFailure, Name: "portal_auth_login_network_failure_total", Help: "Logins that could not reach the identity provider."},
	{ID: portalAuth.MetricLoginMalformedResponse, Name: "portal_auth_login_malformed_response_total", Help: "Logins whose provider reply had no usable user."},
	{ID: portalAuth.MetricLoginTokenMissing, Name: "portal_auth_login_token_missing_total", Help: "Logins where the provider issued no bearer token."},
	{ID: portalAuth.MetricLoginSuperseded, Name: "portal_auth_login_superseded_total", Help: "Login results discarded after a concurrent logout."},
	{ID: portalAuth.MetricLogout, Name: "portal_auth_logout_total", Help: "Logouts."},
	{ID: portalAuth.MetricRestoreSuccess, Name: "portal_auth_restore_success_total", Help: "Sessions restored from the store."},
	{ID: portalAuth.MetricRestoreEmpty, Name: "portal_auth_restore_empty_total", Help: "Restores that found no session."},
	{ID: portalAuth.MetricRestoreCorrupt, Name: "portal_auth_restore_corrupt_total", Help: "Corrupt persisted sessions cleared on restore."},
	{ID: portalAuth.MetricRestoreBackendFailure, Name: "portal_auth_restore_backend_failure_total", Help: "Restores that failed to read the store."},
	{ID: portalAuth.MetricRestoreTokenMissing, Name: "portal_auth_restore_token_missing_total", Help: "Restored sessions without a bearer token."},
	{ID: portalAuth.MetricRestoreTokenExpired, Name: "portal_auth_restore_token_expired_total", Help: "Restored sessions whose bearer is past its exp claim."},
	{ID: portalAuth.MetricUserUpdated, Name: "portal_auth_user_updated_total", Help: "User record updates."},
	{ID: portalAuth.MetricSessionStoreFailure, Name: "portal_auth_session_store_failure_total", Help: "Session store writes or deletes that failed."},
	{ID: portalAuth.MetricOTPRequest, Name: "portal_auth_otp_request_total", Help: "Password-reset OTPs requested."},
	{ID: portalAuth.MetricOTPRequestFailure, Name: "portal_auth_otp_request_failure_total", Help: "OTP requests that failed."},
	{ID: portalAuth.MetricOTPRequestRateLimited, Name: "portal_auth_otp_request_rate_limited_total", Help: "OTP requests throttled per email."},
	{ID: portalAuth.MetricOTPVerifySuccess, Name: "portal_auth_otp_verify_success_total", Help: "OTPs verified."},
	{ID: portalAuth.MetricOTPVerifyFailure, Name: "portal_auth_otp_verify_failure_total", Help: "OTP verifications that failed."},
	{ID: portalAuth.MetricOTPAttemptsExceeded, Name: "portal_auth_otp_attempts_exceeded_total", Help: "Reset requests invalidated by the attempt cap."},
	{ID: portalAuth.MetricOTPExpired, Name: "portal_auth_otp_expired_total", Help: "Reset requests that outlived their TTL."},
	{ID: portalAuth.MetricPasswordChangeSuccess, Name: "portal_auth_password_change_success_total", Help: "Completed password changes."},
	{ID: portalAuth.MetricPasswordChangeFailure, Name: "portal_auth_password_change_failure_total", Help: "Password changes that failed at the provider."},
	{ID: portalAuth.MetricPasswordChangeNotVerified, Name: "portal_auth_password_change_not_verified_total", Help: "Password changes attempted without a verified OTP."},
	{ID: portalAuth.MetricAccessAdmitted, Name: "portal_auth_access_admitted_total", Help: "Admitted navigations."},
	{ID: portalAuth.MetricAccessRedirected, Name: "portal_auth_access_redirected_total", Help: "Navigations redirected to login."},
	{ID: portalAuth.MetricOperationInFlight, Name: "portal_auth_operation_in_flight_total", Help: "Calls rejected while another was outstanding."},
}

var HistogramDefs = []HistogramDef{
	{ID: portalAuth.MetricGatewayLatency, Name: "portal_auth_gateway_latency_seconds", Help: "Identity provider round-trip latency."},
}

// AuditDroppedName is the counter of audit events dropped on a full queue.
const AuditDroppedName = "portal_auth_audit_dropped_total"

// HistogramUpperBounds are the finite bucket bounds in seconds, matching
// the core bucket layout. The eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets pads or truncates raw to the eight core buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
