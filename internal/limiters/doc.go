// Package limiters provides in-process throttles for identity-provider calls.
//
// [OTPRequestLimiter] is a per-email token bucket that stops a client from
// flooding the provider with OTP sends. All limiters are nil-safe: calling
// any method on a nil receiver allows the call.
//
// # What this package must NOT do
//
//   - Import portalAuth or any sibling internal package.
//   - Make policy decisions beyond counting; flow functions decide consequences.
package limiters
