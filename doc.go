// Package portalAuth is the session and role-based access subsystem of a
// multi-portal employee application. It signs users in through an external
// identity provider, persists the session across restarts, runs the OTP
// password-reset protocol and decides which portal a role may enter.
//
// The package is designed for concurrent use: Manager methods are safe to
// call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// portalAuth is the public surface. It exposes [Manager], [Builder],
// [Config], the sentinel errors and value types. The HTTP client lives in
// gateway, persistence in session, roles and portal policy in permission.
// Flow orchestration, reset state and throttling live under internal/ and are
// never exported.
//
// # What this package must NOT do
//
//   - Hash, store or log passwords, OTPs or bearer tokens.
//   - Trust a persisted session without decoding it; corrupt entries are
//     deleted on restore.
//   - Cache access decisions. Every navigation is evaluated against the live
//     session.
//   - Import any sub-package that re-imports portalAuth (no import cycles).
package portalAuth
