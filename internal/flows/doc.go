// Package flows contains pure-function orchestrators for every Manager operation.
//
// Each flow function (RunLogin, RunRestore, RunVerifyOTP, etc.) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies. The Manager builds the structs once and stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the identity-provider gateway, the
// session store, the reset store, the OTP limiter, audit and metrics. They do
// NOT own any of these resources; ownership stays with the Manager. Commit
// callbacks are where the Manager enforces its session generation, so a flow
// never writes the live session directly.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import portalAuth (to avoid import cycles).
//   - Log secrets, OTPs or bearer tokens.
package flows
