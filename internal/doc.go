// Package internal holds code private to portalAuth.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators for every Manager operation
//   - limiters: per-email OTP request throttling
//   - stores: the in-memory password-reset request store
//
// # What this package must NOT do
//
//   - Export types that appear in the public portalAuth API.
//   - Be imported by any package outside the portalAuth module.
package internal
