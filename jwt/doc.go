// Package jwt inspects bearer tokens issued by the identity provider.
//
// The session subsystem treats the bearer as opaque and never verifies its
// signature; the identity provider does that on every API call. When the
// bearer happens to be a JWT, [Inspect] reads its registered claims so the
// session can report expiry and subject for operators.
package jwt
