// Package stores holds the transient password-reset request.
//
// # Design
//
// The request lives only in process memory and is never written to the
// session backend, so it cannot outlive the process or be replayed from disk.
// One request is tracked at a time; a new request replaces the old one. Every
// mutation is keyed by the request ID so a call racing a replacement fails
// with [ErrResetNotFound] instead of touching the newer request. The verified
// OTP is kept only as a SHA-256 digest and compared in constant time.
//
// # What this package must NOT do
//
//   - Import portalAuth or any sibling internal package.
//   - Call the identity provider.
//   - Log or expose plaintext OTPs.
package stores
