// Package session holds the authenticated user record, its JSON codec, and the
// two-key [Store] that persists the current session across restarts.
//
// # Persisted layout
//
// A session is written as two keys under a configurable prefix: "<prefix>user"
// holds the JSON user record and "<prefix>token" holds the bearer credential,
// or [NoTokenMarker] when the identity provider issued none. Both keys are
// written in one [Backend.Put] call so a reader never observes half a session.
//
// # Corruption
//
// Empty values, the literal strings "undefined" and "null", undecodable JSON and
// user records without an id are corruption. [Store.Load] deletes both keys when
// it finds any of them and reports [ErrCorrupt].
//
// # What this package must NOT do
//
//   - Import portalAuth, gateway or jwt (no upward imports).
//   - Decide admission; that is the permission package.
//   - Persist password-reset state.
package session
