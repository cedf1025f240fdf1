// Package permission holds the role enumeration, the role → portal policy table,
// and the pure admission check used to gate every portal.
//
// # Admission
//
// [Admit] is a pure function of a [Principal] and a [RoleSet]. It carries no
// cache: callers evaluate it on every protected navigation so that a logout or
// forced role change takes effect immediately.
//
// # Routing
//
// [Policy] maps each role to its portal paths. [Policy.HomePortalFor] is total
// over any role value and fails closed to the default portal.
//
// # What this package must NOT do
//
//   - Perform I/O beyond reading a policy document.
//   - Import portalAuth or session (session imports this package).
package permission
