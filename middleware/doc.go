// Package middleware exposes HTTP guards that gate portal routes on the
// live session of a portalAuth.Manager.
//
// # Guards
//
//   - [RequireRoles]: admits listed roles (or any signed-in user).
//   - [RequirePortal]: derives the roles from the policy path table.
//
// Each guard evaluates the session on every request, redirects denials to
// the manager's login path with a next parameter, and injects the admitted
// session into the request context.
//
// # What this package must NOT do
//
//   - Decide access itself (delegates to Manager.AdmitSession).
//   - Cache decisions between requests.
//   - Touch the session store.
package middleware
