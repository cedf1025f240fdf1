package middleware

import (
	"net/http"
	"net/url"

	portalAuth "github.com/MrEthical07/portalAuth"
)

// NextParam carries the denied path on the login redirect.
const NextParam = "next"

// SessionFromRequest returns the session admitted by a guard.
func SessionFromRequest(r *http.Request) (*portalAuth.Session, bool) {
	return portalAuth.SessionFromContext(r.Context())
}

// RequireRoles admits requests whose live session holds one of roles. No
// roles admits any signed-in user.
func RequireRoles(m *portalAuth.Manager, roles ...portalAuth.Role) func(http.Handler) http.Handler {
	return guard(m, func(*http.Request) []portalAuth.Role { return roles })
}

// RequirePortal derives the required roles from the policy entry matching
// the request path. Unmapped paths need only a signed-in user.
func RequirePortal(m *portalAuth.Manager) func(http.Handler) http.Handler {
	return guard(m, func(r *http.Request) []portalAuth.Role {
		if m == nil {
			return nil
		}
		set, _ := m.Policy().RolesForPath(r.URL.Path)
		return set.Roles()
	})
}

func guard(m *portalAuth.Manager, required func(*http.Request) []portalAuth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess := m.Current()
			decision := m.AdmitSession(sess, required(r)...)
			if !decision.Admitted() {
				redirectToLogin(w, r, m.LoginPath())
				return
			}

			ctx := portalAuth.WithSession(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	target := loginPath
	if r.URL.Path != "" && r.URL.Path != loginPath {
		target += "?" + url.Values{NextParam: {r.URL.RequestURI()}}.Encode()
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusSeeOther)
}
