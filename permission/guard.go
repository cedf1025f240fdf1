package permission

// Principal is the view of a session that admission needs. session.Session
// implements it; a nil *session.Session reports unauthenticated.
type Principal interface {
	IsAuthenticated() bool
	Role() Role
}

// Outcome is the result of an admission check.
type Outcome uint8

const (
	// OutcomeAdmit lets the navigation proceed.
	OutcomeAdmit Outcome = iota + 1
	// OutcomeRedirectToLogin sends the caller to the login route.
	OutcomeRedirectToLogin
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdmit:
		return "admit"
	case OutcomeRedirectToLogin:
		return "redirect_to_login"
	default:
		return "unknown"
	}
}

// Decision carries the outcome and, for denials, the reason
// ([ErrNotAuthenticated] or [ErrRoleNotPermitted]).
type Decision struct {
	Outcome Outcome
	Reason  error
}

// Admitted reports whether the decision is [OutcomeAdmit].
func (d Decision) Admitted() bool { return d.Outcome == OutcomeAdmit }

// Err returns nil for admitted decisions and the denial reason otherwise.
func (d Decision) Err() error {
	if d.Admitted() {
		return nil
	}
	if d.Reason == nil {
		return ErrNotAuthenticated
	}
	return d.Reason
}

// Admit decides whether p may enter a route guarded by required. It holds no
// state and must be called on every protected navigation.
//
// An unauthenticated principal is always redirected. An empty required set
// admits any authenticated principal. Otherwise the principal's role must be a
// member of required.
func Admit(p Principal, required RoleSet) Decision {
	if p == nil || !p.IsAuthenticated() {
		return Decision{Outcome: OutcomeRedirectToLogin, Reason: ErrNotAuthenticated}
	}
	if required.Empty() {
		return Decision{Outcome: OutcomeAdmit}
	}
	if required.Has(p.Role()) {
		return Decision{Outcome: OutcomeAdmit}
	}
	return Decision{Outcome: OutcomeRedirectToLogin, Reason: ErrRoleNotPermitted}
}
