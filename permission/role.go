package permission

import (
	"sort"
	"strings"
)

// Role is an application role carried in a user record. Valid values are the
// constants below; any other value fails closed in [Admit] and [Policy].
type Role string

const (
	RoleHR                Role = "HR"
	RoleManager           Role = "Manager"
	RoleTeamLead          Role = "TeamLead"
	RoleJuniorDeveloper   Role = "JuniorDeveloper"
	RoleITTeamMember      Role = "ITTeamMember"
	RoleEmployee          Role = "Employee"
	RoleFinanceTeamMember Role = "FinanceTeamMember"
)

var knownRoles = []Role{
	RoleHR,
	RoleManager,
	RoleTeamLead,
	RoleJuniorDeveloper,
	RoleITTeamMember,
	RoleEmployee,
	RoleFinanceTeamMember,
}

// AllRoles returns the fixed role enumeration in declaration order.
func AllRoles() []Role {
	out := make([]Role, len(knownRoles))
	copy(out, knownRoles)
	return out
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	for _, k := range knownRoles {
		if r == k {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole matches s against the enumeration, ignoring case, surrounding
// whitespace, and separators ("it_team_member", "IT Team Member").
func ParseRole(s string) (Role, bool) {
	norm := normalizeRoleName(s)
	if norm == "" {
		return "", false
	}
	for _, k := range knownRoles {
		if normalizeRoleName(string(k)) == norm {
			return k, true
		}
	}
	return "", false
}

func normalizeRoleName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range strings.TrimSpace(s) {
		switch c {
		case ' ', '_', '-', '.':
			continue
		}
		b.WriteRune(c)
	}
	return strings.ToLower(b.String())
}

// RoleSet is an unordered set of roles required by a route. The zero value is
// an empty set, which admits any authenticated session.
type RoleSet struct {
	roles map[Role]struct{}
}

// NewRoleSet builds a set from roles; duplicates collapse.
func NewRoleSet(roles ...Role) RoleSet {
	if len(roles) == 0 {
		return RoleSet{}
	}
	set := RoleSet{roles: make(map[Role]struct{}, len(roles))}
	for _, r := range roles {
		set.roles[r] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s RoleSet) Has(r Role) bool {
	_, ok := s.roles[r]
	return ok
}

// Len returns the number of distinct roles.
func (s RoleSet) Len() int { return len(s.roles) }

// Empty reports whether the set has no roles.
func (s RoleSet) Empty() bool { return len(s.roles) == 0 }

// Roles returns the members sorted by name.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s.roles))
	for r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Union returns a new set holding the members of s and other.
func (s RoleSet) Union(other RoleSet) RoleSet {
	merged := make([]Role, 0, s.Len()+other.Len())
	merged = append(merged, s.Roles()...)
	merged = append(merged, other.Roles()...)
	return NewRoleSet(merged...)
}
