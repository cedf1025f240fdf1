package permission

import (
	"fmt"
	"path"
	"strings"
)

// DefaultPortalPath is the landing path for roles without a policy entry.
// It is the least privileged portal.
const DefaultPortalPath = "/employee"

// PortalRoute binds a role to the portal paths it may enter. The first path is
// the role's home portal.
type PortalRoute struct {
	Role  Role     `yaml:"role"`
	Paths []string `yaml:"paths"`
}

// Policy is the ordered role → portal table. It is immutable after
// construction and safe for concurrent use.
type Policy struct {
	defaultPortal string
	routes        []PortalRoute
	byRole        map[Role]int
}

// NewPolicy validates routes and returns an immutable policy. Every role must
// be a known role, appear at most once, and carry at least one absolute path.
// An empty defaultPortal selects [DefaultPortalPath].
func NewPolicy(defaultPortal string, routes ...PortalRoute) (*Policy, error) {
	if defaultPortal == "" {
		defaultPortal = DefaultPortalPath
	}
	def, err := cleanPortalPath(defaultPortal)
	if err != nil {
		return nil, fmt.Errorf("%w: default portal: %v", ErrPolicyInvalid, err)
	}

	p := &Policy{
		defaultPortal: def,
		routes:        make([]PortalRoute, 0, len(routes)),
		byRole:        make(map[Role]int, len(routes)),
	}

	for _, route := range routes {
		if !route.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrPolicyInvalid, route.Role)
		}
		if _, exists := p.byRole[route.Role]; exists {
			return nil, fmt.Errorf("%w: role %q listed twice", ErrPolicyInvalid, route.Role)
		}
		if len(route.Paths) == 0 {
			return nil, fmt.Errorf("%w: role %q has no portal paths", ErrPolicyInvalid, route.Role)
		}
		paths := make([]string, 0, len(route.Paths))
		for _, raw := range route.Paths {
			cleaned, err := cleanPortalPath(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: role %q: %v", ErrPolicyInvalid, route.Role, err)
			}
			paths = append(paths, cleaned)
		}
		p.byRole[route.Role] = len(p.routes)
		p.routes = append(p.routes, PortalRoute{Role: route.Role, Paths: paths})
	}

	return p, nil
}

// DefaultPolicy returns the built-in portal table.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultPortalPath,
		PortalRoute{Role: RoleHR, Paths: []string{"/hr"}},
		PortalRoute{Role: RoleManager, Paths: []string{"/manager"}},
		PortalRoute{Role: RoleTeamLead, Paths: []string{"/manager"}},
		PortalRoute{Role: RoleJuniorDeveloper, Paths: []string{"/employee"}},
		PortalRoute{Role: RoleITTeamMember, Paths: []string{"/it"}},
		PortalRoute{Role: RoleEmployee, Paths: []string{"/employee"}},
		PortalRoute{Role: RoleFinanceTeamMember, Paths: []string{"/finance"}},
	)
	if err != nil {
		panic("permission: built-in policy invalid: " + err.Error())
	}
	return p
}

// DefaultPortal returns the fail-closed landing path.
func (p *Policy) DefaultPortal() string {
	if p == nil {
		return DefaultPortalPath
	}
	return p.defaultPortal
}

// HomePortalFor returns the landing path for role. Unmapped or unknown roles
// resolve to the default portal; it never fails.
func (p *Policy) HomePortalFor(role Role) string {
	if p == nil {
		return DefaultPortalPath
	}
	idx, ok := p.byRole[role]
	if !ok {
		return p.defaultPortal
	}
	return p.routes[idx].Paths[0]
}

// AllowedPaths returns a copy of the portal paths granted to role.
func (p *Policy) AllowedPaths(role Role) []string {
	if p == nil {
		return nil
	}
	idx, ok := p.byRole[role]
	if !ok {
		return nil
	}
	out := make([]string, len(p.routes[idx].Paths))
	copy(out, p.routes[idx].Paths)
	return out
}

// RolesForPath returns the roles granted the longest portal prefix matching
// urlPath. ok is false when no portal covers the path.
func (p *Policy) RolesForPath(urlPath string) (RoleSet, bool) {
	if p == nil {
		return RoleSet{}, false
	}
	cleaned := path.Clean("/" + strings.TrimPrefix(urlPath, "/"))

	best := ""
	var roles []Role
	for _, route := range p.routes {
		for _, portal := range route.Paths {
			if !hasPathPrefix(cleaned, portal) {
				continue
			}
			switch {
			case len(portal) > len(best):
				best = portal
				roles = append(roles[:0], route.Role)
			case portal == best:
				roles = append(roles, route.Role)
			}
		}
	}
	if best == "" {
		return RoleSet{}, false
	}
	return NewRoleSet(roles...), true
}

// Routes returns a copy of the table in declaration order.
func (p *Policy) Routes() []PortalRoute {
	if p == nil {
		return nil
	}
	out := make([]PortalRoute, len(p.routes))
	for i, r := range p.routes {
		paths := make([]string, len(r.Paths))
		copy(paths, r.Paths)
		out[i] = PortalRoute{Role: r.Role, Paths: paths}
	}
	return out
}

func hasPathPrefix(urlPath, portal string) bool {
	if portal == "/" {
		return true
	}
	if !strings.HasPrefix(urlPath, portal) {
		return false
	}
	return len(urlPath) == len(portal) || urlPath[len(portal)] == '/'
}

func cleanPortalPath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty portal path")
	}
	if !strings.HasPrefix(raw, "/") {
		return "", fmt.Errorf("portal path %q must be absolute", raw)
	}
	return path.Clean(raw), nil
}
