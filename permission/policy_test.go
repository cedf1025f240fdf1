package permission

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPolicyHomePortals(t *testing.T) {
	p := DefaultPolicy()
	want := map[Role]string{
		RoleHR:                "/hr",
		RoleManager:           "/manager",
		RoleTeamLead:          "/manager",
		RoleJuniorDeveloper:   "/employee",
		RoleITTeamMember:      "/it",
		RoleEmployee:          "/employee",
		RoleFinanceTeamMember: "/finance",
	}
	for role, path := range want {
		if got := p.HomePortalFor(role); got != path {
			t.Fatalf("HomePortalFor(%q) = %q want %q", role, got, path)
		}
	}
}

func TestHomePortalForUnknownRoleFailsClosed(t *testing.T) {
	p := DefaultPolicy()
	for _, r := range []Role{"", "Root", "hr"} {
		if got := p.HomePortalFor(r); got != DefaultPortalPath {
			t.Fatalf("HomePortalFor(%q) = %q want default portal", r, got)
		}
	}

	var nilPolicy *Policy
	if got := nilPolicy.HomePortalFor(RoleHR); got != DefaultPortalPath {
		t.Fatalf("nil policy must fail closed, got %q", got)
	}
}

func TestNewPolicyValidation(t *testing.T) {
	cases := []struct {
		name   string
		def    string
		routes []PortalRoute
	}{
		{"unknown role", "", []PortalRoute{{Role: "Root", Paths: []string{"/root"}}}},
		{"duplicate role", "", []PortalRoute{
			{Role: RoleHR, Paths: []string{"/hr"}},
			{Role: RoleHR, Paths: []string{"/hr2"}},
		}},
		{"no paths", "", []PortalRoute{{Role: RoleHR}}},
		{"relative path", "", []PortalRoute{{Role: RoleHR, Paths: []string{"hr"}}}},
		{"relative default", "employee", nil},
	}
	for _, tc := range cases {
		if _, err := NewPolicy(tc.def, tc.routes...); !errors.Is(err, ErrPolicyInvalid) {
			t.Fatalf("%s: expected ErrPolicyInvalid, got %v", tc.name, err)
		}
	}
}

func TestRolesForPathLongestPrefix(t *testing.T) {
	p, err := NewPolicy("",
		PortalRoute{Role: RoleHR, Paths: []string{"/hr", "/reports"}},
		PortalRoute{Role: RoleFinanceTeamMember, Paths: []string{"/finance", "/reports/payroll"}},
		PortalRoute{Role: RoleManager, Paths: []string{"/manager"}},
		PortalRoute{Role: RoleTeamLead, Paths: []string{"/manager"}},
	)
	if err != nil {
		t.Fatalf("NewPolicy failed: %v", err)
	}

	roles, ok := p.RolesForPath("/reports/payroll/2026")
	if !ok || roles.Len() != 1 || !roles.Has(RoleFinanceTeamMember) {
		t.Fatalf("expected finance-only for payroll reports, got %v ok=%v", roles.Roles(), ok)
	}

	roles, ok = p.RolesForPath("/reports/headcount")
	if !ok || !roles.Has(RoleHR) || roles.Has(RoleFinanceTeamMember) {
		t.Fatalf("expected HR for headcount reports, got %v", roles.Roles())
	}

	roles, ok = p.RolesForPath("/manager/team")
	if !ok || roles.Len() != 2 {
		t.Fatalf("expected manager and team lead, got %v", roles.Roles())
	}

	if _, ok := p.RolesForPath("/hrx"); ok {
		t.Fatal("prefix match must respect path segments")
	}
	if _, ok := p.RolesForPath("/public"); ok {
		t.Fatal("unmapped path must report ok=false")
	}
}

func TestAllowedPathsReturnsCopy(t *testing.T) {
	p := DefaultPolicy()
	paths := p.AllowedPaths(RoleHR)
	paths[0] = "/mutated"
	if p.HomePortalFor(RoleHR) != "/hr" {
		t.Fatal("AllowedPaths must not expose internal storage")
	}
	if p.AllowedPaths("Root") != nil {
		t.Fatal("unknown role must have no allowed paths")
	}
}

func TestLoadPolicyYAML(t *testing.T) {
	doc := `
default_portal: /employee
portals:
  - role: hr
    paths: [/hr, /reports/]
  - role: IT Team Member
    paths: [/it]
`
	p, err := LoadPolicy(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadPolicy failed: %v", err)
	}
	if got := p.HomePortalFor(RoleHR); got != "/hr" {
		t.Fatalf("expected /hr, got %q", got)
	}
	if got := p.AllowedPaths(RoleHR); len(got) != 2 || got[1] != "/reports" {
		t.Fatalf("expected cleaned paths, got %v", got)
	}
	if got := p.HomePortalFor(RoleITTeamMember); got != "/it" {
		t.Fatalf("expected /it, got %q", got)
	}
	if got := p.HomePortalFor(RoleManager); got != "/employee" {
		t.Fatalf("unmapped role must use default portal, got %q", got)
	}
}

func TestLoadPolicyRejectsBadDocuments(t *testing.T) {
	docs := []string{
		"",
		"portals:\n  - role: Root\n    paths: [/root]\n",
		"portals:\n  - role: HR\n    paths: [/hr]\n    extra: true\n",
		"default_portal: [not, a, string]\n",
	}
	for _, doc := range docs {
		if _, err := LoadPolicy(strings.NewReader(doc)); !errors.Is(err, ErrPolicyInvalid) {
			t.Fatalf("expected ErrPolicyInvalid for %q, got %v", doc, err)
		}
	}
}

func TestLoadPolicyFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(name, []byte("portals:\n  - role: Finance Team Member\n    paths: [/finance]\n"), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	p, err := LoadPolicyFile(name)
	if err != nil {
		t.Fatalf("LoadPolicyFile failed: %v", err)
	}
	if got := p.HomePortalFor(RoleFinanceTeamMember); got != "/finance" {
		t.Fatalf("expected /finance, got %q", got)
	}

	if _, err := LoadPolicyFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
