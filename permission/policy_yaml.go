package permission

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type policyFile struct {
	DefaultPortal string `yaml:"default_portal"`
	Portals       []struct {
		Role  string   `yaml:"role"`
		Paths []string `yaml:"paths"`
	} `yaml:"portals"`
}

// LoadPolicy decodes a YAML portal table:
//
//	default_portal: /employee
//	portals:
//	  - role: HR
//	    paths: [/hr, /reports]
//
// Role names are matched with [ParseRole].
func LoadPolicy(r io.Reader) (*Policy, error) {
	var doc policyFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty policy document", ErrPolicyInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrPolicyInvalid, err)
	}

	routes := make([]PortalRoute, 0, len(doc.Portals))
	for _, entry := range doc.Portals {
		role, ok := ParseRole(entry.Role)
		if !ok {
			return nil, fmt.Errorf("%w: unknown role %q", ErrPolicyInvalid, entry.Role)
		}
		routes = append(routes, PortalRoute{Role: role, Paths: entry.Paths})
	}

	return NewPolicy(doc.DefaultPortal, routes...)
}

// LoadPolicyFile reads a YAML portal table from disk.
func LoadPolicyFile(name string) (*Policy, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()
	return LoadPolicy(f)
}
