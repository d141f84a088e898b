package ir

import (
	"fmt"
	"strings"
)

// Entry is a single resource to reconcile.
type Entry struct {
	Address       string `yaml:"address" pkl:"address"`
	Kind          Kind   `yaml:"kind" pkl:"kind"`
	Name          string `yaml:"name" pkl:"name"`
	ResourceGroup string `yaml:"resourceGroup,omitempty" pkl:"resourceGroup"`

	// Role assignments only: the resource the role is scoped to, the identity
	// holding it, and the role definition (name or GUID).
	Scope     *Entry `yaml:"scope,omitempty" pkl:"scope"`
	Principal *Entry `yaml:"principal,omitempty" pkl:"principal"`
	Role      string `yaml:"role,omitempty" pkl:"role"`
}

func (e *Entry) String() string {
	if e.Name == "" {
		return e.Address
	}
	return fmt.Sprintf("%s (%s %q)", e.Address, e.Kind, e.Name)
}

// Batch is an ordered list of entries reconciled under one lock.
type Batch struct {
	Entries []*Entry `yaml:"resources" pkl:"resources"`
}

// Validate checks that every entry is well-formed and that addresses are unique.
func (b *Batch) Validate() error {
	if b == nil || len(b.Entries) == 0 {
		return fmt.Errorf("batch has no resources")
	}

	seen := make(map[string]bool, len(b.Entries))
	for i, e := range b.Entries {
		if e == nil {
			return fmt.Errorf("resource #%d is empty", i+1)
		}
		addr := strings.TrimSpace(e.Address)
		if addr == "" {
			return fmt.Errorf("resource #%d has no address", i+1)
		}
		if seen[addr] {
			return fmt.Errorf("duplicate address %q", addr)
		}
		seen[addr] = true

		if err := e.validateLookup(); err != nil {
			return fmt.Errorf("resource %s: %w", addr, err)
		}
	}
	return nil
}

func (e *Entry) validateLookup() error {
	k, err := ParseKind(string(e.Kind))
	if err != nil {
		return err
	}
	e.Kind = k

	switch e.Kind {
	case KindResourceGroup:
		if e.Name == "" {
			return fmt.Errorf("name is required")
		}
	case KindRoleAssignment:
		if e.Scope == nil || e.Principal == nil {
			return fmt.Errorf("role assignments need both scope and principal")
		}
		if err := e.Scope.validateLookup(); err != nil {
			return fmt.Errorf("scope: %w", err)
		}
		if err := e.Principal.validateLookup(); err != nil {
			return fmt.Errorf("principal: %w", err)
		}
		if e.Principal.Kind != KindUserAssignedIdentity {
			return fmt.Errorf("role assignment principal must be a %s, got %q", KindUserAssignedIdentity, e.Principal.Kind)
		}
	default:
		if e.Name == "" {
			return fmt.Errorf("name is required")
		}
		if e.ResourceGroup == "" {
			return fmt.Errorf("resourceGroup is required for %s", e.Kind)
		}
	}
	return nil
}
