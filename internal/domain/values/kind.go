// Package values contains immutable value objects of the loadout domain.
package values

import (
	"fmt"
	"strings"
)

// ComponentKind classifies a component. Selection policies are applied per kind.
type ComponentKind string

const (
	KindRule      ComponentKind = "rule"
	KindSkill     ComponentKind = "skill"
	KindCommand   ComponentKind = "command"
	KindHook      ComponentKind = "hook"
	KindMCPGlobal ComponentKind = "mcp-global"
	KindMCPLocal  ComponentKind = "mcp-local"
)

// AllKinds lists every kind in selection order.
var AllKinds = []ComponentKind{
	KindRule,
	KindSkill,
	KindCommand,
	KindHook,
	KindMCPGlobal,
	KindMCPLocal,
}

// NewComponentKind parses a kind name.
func NewComponentKind(s string) (ComponentKind, error) {
	k := ComponentKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("invalid component kind %q (valid: %s)", s, KindNames())
	}
	return k, nil
}

// IsValid reports whether k is one of the known kinds.
func (k ComponentKind) IsValid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// String returns the string representation
func (k ComponentKind) String() string {
	return string(k)
}

// KindNames returns the comma separated list of valid kinds.
func KindNames() string {
	names := make([]string, len(AllKinds))
	for i, k := range AllKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
