package entities

import (
	"fmt"

	"github.com/loadout-dev/loadout/internal/domain/values"
)

// Profile is a named, inheritable selection policy.
// This is an aggregate root in the Composition bounded context.
//
// Invariants Enforced:
// - Profile name is required and usable as a directory name
// - A profile cannot extend itself
// - Every include/exclude entry parses as a Pattern
type Profile struct {
	Name        string                 `yaml:"name" json:"name" validate:"required"`
	Extends     string                 `yaml:"extends,omitempty" json:"extends,omitempty"`
	Description string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Rules       SelectionRule          `yaml:"rules,omitempty" json:"rules,omitempty"`
	Skills      SelectionRule          `yaml:"skills,omitempty" json:"skills,omitempty"`
	Commands    SelectionRule          `yaml:"commands,omitempty" json:"commands,omitempty"`
	Hooks       SelectionRule          `yaml:"hooks,omitempty" json:"hooks,omitempty"`
	MCPGlobal   SelectionRule          `yaml:"mcp-global,omitempty" json:"mcp-global,omitempty"`
	MCPLocal    SelectionRule          `yaml:"mcp-local,omitempty" json:"mcp-local,omitempty"`
	Variables   map[string]interface{} `yaml:"variables,omitempty" json:"variables,omitempty"`
	Constraints map[string]string      `yaml:"constraints,omitempty" json:"constraints,omitempty"`

	// Source is the file the profile was loaded from.
	Source string `yaml:"-" json:"-"`
}

// SelectionRule is one kind's include/exclude pattern lists.
type SelectionRule struct {
	Include []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// IsEmpty reports whether the rule has no patterns.
func (r SelectionRule) IsEmpty() bool {
	return len(r.Include) == 0 && len(r.Exclude) == 0
}

// Selection returns the rule for kind.
func (p *Profile) Selection(kind values.ComponentKind) SelectionRule {
	switch kind {
	case values.KindRule:
		return p.Rules
	case values.KindSkill:
		return p.Skills
	case values.KindCommand:
		return p.Commands
	case values.KindHook:
		return p.Hooks
	case values.KindMCPGlobal:
		return p.MCPGlobal
	case values.KindMCPLocal:
		return p.MCPLocal
	default:
		return SelectionRule{}
	}
}

// SelectionKey returns the profile field name used for kind.
func SelectionKey(kind values.ComponentKind) string {
	switch kind {
	case values.KindRule:
		return "rules"
	case values.KindSkill:
		return "skills"
	case values.KindCommand:
		return "commands"
	case values.KindHook:
		return "hooks"
	default:
		return kind.String()
	}
}

// Validate checks the profile's own invariants. Inheritance is resolved
// separately by the ProfileResolver.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return NewSchemaError(StageProfile, p.Source, "name", "profile name cannot be empty")
	}
	if !IsSafeName(p.Name) {
		return NewSchemaError(StageProfile, p.Source, "name",
			fmt.Sprintf("invalid profile name %q (letters, digits, '.', '_' and '-' only; not '.' or '..')", p.Name))
	}
	if p.Extends == p.Name {
		return &CyclicProfileError{Cycle: []string{p.Name, p.Name}}
	}
	for _, kind := range values.AllKinds {
		rule := p.Selection(kind)
		key := SelectionKey(kind)
		for i, raw := range rule.Include {
			if _, err := values.NewPattern(raw); err != nil {
				return NewSchemaError(StageProfile, p.Source, fmt.Sprintf("%s.include[%d]", key, i), err.Error())
			}
		}
		for i, raw := range rule.Exclude {
			if _, err := values.NewPattern(raw); err != nil {
				return NewSchemaError(StageProfile, p.Source, fmt.Sprintf("%s.exclude[%d]", key, i), err.Error())
			}
		}
	}
	return nil
}
