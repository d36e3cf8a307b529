package services

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

// ComponentSpecification defines a condition that a component must meet.
type ComponentSpecification interface {
	// IsSatisfiedBy checks if the component meets the specification.
	// Returns true if satisfied, along with a reason if not (or empty if satisfied).
	IsSatisfiedBy(c *entities.Component) (bool, string)
}

// AndSpecification combines multiple specifications with logical AND.
type AndSpecification struct {
	specs []ComponentSpecification
}

// NewAndSpecification creates a new AndSpecification.
func NewAndSpecification(specs ...ComponentSpecification) *AndSpecification {
	return &AndSpecification{specs: specs}
}

// IsSatisfiedBy checks if all specifications are satisfied.
func (s *AndSpecification) IsSatisfiedBy(c *entities.Component) (bool, string) {
	for _, spec := range s.specs {
		if satisfied, reason := spec.IsSatisfiedBy(c); !satisfied {
			return false, reason
		}
	}
	return true, ""
}

// IncludePatternsSpecification is satisfied by components matching any include pattern.
// An empty pattern list selects nothing.
type IncludePatternsSpecification struct {
	patterns []values.Pattern
}

// NewIncludePatternsSpecification creates a new IncludePatternsSpecification.
func NewIncludePatternsSpecification(patterns []values.Pattern) *IncludePatternsSpecification {
	return &IncludePatternsSpecification{patterns: patterns}
}

// IsSatisfiedBy checks if the component matches at least one include pattern.
func (s *IncludePatternsSpecification) IsSatisfiedBy(c *entities.Component) (bool, string) {
	for _, p := range s.patterns {
		if p.Matches(c.ID, c.Tags) {
			return true, ""
		}
	}
	return false, "not matched by any include pattern"
}

// ExcludePatternsSpecification is satisfied by components matching no exclude pattern.
type ExcludePatternsSpecification struct {
	patterns []values.Pattern
}

// NewExcludePatternsSpecification creates a new ExcludePatternsSpecification.
func NewExcludePatternsSpecification(patterns []values.Pattern) *ExcludePatternsSpecification {
	return &ExcludePatternsSpecification{patterns: patterns}
}

// IsSatisfiedBy checks if the component escapes every exclude pattern.
func (s *ExcludePatternsSpecification) IsSatisfiedBy(c *entities.Component) (bool, string) {
	for _, p := range s.patterns {
		if p.Matches(c.ID, c.Tags) {
			return false, fmt.Sprintf("excluded by pattern %q", p.String())
		}
	}
	return true, ""
}

// KindSpecification includes only components of the given kinds.
type KindSpecification struct {
	kinds map[values.ComponentKind]bool
}

// NewKindSpecification creates a new KindSpecification.
func NewKindSpecification(kinds map[values.ComponentKind]bool) *KindSpecification {
	return &KindSpecification{kinds: kinds}
}

// IsSatisfiedBy checks if the component kind is in the included list.
func (s *KindSpecification) IsSatisfiedBy(c *entities.Component) (bool, string) {
	if len(s.kinds) == 0 {
		return true, ""
	}
	if !s.kinds[c.Kind] {
		return false, "excluded by --kind filter"
	}
	return true, ""
}

// IncludedTagsSpecification includes only components with any of the specified tags.
type IncludedTagsSpecification struct {
	tags map[string]bool
}

// NewIncludedTagsSpecification creates a new IncludedTagsSpecification.
func NewIncludedTagsSpecification(tags map[string]bool) *IncludedTagsSpecification {
	return &IncludedTagsSpecification{tags: tags}
}

// IsSatisfiedBy checks if the component has ANY of the included tags.
func (s *IncludedTagsSpecification) IsSatisfiedBy(c *entities.Component) (bool, string) {
	if len(s.tags) == 0 {
		return true, ""
	}
	for _, tag := range c.Tags {
		if s.tags[tag] {
			return true, ""
		}
	}
	return false, "excluded by --tag filter"
}

// ExpressionSpecification filters components using an expr program.
type ExpressionSpecification struct {
	program *vm.Program
}

// NewExpressionSpecification creates a new ExpressionSpecification.
func NewExpressionSpecification(program *vm.Program) *ExpressionSpecification {
	return &ExpressionSpecification{program: program}
}

// IsSatisfiedBy evaluates the expr program against the component.
func (s *ExpressionSpecification) IsSatisfiedBy(c *entities.Component) (bool, string) {
	if s.program == nil {
		return true, ""
	}

	// ComponentEnv is defined in component_filter.go (same package)
	output, err := expr.Run(s.program, NewComponentEnv(c))
	if err != nil {
		return false, fmt.Sprintf("filter expression error: %v", err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Sprintf("filter expression did not return boolean: %v", output)
	}

	if !result {
		return false, "excluded by --filter expression"
	}

	return true, ""
}
