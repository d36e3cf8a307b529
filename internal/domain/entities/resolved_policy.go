package entities

import (
	"maps"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

// KindPolicy holds one kind's flattened patterns in application order.
type KindPolicy struct {
	Include []values.Pattern
	Exclude []values.Pattern
}

// FirstExclude returns the first exclude pattern matching the component.
func (k KindPolicy) FirstExclude(c *Component) (values.Pattern, bool) {
	for _, p := range k.Exclude {
		if p.Matches(c.ID, c.Tags) {
			return p, true
		}
	}
	return values.Pattern{}, false
}

// ResolvedPolicy is the flattened result of folding a profile's extends chain.
// It is immutable once built by the ProfileResolver.
type ResolvedPolicy struct {
	// Name is the requested profile.
	Name string
	// Chain lists the profiles folded into this policy, root first.
	Chain       []string
	Kinds       map[values.ComponentKind]KindPolicy
	Variables   map[string]interface{}
	Constraints map[string]*semver.Constraints
}

// For returns the policy for kind. Kinds without patterns select nothing.
func (p *ResolvedPolicy) For(kind values.ComponentKind) KindPolicy {
	return p.Kinds[kind]
}

// Variable looks up a top-level variable binding.
func (p *ResolvedPolicy) Variable(name string) (interface{}, bool) {
	v, ok := p.Variables[name]
	return v, ok
}

// ConstrainedIDs returns the constrained component ids, sorted.
func (p *ResolvedPolicy) ConstrainedIDs() []string {
	return slices.Sorted(maps.Keys(p.Constraints))
}
