package services

import (
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

// Selection is the Selector's candidate set.
type Selection struct {
	// Selected holds candidate handles in id order.
	Selected []entities.Handle
	// Excluded maps every store component matched by an exclude pattern of
	// its kind to the first such pattern.
	Excluded map[entities.Handle]values.Pattern
}

// Contains reports whether h is a candidate.
func (s *Selection) Contains(h entities.Handle) bool {
	for _, sel := range s.Selected {
		if sel == h {
			return true
		}
	}
	return false
}

// Selector applies a resolved policy to the store, kind by kind.
// A component is selected iff it matches an include pattern of its kind and
// no exclude pattern of its kind. Exclude dominates unconditionally.
type Selector struct{}

// NewSelector creates a new selector service.
func NewSelector() *Selector {
	return &Selector{}
}

// Select produces the candidate set for policy.
func (s *Selector) Select(store *entities.ComponentStore, policy *entities.ResolvedPolicy) *Selection {
	specs := make(map[values.ComponentKind]ComponentSpecification, len(values.AllKinds))
	for _, kind := range values.AllKinds {
		kp := policy.For(kind)
		specs[kind] = NewAndSpecification(
			NewIncludePatternsSpecification(kp.Include),
			NewExcludePatternsSpecification(kp.Exclude),
		)
	}

	sel := &Selection{Excluded: make(map[entities.Handle]values.Pattern)}
	for h, c := range store.All() {
		if p, ok := policy.For(c.Kind).FirstExclude(c); ok {
			sel.Excluded[h] = p
		}
		spec, ok := specs[c.Kind]
		if !ok {
			continue
		}
		if satisfied, _ := spec.IsSatisfiedBy(c); satisfied {
			sel.Selected = append(sel.Selected, h)
		}
	}

	return sel
}
