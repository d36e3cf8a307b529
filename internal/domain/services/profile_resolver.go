package services

import (
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

// ProfileResolver flattens a profile's extends chain into a ResolvedPolicy.
// This is a DOMAIN SERVICE because merge semantics are business rules.
//
// Merge Semantics (root first, fold toward the requested profile):
//   - Include patterns: appended, deduplicated, order preserved
//   - Exclude patterns: appended, deduplicated, order preserved
//   - Variables: overlay wins by key
//   - Constraints: overlay wins by key
//
// Excludes are never removed by a descendant, so an ancestor's exclusion
// stays in force for the whole chain.
type ProfileResolver struct{}

// NewProfileResolver creates a new profile resolver service.
func NewProfileResolver() *ProfileResolver {
	return &ProfileResolver{}
}

// Resolve walks the extends chain of name and folds it into a policy.
// It fails with CyclicProfileError before any merge work when the chain
// revisits a profile.
func (r *ProfileResolver) Resolve(name string, profiles map[string]*entities.Profile) (*entities.ResolvedPolicy, error) {
	chain, err := r.Chain(name, profiles)
	if err != nil {
		return nil, err
	}

	policy := &entities.ResolvedPolicy{
		Name:        name,
		Chain:       make([]string, 0, len(chain)),
		Kinds:       make(map[values.ComponentKind]entities.KindPolicy, len(values.AllKinds)),
		Variables:   make(map[string]interface{}),
		Constraints: make(map[string]*semver.Constraints),
	}

	for _, p := range chain {
		if err := r.apply(policy, p); err != nil {
			return nil, err
		}
		policy.Chain = append(policy.Chain, p.Name)
	}

	return policy, nil
}

// Chain returns the profiles from root ancestor to name.
// The walk is iterative and records every visited profile.
func (r *ProfileResolver) Chain(name string, profiles map[string]*entities.Profile) ([]*entities.Profile, error) {
	var walk []string
	visited := make(map[string]int)
	var stack []*entities.Profile

	current, referencedBy := name, ""
	for current != "" {
		if idx, seen := visited[current]; seen {
			cycle := append(slices.Clone(walk[idx:]), current)
			return nil, &entities.CyclicProfileError{Cycle: cycle}
		}

		p, ok := profiles[current]
		if !ok {
			return nil, &entities.ProfileNotFoundError{Name: current, ReferencedBy: referencedBy}
		}

		visited[current] = len(walk)
		walk = append(walk, current)
		stack = append(stack, p)

		referencedBy = current
		current = p.Extends
	}

	slices.Reverse(stack)
	return stack, nil
}

// apply folds one profile level onto the policy.
func (r *ProfileResolver) apply(policy *entities.ResolvedPolicy, p *entities.Profile) error {
	for _, kind := range values.AllKinds {
		rule := p.Selection(kind)
		if rule.IsEmpty() {
			continue
		}
		key := entities.SelectionKey(kind)

		include, err := r.parsePatterns(p, key+".include", rule.Include)
		if err != nil {
			return err
		}
		exclude, err := r.parsePatterns(p, key+".exclude", rule.Exclude)
		if err != nil {
			return err
		}

		kp := policy.Kinds[kind]
		kp.Include = mergePatternsDedup(kp.Include, include)
		kp.Exclude = mergePatternsDedup(kp.Exclude, exclude)
		policy.Kinds[kind] = kp
	}

	for k, v := range p.Variables {
		policy.Variables[k] = DeepCopyValue(v) // Overlay wins on conflict
	}

	for id, raw := range p.Constraints {
		c, err := semver.NewConstraint(raw)
		if err != nil {
			return entities.NewSchemaError(entities.StageProfile, p.Source, "constraints."+id,
				fmt.Sprintf("invalid version constraint %q: %v", raw, err))
		}
		policy.Constraints[id] = c
	}

	return nil
}

func (r *ProfileResolver) parsePatterns(p *entities.Profile, field string, raws []string) ([]values.Pattern, error) {
	patterns := make([]values.Pattern, 0, len(raws))
	for i, raw := range raws {
		pat, err := values.NewPattern(raw)
		if err != nil {
			return nil, entities.NewSchemaError(entities.StageProfile, p.Source,
				fmt.Sprintf("%s[%d]", field, i), err.Error())
		}
		patterns = append(patterns, pat)
	}
	return patterns, nil
}

// mergePatternsDedup concatenates two pattern lists and deduplicates, preserving order.
func mergePatternsDedup(base, overlay []values.Pattern) []values.Pattern {
	seen := make(map[string]bool, len(base)+len(overlay))
	result := make([]values.Pattern, 0, len(base)+len(overlay))
	for _, list := range [][]values.Pattern{base, overlay} {
		for _, p := range list {
			if !seen[p.String()] {
				seen[p.String()] = true
				result = append(result, p)
			}
		}
	}
	return result
}
