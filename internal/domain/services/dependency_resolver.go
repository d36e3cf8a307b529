package services

import (
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/loadout-dev/loadout/internal/domain/entities"
)

// DependencyResolver closes a candidate set over depends_on and rejects
// conflicting or constraint-violating selections.
//
// Algorithm:
// 1. Validate every reference in the whole store
// 2. Close the candidate set with an iterative worklist over handles
// 3. Check every pair of the final set for conflicts
// 4. Check profile version constraints
//
// Dependency cycles are permitted: the closure is set based and the render
// order never depends on edges.
type DependencyResolver struct{}

// NewDependencyResolver creates a new dependency resolver service
func NewDependencyResolver() *DependencyResolver {
	return &DependencyResolver{}
}

// DependencyGraph is the adjacency map of the store expressed in handles.
type DependencyGraph struct {
	dependsOn     [][]entities.Handle
	conflictsWith [][]entities.Handle
}

// Resolve returns the final component set in handle (id) order.
func (r *DependencyResolver) Resolve(
	store *entities.ComponentStore,
	selection *Selection,
	policy *entities.ResolvedPolicy,
) ([]entities.Handle, error) {
	graph, err := r.BuildGraph(store)
	if err != nil {
		return nil, err
	}

	final, err := r.closure(store, graph, selection)
	if err != nil {
		return nil, err
	}

	if err := r.checkConflicts(store, graph, final); err != nil {
		return nil, err
	}

	if err := r.checkConstraints(store, final, policy); err != nil {
		return nil, err
	}

	return final, nil
}

// BuildGraph validates every reference in the store and returns the
// adjacency map. Dangling depends_on fails with MissingDependencyError,
// dangling conflicts_with with a SchemaError on the component's file.
func (r *DependencyResolver) BuildGraph(store *entities.ComponentStore) (*DependencyGraph, error) {
	graph := &DependencyGraph{
		dependsOn:     make([][]entities.Handle, store.Len()),
		conflictsWith: make([][]entities.Handle, store.Len()),
	}

	for h, c := range store.All() {
		for _, dep := range c.DependsOn {
			target, ok := store.Handle(dep)
			if !ok {
				return nil, &entities.MissingDependencyError{Dependent: c.ID, Missing: dep}
			}
			graph.dependsOn[h] = append(graph.dependsOn[h], target)
		}
		for i, other := range c.ConflictsWith {
			target, ok := store.Handle(other)
			if !ok {
				return nil, entities.NewSchemaError(entities.StageDependency, c.Source,
					fmt.Sprintf("conflicts_with[%d]", i),
					fmt.Sprintf("component %s conflicts with unknown component %s", c.ID, other))
			}
			graph.conflictsWith[h] = append(graph.conflictsWith[h], target)
		}
	}

	return graph, nil
}

// closure adds every transitively referenced component to the candidates.
// Referenced components are added regardless of include patterns; one that
// an exclude pattern matched fails the build.
func (r *DependencyResolver) closure(
	store *entities.ComponentStore,
	graph *DependencyGraph,
	selection *Selection,
) ([]entities.Handle, error) {
	inSet := make([]bool, store.Len())
	worklist := make([]entities.Handle, 0, len(selection.Selected))
	for _, h := range selection.Selected {
		if !inSet[h] {
			inSet[h] = true
			worklist = append(worklist, h)
		}
	}

	for len(worklist) > 0 {
		h := worklist[0]
		worklist = worklist[1:]

		for _, dep := range graph.dependsOn[h] {
			if inSet[dep] {
				continue
			}
			if pattern, excluded := selection.Excluded[dep]; excluded {
				return nil, &entities.ExcludedDependencyError{
					Dependent: store.At(h).ID,
					Excluded:  store.At(dep).ID,
					Pattern:   pattern.String(),
				}
			}
			inSet[dep] = true
			worklist = append(worklist, dep)
		}
	}

	final := make([]entities.Handle, 0, len(inSet))
	for h, ok := range inSet {
		if ok {
			final = append(final, entities.Handle(h))
		}
	}
	return final, nil
}

// checkConflicts fails on the first pair, in id order, where either side
// lists the other. There is no priority tie-break.
func (r *DependencyResolver) checkConflicts(
	store *entities.ComponentStore,
	graph *DependencyGraph,
	final []entities.Handle,
) error {
	inSet := make(map[entities.Handle]bool, len(final))
	for _, h := range final {
		inSet[h] = true
	}

	for _, h := range final {
		for _, other := range graph.conflictsWith[h] {
			if !inSet[other] {
				continue
			}
			a, b := store.At(h).ID, store.At(other).ID
			if b < a {
				a, b = b, a
			}
			return &entities.ConflictError{A: a, B: b}
		}
	}
	return nil
}

// checkConstraints verifies profile version constraints for components in
// the final set. Constraints naming absent components are ignored.
func (r *DependencyResolver) checkConstraints(
	store *entities.ComponentStore,
	final []entities.Handle,
	policy *entities.ResolvedPolicy,
) error {
	if policy == nil || len(policy.Constraints) == 0 {
		return nil
	}

	for _, id := range policy.ConstrainedIDs() {
		h, ok := store.Handle(id)
		if !ok {
			continue
		}
		if _, found := slices.BinarySearch(final, h); !found {
			continue
		}

		c := store.At(h)
		constraint := policy.Constraints[id]
		v, err := semver.NewVersion(c.Version)
		if err != nil {
			return entities.NewSchemaError(entities.StageStore, c.Source, "version",
				fmt.Sprintf("invalid semantic version %q: %v", c.Version, err))
		}
		if !constraint.Check(v) {
			return &entities.VersionConstraintError{
				ComponentID: c.ID,
				Version:     c.Version,
				Constraint:  constraint.String(),
			}
		}
	}
	return nil
}
