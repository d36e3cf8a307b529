package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

// rule builds a rule component with the given priority and dependencies.
func rule(id string, priority int, deps ...string) *entities.Component {
	return &entities.Component{
		ID:        id,
		Version:   "1.0.0",
		Kind:      values.KindRule,
		Priority:  priority,
		DependsOn: deps,
		Source:    "components/" + id + ".yaml",
	}
}

func newStore(t *testing.T, components ...*entities.Component) *entities.ComponentStore {
	t.Helper()
	store, err := entities.NewComponentStore(components)
	require.NoError(t, err)
	return store
}

func resolvePolicy(t *testing.T, name string, profiles ...*entities.Profile) *entities.ResolvedPolicy {
	t.Helper()
	set := make(map[string]*entities.Profile, len(profiles))
	for _, p := range profiles {
		set[p.Name] = p
	}
	policy, err := NewProfileResolver().Resolve(name, set)
	require.NoError(t, err)
	return policy
}

// pipeline runs selection, closure and ordering and returns ordered ids.
func pipeline(store *entities.ComponentStore, policy *entities.ResolvedPolicy) ([]string, error) {
	sel := NewSelector().Select(store, policy)
	final, err := NewDependencyResolver().Resolve(store, sel, policy)
	if err != nil {
		return nil, err
	}
	ordered := NewOrderer().Order(store, final)
	ids := make([]string, len(ordered))
	for i, c := range ordered {
		ids[i] = c.ID
	}
	return ids, nil
}
