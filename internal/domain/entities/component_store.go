package entities

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/loadout-dev/loadout/internal/domain/values"
)

// Handle addresses a component inside a ComponentStore arena.
// Handles are stable for the lifetime of the store.
type Handle int

// ComponentStore is the read-only snapshot of every loaded component.
// Components live in an arena sorted by id; callers address them by Handle.
// A store is safe to share across goroutines once constructed.
type ComponentStore struct {
	arena []*Component
	index map[string]Handle
}

// NewComponentStore builds a store from decoded components.
// Every component is validated; duplicate ids fail with a SchemaError naming
// both files.
func NewComponentStore(components []*Component) (*ComponentStore, error) {
	arena := make([]*Component, 0, len(components))
	for _, c := range components {
		if c == nil {
			continue
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		arena = append(arena, c)
	}

	slices.SortStableFunc(arena, func(a, b *Component) int {
		return strings.Compare(a.ID, b.ID)
	})

	index := make(map[string]Handle, len(arena))
	for i, c := range arena {
		if prev, ok := index[c.ID]; ok {
			return nil, NewSchemaError(StageStore, c.Source, "id",
				fmt.Sprintf("duplicate component id %q (already defined in %s)", c.ID, arena[prev].Source))
		}
		index[c.ID] = Handle(i)
	}

	return &ComponentStore{arena: arena, index: index}, nil
}

// Get looks up a component by id.
func (s *ComponentStore) Get(id string) (*Component, bool) {
	h, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.arena[h], true
}

// Handle returns the handle for id.
func (s *ComponentStore) Handle(id string) (Handle, bool) {
	h, ok := s.index[id]
	return h, ok
}

// At returns the component behind a handle. It panics on a handle that did
// not come from this store.
func (s *ComponentStore) At(h Handle) *Component {
	return s.arena[h]
}

// Len returns the number of components.
func (s *ComponentStore) Len() int {
	return len(s.arena)
}

// All iterates every component in id order.
func (s *ComponentStore) All() iter.Seq2[Handle, *Component] {
	return func(yield func(Handle, *Component) bool) {
		for i, c := range s.arena {
			if !yield(Handle(i), c) {
				return
			}
		}
	}
}

// Filter iterates components in id order, restricted to kind and tag.
// An empty kind or tag disables that restriction.
func (s *ComponentStore) Filter(kind values.ComponentKind, tag string) iter.Seq2[Handle, *Component] {
	return func(yield func(Handle, *Component) bool) {
		for h, c := range s.All() {
			if kind != "" && c.Kind != kind {
				continue
			}
			if tag != "" && !c.HasTag(tag) {
				continue
			}
			if !yield(h, c) {
				return
			}
		}
	}
}
