package services

import (
	"cmp"
	"slices"

	"github.com/loadout-dev/loadout/internal/domain/entities"
)

// Orderer produces the render order: priority descending, then id ascending.
// Ids are unique, so the order is total and identical across builds.
type Orderer struct{}

// NewOrderer creates a new orderer service.
func NewOrderer() *Orderer {
	return &Orderer{}
}

// Order resolves handles against the store and sorts the components.
func (o *Orderer) Order(store *entities.ComponentStore, handles []entities.Handle) []*entities.Component {
	ordered := make([]*entities.Component, 0, len(handles))
	for _, h := range handles {
		ordered = append(ordered, store.At(h))
	}
	slices.SortStableFunc(ordered, CompareRenderOrder)
	return ordered
}

// CompareRenderOrder compares two components by (priority desc, id asc).
func CompareRenderOrder(a, b *entities.Component) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
