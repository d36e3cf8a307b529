package services

import (
	"slices"
	"strings"

	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

// Differ classifies a new manifest against the previous build of the same
// (profile, tool) pair.
type Differ struct{}

// NewDiffer creates a new differ service.
func NewDiffer() *Differ {
	return &Differ{}
}

// Diff classifies every path as Added, Changed, Unchanged or Removed.
// previous may be nil for a first build. Changes are sorted by path.
func (d *Differ) Diff(previous, current *entities.Manifest) entities.DiffReport {
	report := entities.DiffReport{Profile: current.Profile, Tool: current.Tool}

	for _, e := range current.Entries {
		change := entities.PathChange{Path: e.Path, Current: e.Hash, Change: values.ChangeAdded}
		if previous != nil {
			if prev, ok := previous.Lookup(e.Path); ok {
				change.Previous = prev
				change.Change = values.ChangeChanged
				if prev.Equals(e.Hash) {
					change.Change = values.ChangeUnchanged
				}
			}
		}
		report.Changes = append(report.Changes, change)
	}

	if previous != nil {
		for _, e := range previous.Entries {
			if _, ok := current.Lookup(e.Path); !ok {
				report.Changes = append(report.Changes, entities.PathChange{
					Path:     e.Path,
					Previous: e.Hash,
					Change:   values.ChangeRemoved,
				})
			}
		}
	}

	slices.SortFunc(report.Changes, func(a, b entities.PathChange) int {
		return strings.Compare(a.Path, b.Path)
	})
	return report
}
