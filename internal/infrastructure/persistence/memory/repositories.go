// Package memory provides in-memory implementations of the build stores.
// Useful for testing and ephemeral builds that must not touch the state
// directory.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/loadout-dev/loadout/internal/application/dto"
	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/domain/entities"
)

// Ensure interface compliance
var (
	_ ports.ManifestRepository = (*ManifestRepository)(nil)
	_ ports.StagingRepository  = (*StagingRepository)(nil)
	_ ports.BuildHistory       = (*BuildHistory)(nil)
)

type pairKey struct {
	profile string
	tool    string
}

// ManifestRepository keeps the last manifest per (profile, tool) and the
// last build record per profile.
type ManifestRepository struct {
	manifests map[pairKey]*entities.Manifest
	builds    map[string]*entities.StagedBuild
	mu        sync.RWMutex
}

// NewManifestRepository creates a new in-memory repository.
func NewManifestRepository() *ManifestRepository {
	return &ManifestRepository{
		manifests: make(map[pairKey]*entities.Manifest),
		builds:    make(map[string]*entities.StagedBuild),
	}
}

// Load returns nil when no manifest exists.
func (r *ManifestRepository) Load(_ context.Context, profile, tool string) (*entities.Manifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.manifests[pairKey{profile, tool}], nil
}

// Save replaces the stored manifest. Manifests are immutable once built, so
// the pointer is stored as is.
func (r *ManifestRepository) Save(_ context.Context, manifest *entities.Manifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[pairKey{manifest.Profile, manifest.Tool}] = manifest
	return nil
}

// Delete removes the manifest of (profile, tool).
func (r *ManifestRepository) Delete(_ context.Context, profile, tool string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.manifests, pairKey{profile, tool})
	return nil
}

// LoadBuild returns nil when profile was never built.
func (r *ManifestRepository) LoadBuild(_ context.Context, profile string) (*entities.StagedBuild, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builds[profile]
	if !ok {
		return nil, nil
	}
	cp := *b
	cp.Tools = slices.Clone(b.Tools)
	return &cp, nil
}

// SaveBuild replaces the build record of build.Profile.
func (r *ManifestRepository) SaveBuild(_ context.Context, build *entities.StagedBuild) error {
	if err := build.Validate(); err != nil {
		return err
	}
	cp := *build
	cp.Tools = slices.Clone(build.Tools)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builds[build.Profile] = &cp
	return nil
}

// StagingRepository keeps staged trees by (profile, tool).
type StagingRepository struct {
	trees map[pairKey]map[string][]byte
	mu    sync.RWMutex
}

// NewStagingRepository creates a new in-memory repository.
func NewStagingRepository() *StagingRepository {
	return &StagingRepository{trees: make(map[pairKey]map[string][]byte)}
}

// Commit replaces the whole tree in one step.
func (r *StagingRepository) Commit(_ context.Context, profile string, tree *entities.StagedTree) error {
	contents := tree.Contents()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trees[pairKey{profile, tree.Tool}] = contents
	return nil
}

// Read returns a copy of the staged files.
func (r *StagingRepository) Read(_ context.Context, profile, tool string) (map[string][]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tree, ok := r.trees[pairKey{profile, tool}]
	if !ok {
		return map[string][]byte{}, nil
	}
	return maps.Clone(tree), nil
}

// Tools lists the staged tools of profile, sorted.
func (r *StagingRepository) Tools(_ context.Context, profile string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var tools []string
	for k := range r.trees {
		if k.profile == profile {
			tools = append(tools, k.tool)
		}
	}
	slices.Sort(tools)
	return tools, nil
}

// Remove deletes the staged tree of (profile, tool).
func (r *StagingRepository) Remove(_ context.Context, profile, tool string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trees, pairKey{profile, tool})
	return nil
}

// BuildHistory is an in-memory build log.
type BuildHistory struct {
	records []dto.BuildRecord
	mu      sync.RWMutex
}

// NewBuildHistory creates a new in-memory history.
func NewBuildHistory() *BuildHistory {
	return &BuildHistory{}
}

// Record appends records.
func (h *BuildHistory) Record(_ context.Context, records []dto.BuildRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, records...)
	return nil
}

// Recent returns records of profile (all when empty), newest first.
func (h *BuildHistory) Recent(_ context.Context, profile string, limit int) ([]dto.BuildRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var matches []dto.BuildRecord
	for _, rec := range h.records {
		if profile == "" || rec.Profile == profile {
			matches = append(matches, rec)
		}
	}

	// Sort by creation time descending (newest first)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Close is a no-op.
func (h *BuildHistory) Close() error {
	return nil
}
