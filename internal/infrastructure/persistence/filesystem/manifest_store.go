// Package filesystem persists manifests and staging trees under the state
// directory (~/.loadout by default).
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/domain/entities"
)

// State directory layout.
const (
	ManifestsDir = "manifests"
	StagingDir   = "staging"
	BuildsDir    = "builds"
)

var _ ports.ManifestRepository = (*ManifestStore)(nil)

// ManifestStore keeps one manifest file per (profile, tool) and one build
// record per profile:
//
//	<state>/manifests/<profile>/<tool>.json
//	<state>/builds/<profile>.json
type ManifestStore struct {
	stateDir string
}

// NewManifestStore creates a new ManifestStore.
func NewManifestStore(stateDir string) *ManifestStore {
	return &ManifestStore{stateDir: stateDir}
}

func (s *ManifestStore) path(profile, tool string) (string, error) {
	if err := checkNames(profile, tool); err != nil {
		return "", err
	}
	return filepath.Join(s.stateDir, ManifestsDir, profile, tool+".json"), nil
}

func (s *ManifestStore) buildPath(profile string) (string, error) {
	if err := checkNames(profile); err != nil {
		return "", err
	}
	return filepath.Join(s.stateDir, BuildsDir, profile+".json"), nil
}

// checkNames rejects names that would leave their directory.
func checkNames(names ...string) error {
	for _, n := range names {
		if !entities.IsSafeName(n) {
			return fmt.Errorf("invalid state name %q", n)
		}
	}
	return nil
}

// Load returns nil when no manifest was saved yet.
func (s *ManifestStore) Load(_ context.Context, profile, tool string) (*entities.Manifest, error) {
	p, err := s.path(profile, tool)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m entities.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &entities.SchemaError{Cause: err, Stage: entities.StageManifest, File: p, Message: err.Error()}
	}
	if err := m.Validate(); err != nil {
		var schemaErr *entities.SchemaError
		if errors.As(err, &schemaErr) {
			schemaErr.File = p
		}
		return nil, err
	}
	return &m, nil
}

// Save writes the manifest to a temp file and renames it into place.
func (s *ManifestStore) Save(_ context.Context, manifest *entities.Manifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}
	p, err := s.path(manifest.Profile, manifest.Tool)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return writeFileAtomic(p, append(data, '\n'), 0o600)
}

// Delete removes the manifest of (profile, tool).
func (s *ManifestStore) Delete(_ context.Context, profile, tool string) error {
	p, err := s.path(profile, tool)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete manifest: %w", err)
	}
	return nil
}

// LoadBuild returns nil when profile was never built.
func (s *ManifestStore) LoadBuild(_ context.Context, profile string) (*entities.StagedBuild, error) {
	p, err := s.buildPath(profile)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read build record: %w", err)
	}

	var b entities.StagedBuild
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, &entities.SchemaError{Cause: err, Stage: entities.StageManifest, File: p, Message: err.Error()}
	}
	if err := b.Validate(); err != nil {
		var schemaErr *entities.SchemaError
		if errors.As(err, &schemaErr) {
			schemaErr.File = p
		}
		return nil, err
	}
	return &b, nil
}

// SaveBuild writes the build record to a temp file and renames it into place.
func (s *ManifestStore) SaveBuild(_ context.Context, build *entities.StagedBuild) error {
	if err := build.Validate(); err != nil {
		return err
	}
	p, err := s.buildPath(build.Profile)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(build, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal build record: %w", err)
	}
	return writeFileAtomic(p, append(data, '\n'), 0o600)
}

// writeFileAtomic writes data next to name and renames it over name.
func writeFileAtomic(name string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(name)
	//nolint:gosec // G301: state directories are user-owned
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // no-op after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, name); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
