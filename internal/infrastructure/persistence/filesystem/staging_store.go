package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/domain/entities"
)

var _ ports.StagingRepository = (*StagingStore)(nil)

// StagingStore keeps one directory per (profile, tool):
//
//	<state>/staging/<profile>/<tool>/<path>
type StagingStore struct {
	stateDir string
}

// NewStagingStore creates a new StagingStore.
func NewStagingStore(stateDir string) *StagingStore {
	return &StagingStore{stateDir: stateDir}
}

func (s *StagingStore) profileDir(profile string) (string, error) {
	if err := checkNames(profile); err != nil {
		return "", err
	}
	return filepath.Join(s.stateDir, StagingDir, profile), nil
}

func (s *StagingStore) toolDir(profile, tool string) (string, error) {
	if err := checkNames(profile, tool); err != nil {
		return "", err
	}
	return filepath.Join(s.stateDir, StagingDir, profile, tool), nil
}

// Commit writes the tree into a fresh directory and swaps it in for the
// previous one. Readers see either the old tree or the new one.
func (s *StagingStore) Commit(ctx context.Context, profile string, tree *entities.StagedTree) error {
	final, err := s.toolDir(profile, tree.Tool)
	if err != nil {
		return err
	}
	parent := filepath.Dir(final)
	//nolint:gosec // G301: state directories are user-owned
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	tmpDir, err := os.MkdirTemp(parent, "."+tree.Tool+".new-*")
	if err != nil {
		return fmt.Errorf("failed to create staging temp dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(tmpDir) // no-op after a successful swap
	}()

	if err := writeTree(ctx, tmpDir, tree); err != nil {
		return err
	}

	old := ""
	if _, err := os.Stat(final); err == nil {
		old = filepath.Join(parent, "."+tree.Tool+".old")
		_ = os.RemoveAll(old)
		if err := os.Rename(final, old); err != nil {
			return fmt.Errorf("failed to move previous staging tree: %w", err)
		}
	}
	if err := os.Rename(tmpDir, final); err != nil {
		if old != "" {
			_ = os.Rename(old, final)
		}
		return fmt.Errorf("failed to commit staging tree: %w", err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}

func writeTree(ctx context.Context, dir string, tree *entities.StagedTree) error {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("failed to open staging temp dir: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	for _, p := range tree.Paths() {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, _ := tree.Get(p)
		if d := path.Dir(p); d != "." {
			if err := root.MkdirAll(d, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", d, err)
			}
		}
		if err := root.WriteFile(p, f.Content, 0o600); err != nil {
			return fmt.Errorf("failed to stage %s: %w", p, err)
		}
	}
	return nil
}

// Read returns every staged file of tool keyed by slash path. A tool that
// was never staged yields an empty map.
func (s *StagingStore) Read(_ context.Context, profile, tool string) (map[string][]byte, error) {
	dir, err := s.toolDir(profile, tool)
	if err != nil {
		return nil, err
	}
	files := make(map[string][]byte)

	root, err := os.OpenRoot(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return files, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open staging tree: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	fsys := root.FS()
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		files[p] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read staging tree: %w", err)
	}
	return files, nil
}

// Tools lists the staged tools of profile, sorted.
func (s *StagingStore) Tools(_ context.Context, profile string) ([]string, error) {
	dir, err := s.profileDir(profile)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list staging trees: %w", err)
	}

	var tools []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			tools = append(tools, e.Name())
		}
	}
	slices.Sort(tools)
	return tools, nil
}

// Remove deletes the staged tree of (profile, tool).
func (s *StagingStore) Remove(_ context.Context, profile, tool string) error {
	dir, err := s.toolDir(profile, tool)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove staging tree: %w", err)
	}
	return nil
}
