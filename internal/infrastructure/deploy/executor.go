// Package deploy copies staged builds into live tool locations.
package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/loadout-dev/loadout/internal/application/dto"
	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
	"github.com/loadout-dev/loadout/internal/infrastructure/secrets"
	"github.com/loadout-dev/loadout/internal/infrastructure/sensitivedata"
)

var _ ports.DeployExecutor = (*FileExecutor)(nil)

// TargetLookup returns the live directory of a tool.
type TargetLookup func(tool string) (string, bool)

// FileExecutor verifies staged content against its manifest, expands secret
// references and writes every file into the tool's target directory while
// holding the target lock.
type FileExecutor struct {
	targets  TargetLookup
	resolver ports.SecretResolver
	redactor *sensitivedata.Provider
	logger   *slog.Logger
}

// NewFileExecutor creates a new file executor. redactor may be nil.
func NewFileExecutor(targets TargetLookup, resolver ports.SecretResolver, redactor *sensitivedata.Provider, logger *slog.Logger) *FileExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileExecutor{
		targets:  targets,
		resolver: resolver,
		redactor: redactor,
		logger:   logger,
	}
}

// Deploy implements ports.DeployExecutor. Tools are deployed in name order;
// the first failure stops the deploy. In dry-run mode everything is checked
// and resolved but nothing is written.
func (e *FileExecutor) Deploy(ctx context.Context, build *dto.BuildResult, dryRun bool) (*dto.DeployResult, error) {
	result := &dto.DeployResult{BuildID: build.BuildID, Profile: build.Profile, DryRun: dryRun}

	outputs := slices.Clone(build.Outputs)
	slices.SortFunc(outputs, func(a, b *dto.ToolOutput) int { return strings.Compare(a.Tool, b.Tool) })

	for _, out := range outputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		deployed, err := e.deployTool(ctx, out, dryRun)
		if err != nil {
			return nil, sensitivedata.SafeError(err, e.redactor)
		}
		result.Tools = append(result.Tools, deployed)
	}
	return result, nil
}

func (e *FileExecutor) deployTool(ctx context.Context, out *dto.ToolOutput, dryRun bool) (*dto.ToolDeploy, error) {
	target, ok := e.targets(out.Tool)
	if !ok {
		return nil, fmt.Errorf("no deploy target configured for tool %q (set deploy.targets.%s)", out.Tool, out.Tool)
	}
	if err := verify(out); err != nil {
		return nil, err
	}

	// Resolve before locking so a missing secret never leaves a half
	// written target.
	final := make(map[string][]byte, len(out.Files))
	secretCount := 0
	for _, p := range slices.Sorted(maps.Keys(out.Files)) {
		content, n, err := secrets.Expand(e.resolver, out.Files[p], escaperFor(p))
		if err != nil {
			return nil, fmt.Errorf("tool %s, %s: %w", out.Tool, p, err)
		}
		final[p] = content
		secretCount += n
	}

	deployed := &dto.ToolDeploy{
		Tool:    out.Tool,
		Target:  target,
		Written: slices.Sorted(maps.Keys(final)),
		Secrets: secretCount,
	}
	if dryRun {
		return deployed, nil
	}

	lock, err := acquireLock(ctx, target)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.release(); err != nil {
			e.logger.Warn("failed to release deploy lock", "target", target, "error", err)
		}
	}()

	if err := writeFiles(target, final); err != nil {
		return nil, fmt.Errorf("tool %s: %w", out.Tool, err)
	}
	e.logger.Info("tool deployed", "tool", out.Tool, "target", target, "files", len(final), "secrets", secretCount)
	return deployed, nil
}

// verify checks staged files against the manifest in both directions.
func verify(out *dto.ToolOutput) error {
	if out.Manifest == nil {
		return fmt.Errorf("tool %s has no manifest", out.Tool)
	}
	for _, entry := range out.Manifest.Entries {
		content, ok := out.Files[entry.Path]
		if !ok {
			return &entities.IntegrityError{Path: entry.Path, Expected: entry.Hash}
		}
		if actual := values.DigestOf(content); !actual.Equals(entry.Hash) {
			return &entities.IntegrityError{Path: entry.Path, Expected: entry.Hash, Actual: actual}
		}
	}
	for p, content := range out.Files {
		if _, ok := out.Manifest.Lookup(p); !ok {
			return &entities.IntegrityError{Path: p, Actual: values.DigestOf(content)}
		}
	}
	return nil
}

// escaperFor returns the value encoder for a staged path. Values placed in
// JSON documents are escaped as string contents.
func escaperFor(p string) func(string) string {
	if path.Ext(p) != ".json" {
		return nil
	}
	return func(s string) string {
		b, err := json.Marshal(s)
		if err != nil {
			return s
		}
		return string(b[1 : len(b)-1])
	}
}

// writeFiles replaces each file through a temp file inside target.
func writeFiles(target string, files map[string][]byte) error {
	root, err := os.OpenRoot(target)
	if err != nil {
		return fmt.Errorf("failed to open target: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	for _, p := range slices.Sorted(maps.Keys(files)) {
		if d := path.Dir(p); d != "." {
			if err := root.MkdirAll(d, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", d, err)
			}
		}
		tmp := path.Join(path.Dir(p), "."+path.Base(p)+".loadout-tmp")
		if err := root.WriteFile(tmp, files[p], 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
		if err := root.Rename(tmp, p); err != nil {
			_ = root.Remove(tmp)
			return fmt.Errorf("failed to replace %s: %w", p, err)
		}
	}
	return nil
}
