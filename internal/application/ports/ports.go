// Package ports defines interfaces for infrastructure dependencies.
// These are the "ports" in hexagonal architecture - abstractions that
// the application layer depends on but doesn't implement.
package ports

import (
	"context"
	"io"

	"github.com/loadout-dev/loadout/internal/application/dto"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/infrastructure/system"
)

// SourceLoader loads and validates a source tree (components, profiles and
// tool schemas).
type SourceLoader interface {
	Load(ctx context.Context) (*dto.Source, error)
}

// ManifestRepository persists the last successful manifest per
// (profile, tool) pair and the record of each profile's last build.
type ManifestRepository interface {
	// Load returns nil without error when no manifest exists yet.
	Load(ctx context.Context, profile, tool string) (*entities.Manifest, error)
	// Save atomically replaces the stored manifest.
	Save(ctx context.Context, manifest *entities.Manifest) error
	// Delete removes the manifest of (profile, tool); a missing one is not an error.
	Delete(ctx context.Context, profile, tool string) error
	// LoadBuild returns nil without error when profile was never built.
	LoadBuild(ctx context.Context, profile string) (*entities.StagedBuild, error)
	// SaveBuild atomically replaces the build record of build.Profile.
	SaveBuild(ctx context.Context, build *entities.StagedBuild) error
}

// StagingRepository stores staged trees between compile and deploy.
type StagingRepository interface {
	// Commit atomically replaces the staged tree of (profile, tool).
	Commit(ctx context.Context, profile string, tree *entities.StagedTree) error
	// Read returns the staged files of (profile, tool) by path.
	Read(ctx context.Context, profile, tool string) (map[string][]byte, error)
	// Tools lists the staged tools of profile, sorted.
	Tools(ctx context.Context, profile string) ([]string, error)
	// Remove deletes the staged tree of (profile, tool); a missing one is not an error.
	Remove(ctx context.Context, profile, tool string) error
}

// SecretGuard scans staged output for concrete secret values.
type SecretGuard interface {
	// Scan returns a *entities.SecretLeakError when content holds a secret.
	Scan(ctx context.Context, tool, path string, content []byte) error
}

// BuildHistory records compiled builds.
type BuildHistory interface {
	Record(ctx context.Context, records []dto.BuildRecord) error
	Recent(ctx context.Context, profile string, limit int) ([]dto.BuildRecord, error)
	Close() error
}

// DeployExecutor places a build's staged output into live locations.
type DeployExecutor interface {
	Deploy(ctx context.Context, build *dto.BuildResult, dryRun bool) (*dto.DeployResult, error)
}

// SystemConfigProvider loads system configuration.
type SystemConfigProvider interface {
	LoadConfig(ctx context.Context, path string) (*system.Config, error)
}

// OutputFormatter formats build results.
type OutputFormatter interface {
	Format(result *dto.BuildResult) error
}

// FormatterOptions tunes formatter output.
type FormatterOptions struct {
	Indent bool
	// NoColor disables ANSI colors in the table format.
	NoColor bool
	// ChangesOnly hides unchanged paths.
	ChangesOnly bool
	// Version is reported as the producing tool's version.
	Version string
}

// OutputFormatterFactory creates formatters by name.
type OutputFormatterFactory interface {
	Create(format string, writer io.Writer, options FormatterOptions) (OutputFormatter, error)
	SupportedFormats() []string
}

// Closer is a common interface for resources that need cleanup.
type Closer interface {
	io.Closer
}
