// Package container provides dependency injection for the application.
package container

import (
	"context"
	"log/slog"
	"path/filepath"

	apperrors "github.com/loadout-dev/loadout/internal/application/errors"
	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/application/services"
	"github.com/loadout-dev/loadout/internal/infrastructure/adapters"
	"github.com/loadout-dev/loadout/internal/infrastructure/config"
	"github.com/loadout-dev/loadout/internal/infrastructure/deploy"
	"github.com/loadout-dev/loadout/internal/infrastructure/persistence/filesystem"
	"github.com/loadout-dev/loadout/internal/infrastructure/persistence/memory"
	"github.com/loadout-dev/loadout/internal/infrastructure/persistence/sqlite"
	"github.com/loadout-dev/loadout/internal/infrastructure/redaction"
	"github.com/loadout-dev/loadout/internal/infrastructure/secrets"
	"github.com/loadout-dev/loadout/internal/infrastructure/sensitivedata"
	"github.com/loadout-dev/loadout/internal/infrastructure/system"
)

// HistoryFile is the build history database inside the state directory.
const HistoryFile = "history.db"

// Container holds all application dependencies.
type Container struct {
	sources    *config.SourceLoader
	history    ports.BuildHistory
	compile    *services.CompileUseCase
	deploy     *services.DeployUseCase
	list       *services.ListComponentsUseCase
	buildLog   *services.BuildHistoryUseCase
	systemCfg  *system.Config
	runtimeCfg *config.RuntimeConfig
	redactor   *sensitivedata.Provider
	logger     *slog.Logger
	stateDir   string
}

// Options configure the container.
type Options struct {
	Logger *slog.Logger
	// SourceDir is the root of the component/profile/tool tree.
	SourceDir string
	// SystemConfigPath overrides ~/.loadout/config.yaml.
	SystemConfigPath string
	// StateDir overrides the configured state directory.
	StateDir string
	// Ephemeral keeps manifests, staging and history in memory.
	Ephemeral bool
	// Redactor receives resolved secrets; a new one is created when nil.
	Redactor *sensitivedata.Provider
}

// New creates a new dependency injection container.
func New(ctx context.Context, opts Options) (*Container, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Redactor == nil {
		opts.Redactor = sensitivedata.NewProvider()
	}

	systemCfg, err := adapters.NewSystemConfigAdapter().LoadConfig(ctx, opts.SystemConfigPath)
	if err != nil {
		return nil, apperrors.NewConfigurationError("system config", "failed to load system config", err)
	}

	stateDir := systemCfg.StateDir
	if opts.StateDir != "" {
		stateDir = opts.StateDir
	}

	runtimeCfg := config.FromSystemConfig(systemCfg)
	runtimeCfg.ApplyDefaults()

	sources, err := config.NewSourceLoader(opts.SourceDir, opts.Logger)
	if err != nil {
		return nil, apperrors.NewConfigurationError("schemas", "failed to initialize validators", err)
	}

	var guard ports.SecretGuard
	if !systemCfg.Guard.Disabled {
		detector, err := redaction.New(redaction.Config{Patterns: systemCfg.Guard.Patterns})
		if err != nil {
			return nil, apperrors.NewConfigurationError("guard", "failed to initialize secret guard", err)
		}
		g, err := redaction.NewGuard(detector, systemCfg.Guard.Allow)
		if err != nil {
			return nil, apperrors.NewConfigurationError("guard", "invalid guard configuration", err)
		}
		guard = g
	}

	var (
		manifests ports.ManifestRepository
		staging   ports.StagingRepository
		history   ports.BuildHistory
	)
	if opts.Ephemeral {
		manifests = memory.NewManifestRepository()
		staging = memory.NewStagingRepository()
		history = memory.NewBuildHistory()
	} else {
		manifests = filesystem.NewManifestStore(stateDir)
		staging = filesystem.NewStagingStore(stateDir)
		if !systemCfg.History.Disabled {
			store, err := sqlite.Open(ctx, filepath.Join(stateDir, HistoryFile))
			if err != nil {
				// History is auxiliary; builds work without it.
				opts.Logger.Warn("build history unavailable", "error", err)
			} else {
				history = store
			}
		}
	}

	resolver := secrets.NewResolver(&systemCfg.SensitiveData.Secrets, opts.Redactor)
	executor := deploy.NewFileExecutor(systemCfg.Target, resolver, opts.Redactor, opts.Logger)

	c := &Container{
		sources:    sources,
		history:    history,
		compile:    services.NewCompileUseCase(sources, manifests, staging, guard, history, opts.Logger),
		deploy:     services.NewDeployUseCase(staging, manifests, executor, opts.Logger),
		list:       services.NewListComponentsUseCase(sources),
		buildLog:   services.NewBuildHistoryUseCase(history),
		systemCfg:  systemCfg,
		runtimeCfg: runtimeCfg,
		redactor:   opts.Redactor,
		logger:     opts.Logger,
		stateDir:   stateDir,
	}
	return c, nil
}

// Close releases the history store.
func (c *Container) Close() error {
	if c.history == nil {
		return nil
	}
	return c.history.Close()
}

// CompileUseCase returns the compile use case.
func (c *Container) CompileUseCase() *services.CompileUseCase {
	return c.compile
}

// DeployUseCase returns the deploy use case.
func (c *Container) DeployUseCase() *services.DeployUseCase {
	return c.deploy
}

// ListComponentsUseCase returns the list use case.
func (c *Container) ListComponentsUseCase() *services.ListComponentsUseCase {
	return c.list
}

// BuildHistoryUseCase returns the history use case.
func (c *Container) BuildHistoryUseCase() *services.BuildHistoryUseCase {
	return c.buildLog
}

// SourceDir returns the source tree root.
func (c *Container) SourceDir() string {
	return c.sources.Dir()
}

// StateDir returns the effective state directory.
func (c *Container) StateDir() string {
	return c.stateDir
}

// SystemConfig returns the system configuration.
func (c *Container) SystemConfig() *system.Config {
	return c.systemCfg
}

// RuntimeConfig returns the build settings after defaults.
func (c *Container) RuntimeConfig() *config.RuntimeConfig {
	return c.runtimeCfg
}

// Redactor returns the provider tracking resolved secrets.
func (c *Container) Redactor() *sensitivedata.Provider {
	return c.redactor
}

// Logger returns the configured logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}
