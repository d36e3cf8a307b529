package config

import (
	"runtime"
	"time"

	"github.com/loadout-dev/loadout/internal/application/dto"
	"github.com/loadout-dev/loadout/internal/infrastructure/system"
)

// RuntimeConfig aggregates the build settings that come from the system
// config and may be overridden by flags.
// This is a value object that flows through the system.
type RuntimeConfig struct {
	BuildTimeout     time.Duration
	MaxParallelTools int
	GuardEnabled     bool
}

// FromSystemConfig creates RuntimeConfig from system config.
func FromSystemConfig(sys *system.Config) *RuntimeConfig {
	return &RuntimeConfig{
		BuildTimeout:     sys.Build.Timeout,
		MaxParallelTools: sys.Build.MaxParallelTools,
		GuardEnabled:     !sys.Guard.Disabled,
	}
}

// ApplyDefaults applies defaults for zero values.
func (r *RuntimeConfig) ApplyDefaults() {
	if r.BuildTimeout <= 0 {
		r.BuildTimeout = dto.DefaultBuildTimeout
	}
	if r.MaxParallelTools == 0 {
		r.MaxParallelTools = runtime.NumCPU()
	}
}

// CompileOptions converts the runtime settings into use case options.
func (r *RuntimeConfig) CompileOptions(dryRun bool) dto.CompileOptions {
	return dto.CompileOptions{
		DryRun:           dryRun,
		Timeout:          r.BuildTimeout,
		MaxParallelTools: r.MaxParallelTools,
		SkipSecretGuard:  !r.GuardEnabled,
	}
}
