// Package adapters provides infrastructure adapters that implement application ports.
// These adapters wrap existing infrastructure components to satisfy port interfaces.
package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/infrastructure/system"
)

// Ensure adapters implement ports at compile time
var (
	_ ports.SystemConfigProvider = (*SystemConfigAdapter)(nil)
)

// DefaultConfigPath returns ~/.loadout/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".loadout", "config.yaml"), nil
}

// SystemConfigAdapter adapts system config loader to port interface.
type SystemConfigAdapter struct {
	loader *system.ConfigLoader
}

// NewSystemConfigAdapter creates a new system config adapter.
func NewSystemConfigAdapter() *SystemConfigAdapter {
	return &SystemConfigAdapter{
		loader: system.NewConfigLoader(),
	}
}

// LoadConfig loads system configuration from path. An empty path loads
// from the default location.
func (a *SystemConfigAdapter) LoadConfig(_ context.Context, path string) (*system.Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	return a.loader.Load(path)
}
