// Package system provides infrastructure for system-level configuration.
// This includes loading the system config file (~/.loadout/config.yaml):
// secret sources, secret guard patterns, deploy targets and build limits.
package system

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

// Config represents the global configuration file (~/.loadout/config.yaml).
// This is infrastructure-level configuration separate from source trees.
type Config struct {
	SensitiveData SensitiveDataConfig `yaml:"sensitive_data"`
	Guard         GuardConfig         `yaml:"guard"`
	Build         BuildConfig         `yaml:"build"`
	Deploy        DeployConfig        `yaml:"deploy"`
	History       HistoryConfig       `yaml:"history"`
	// StateDir holds staging trees, manifests and history. Empty means
	// the directory containing the config file.
	StateDir string `yaml:"state_dir"`
}

// SensitiveDataConfig configures secret resolution at deploy time.
type SensitiveDataConfig struct {
	Secrets SecretsConfig `yaml:"secrets"`
}

// SecretsConfig configures secret resolution sources.
type SecretsConfig struct {
	// Local defines static secrets for development (name -> value)
	Local map[string]string `yaml:"local"`

	// Env defines environment variable mappings (secret_name -> env_var_name)
	Env map[string]string `yaml:"env"`

	// Files defines file path mappings (secret_name -> file_path)
	Files map[string]string `yaml:"files"`
}

// GuardConfig configures the staged output secret scan.
type GuardConfig struct {
	// Disabled turns the scan off entirely.
	Disabled bool `yaml:"disabled"`
	// Patterns are additional regular expressions treated as secrets.
	Patterns []string `yaml:"patterns"`
	// Allow lists staged paths (glob) that are never scanned.
	Allow []string `yaml:"allow"`
}

// BuildConfig bounds a build.
type BuildConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	MaxParallelTools int           `yaml:"max_parallel_tools"`
}

// DeployConfig maps each tool to its live target directory.
type DeployConfig struct {
	Targets map[string]string `yaml:"targets"`
}

// HistoryConfig controls the build history store.
type HistoryConfig struct {
	Disabled bool `yaml:"disabled"`
	Limit    int  `yaml:"limit"`
}

// Default history listing size.
const DefaultHistoryLimit = 20

// ConfigLoader loads system configuration from disk.
type ConfigLoader struct{}

// NewConfigLoader creates a new system config loader.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{}
}

// DefaultConfig returns a Config with safe defaults for all fields.
// This is used when no system config file exists.
func DefaultConfig() *Config {
	return &Config{
		SensitiveData: SensitiveDataConfig{
			Secrets: SecretsConfig{
				Local: make(map[string]string),
				Env:   make(map[string]string),
				Files: make(map[string]string),
			},
		},
		Guard: GuardConfig{
			Patterns: []string{},
			Allow:    []string{},
		},
		Deploy: DeployConfig{
			Targets: make(map[string]string),
		},
		History: HistoryConfig{
			Limit: DefaultHistoryLimit,
		},
	}
}

// Load loads the system configuration from the specified path.
// If the file does not exist, returns DefaultConfig() with safe defaults.
func (l *ConfigLoader) Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.StateDir = filepath.Dir(path)
		return cfg, nil
	}

	//nolint:gosec // G304: path is user-provided config file, validated to exist above
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read system config: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}
	if config.StateDir == "" {
		config.StateDir = filepath.Dir(path)
	}
	if config.History.Limit <= 0 {
		config.History.Limit = DefaultHistoryLimit
	}
	if config.Build.MaxParallelTools < 0 {
		return nil, fmt.Errorf("invalid system config: build.max_parallel_tools must not be negative")
	}

	return config, nil
}

// Target returns the deploy target for tool.
func (c *Config) Target(tool string) (string, bool) {
	t, ok := c.Deploy.Targets[tool]
	if !ok || t == "" {
		return "", false
	}
	return t, true
}
