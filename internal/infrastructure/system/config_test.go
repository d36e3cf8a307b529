package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoader_Load_FileNotExists(t *testing.T) {
	t.Parallel()
	loader := NewConfigLoader()
	cfg, err := loader.Load("/nonexistent/config.yaml")

	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Empty(t, cfg.Deploy.Targets)
	assert.Equal(t, "/nonexistent", cfg.StateDir)
	assert.Equal(t, DefaultHistoryLimit, cfg.History.Limit)
}

func TestConfigLoader_Load_ValidConfig(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yaml := `
sensitive_data:
  secrets:
    env:
      github_token: GITHUB_TOKEN
guard:
  patterns:
    - "corp_[a-z0-9]{32}"
  allow:
    - "docs/**"
build:
  timeout: 30s
  max_parallel_tools: 2
deploy:
  targets:
    claude: /home/me/.claude
`
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o600))

	cfg, err := NewConfigLoader().Load(configPath)

	require.NoError(t, err)
	assert.Equal(t, "GITHUB_TOKEN", cfg.SensitiveData.Secrets.Env["github_token"])
	assert.Len(t, cfg.Guard.Patterns, 1)
	assert.Equal(t, []string{"docs/**"}, cfg.Guard.Allow)
	assert.Equal(t, 30*time.Second, cfg.Build.Timeout)
	assert.Equal(t, 2, cfg.Build.MaxParallelTools)
	assert.Equal(t, tmpDir, cfg.StateDir)

	target, ok := cfg.Target("claude")
	assert.True(t, ok)
	assert.Equal(t, "/home/me/.claude", target)
	_, ok = cfg.Target("cursor")
	assert.False(t, ok)
}

func TestConfigLoader_Load_Invalid(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("build:\n  max_parallel_tools: -1\n"), 0o600))

	_, err := NewConfigLoader().Load(configPath)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(configPath, []byte("guard: [\n"), 0o600))
	_, err = NewConfigLoader().Load(configPath)
	assert.Error(t, err)
}
