package deploy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadout-dev/loadout/internal/application/dto"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/infrastructure/secrets"
	"github.com/loadout-dev/loadout/internal/infrastructure/sensitivedata"
	"github.com/loadout-dev/loadout/internal/infrastructure/system"
)

func buildFor(tool string, files map[string]string) *dto.BuildResult {
	raw := make(map[string][]byte, len(files))
	for p, c := range files {
		raw[p] = []byte(c)
	}
	manifest := entities.NewManifest("b1", "personal", tool, time.Now(), raw, nil)
	return &dto.BuildResult{
		BuildID: "b1",
		Profile: "personal",
		Tools:   []string{tool},
		Outputs: []*dto.ToolOutput{{Tool: tool, Manifest: manifest, Files: raw}},
	}
}

func newExecutor(t *testing.T, target string, local map[string]string) (*FileExecutor, *sensitivedata.Provider) {
	t.Helper()
	provider := sensitivedata.NewProvider()
	resolver := secrets.NewResolver(&system.SecretsConfig{Local: local}, provider)
	targets := func(tool string) (string, bool) {
		if tool != "claude" {
			return "", false
		}
		return target, true
	}
	return NewFileExecutor(targets, resolver, provider, nil), provider
}

func TestFileExecutor_Deploy(t *testing.T) {
	t.Parallel()
	target := t.TempDir()
	exec, _ := newExecutor(t, target, map[string]string{"gh_token": `tok"en`})

	build := buildFor("claude", map[string]string{
		"CLAUDE.md":         "token: ${secret:gh_token}\n",
		"mcp.json":          `{"env":{"TOKEN":"${secret:gh_token}"}}`,
		"commands/build.md": "build",
	})

	res, err := exec.Deploy(context.Background(), build, false)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, 2, res.Tools[0].Secrets)
	assert.Equal(t, []string{"CLAUDE.md", "commands/build.md", "mcp.json"}, res.Tools[0].Written)

	md, err := os.ReadFile(filepath.Join(target, "CLAUDE.md"))
	require.NoError(t, err)
	assert.Equal(t, "token: tok\"en\n", string(md))

	js, err := os.ReadFile(filepath.Join(target, "mcp.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"env":{"TOKEN":"tok\"en"}}`, string(js))

	_, err = os.Stat(filepath.Join(target, "commands", "build.md"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(target, LockFile))
	assert.NoError(t, err, "lock file stays in the target")
}

func TestFileExecutor_DryRunWritesNothing(t *testing.T) {
	t.Parallel()
	target := filepath.Join(t.TempDir(), "claude")
	exec, _ := newExecutor(t, target, nil)

	res, err := exec.Deploy(context.Background(), buildFor("claude", map[string]string{"CLAUDE.md": "x"}), true)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestFileExecutor_IntegrityError(t *testing.T) {
	t.Parallel()
	exec, _ := newExecutor(t, t.TempDir(), nil)

	build := buildFor("claude", map[string]string{"CLAUDE.md": "original"})
	build.Outputs[0].Files["CLAUDE.md"] = []byte("tampered")

	_, err := exec.Deploy(context.Background(), build, false)
	var integrity *entities.IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "CLAUDE.md", integrity.Path)
	assert.False(t, integrity.Actual.IsEmpty())

	build = buildFor("claude", map[string]string{"CLAUDE.md": "x"})
	build.Outputs[0].Files["extra.md"] = []byte("y")
	_, err = exec.Deploy(context.Background(), build, false)
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "extra.md", integrity.Path)
}

func TestFileExecutor_Errors(t *testing.T) {
	t.Parallel()
	target := t.TempDir()
	exec, _ := newExecutor(t, target, nil)

	_, err := exec.Deploy(context.Background(), buildFor("cursor", map[string]string{"a": "b"}), false)
	assert.ErrorContains(t, err, "no deploy target")

	_, err = exec.Deploy(context.Background(), buildFor("claude", map[string]string{"CLAUDE.md": "${secret:missing}"}), false)
	assert.ErrorContains(t, err, `secret "missing"`)
	_, statErr := os.Stat(filepath.Join(target, "CLAUDE.md"))
	assert.True(t, os.IsNotExist(statErr), "nothing written when a secret is missing")
}

func TestFileExecutor_LockContention(t *testing.T) {
	t.Parallel()
	target := t.TempDir()

	held, err := acquireLock(context.Background(), target)
	require.NoError(t, err)

	exec, _ := newExecutor(t, target, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = exec.Deploy(ctx, buildFor("claude", map[string]string{"CLAUDE.md": "x"}), false)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, held.release())
	_, err = exec.Deploy(context.Background(), buildFor("claude", map[string]string{"CLAUDE.md": "x"}), false)
	require.NoError(t, err)
}

func TestLockBackoff(t *testing.T) {
	t.Parallel()
	assert.Equal(t, lockInitialDelay, lockBackoff(0))
	assert.Equal(t, 4*lockInitialDelay, lockBackoff(2))
	assert.Equal(t, lockMaxDelay, lockBackoff(10))
	assert.Equal(t, lockMaxDelay, lockBackoff(100))
}
