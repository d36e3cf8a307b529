package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadout-dev/loadout/internal/infrastructure/sensitivedata"
	"github.com/loadout-dev/loadout/internal/infrastructure/system"
)

func TestResolver_Resolve(t *testing.T) {
	tempDir := t.TempDir()
	secretFile := filepath.Join(tempDir, "mysecret.txt")
	require.NoError(t, os.WriteFile(secretFile, []byte("  file-secret-value  \n"), 0o600))

	t.Setenv("TEST_ENV_SECRET", "env_value")

	provider := sensitivedata.NewProvider()
	resolver := NewResolver(&system.SecretsConfig{
		Local: map[string]string{"local_key": "local_value"},
		Env:   map[string]string{"env_key": "TEST_ENV_SECRET", "unset_key": "TEST_UNSET_SECRET_XYZ"},
		Files: map[string]string{"file_key": secretFile, "missing_file": filepath.Join(tempDir, "nope")},
	}, provider)

	tests := []struct {
		name      string
		secret    string
		wantValue string
		wantErr   bool
	}{
		{name: "Local secret", secret: "local_key", wantValue: "local_value"},
		{name: "Env secret", secret: "env_key", wantValue: "env_value"},
		{name: "File secret is trimmed", secret: "file_key", wantValue: "file-secret-value"},
		{name: "Unset env var", secret: "unset_key", wantErr: true},
		{name: "Missing file", secret: "missing_file", wantErr: true},
		{name: "Unknown secret", secret: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(tt.secret)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, got)
			assert.Contains(t, provider.AllValues(), tt.wantValue, "resolved values are tracked")
		})
	}
}

func TestResolver_NoConfig(t *testing.T) {
	t.Parallel()
	_, err := NewResolver(nil, nil).Resolve("x")
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	t.Parallel()
	resolver := NewResolver(&system.SecretsConfig{
		Local: map[string]string{"token": `ab"c`, "user": "me"},
	}, nil)

	content := []byte(`{"token": "${secret:token}", "user": "${secret:user}", "again": "${secret:token}"}`)
	assert.Equal(t, []string{"token", "user"}, References(content))

	escape := func(s string) string { return strings.ReplaceAll(s, `"`, `\"`) }
	out, n, err := Expand(resolver, content, escape)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, `{"token": "ab\"c", "user": "me", "again": "ab\"c"}`, string(out))

	_, _, err = Expand(resolver, []byte("${secret:missing}"), nil)
	assert.Error(t, err)

	out, n, err = Expand(resolver, []byte("no refs, ${plain}"), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "no refs, ${plain}", string(out))
}
