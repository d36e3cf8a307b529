package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return dir
}

func load(t *testing.T, dir string) error {
	t.Helper()
	loader, err := NewSourceLoader(dir, nil)
	require.NoError(t, err)
	_, err = loader.Load(context.Background())
	return err
}

var validTree = map[string]string{
	"components/rules/git-workflow.yaml": `
id: git-workflow
version: 1.2.0
kind: rule
tags: [git]
priority: 100
depends_on: [base-style]
output:
  claude: markdown
content:
  body: Use ${branch_prefix}/ branches.
`,
	"components/rules/base-style.md": `---
id: base-style
version: 1.0.0
kind: rule
output:
  claude: markdown
---

Be terse.
`,
	"components/mcp/github.jsonc": `{
  // GitHub MCP server
  "id": "github-mcp",
  "version": "2.1.0",
  "kind": "mcp-global",
  "output": {"claude": "mcp"},
  "content": {"server": {"mcpServers": {"github": {"command": "gh-mcp"}}}},
}`,
	"components/README.txt":    "ignored",
	"components/.draft/x.yaml": "not: [valid",
	"profiles/base.yaml": `
rules:
  include: ["*"]
mcp-global:
  include: ["github-*"]
variables:
  branch_prefix: feature
`,
	"profiles/personal.json": `{"name": "personal", "extends": "base", "variables": {"branch_prefix": "me"}}`,
	"tools/claude.yaml": `
formats:
  markdown:
    path: CLAUDE.md
    strategy: append
  mcp:
    path: mcp.json
    strategy: json-merge
    field: server
variables:
  - name: team
    default: platform
`,
}

func Test_SourceLoader_Load(t *testing.T) {
	t.Parallel()
	dir := writeTree(t, validTree)

	loader, err := NewSourceLoader(dir, nil)
	require.NoError(t, err)
	src, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, src.Store.Len())

	md, ok := src.Store.Get("base-style")
	require.True(t, ok)
	assert.Equal(t, "Be terse.\n", md.Content["body"])
	assert.Equal(t, "components/rules/base-style.md", md.Source)

	mcp, ok := src.Store.Get("github-mcp")
	require.True(t, ok)
	assert.Equal(t, values.KindMCPGlobal, mcp.Kind)

	require.Contains(t, src.Profiles, "base", "profile name defaults to the file stem")
	require.Contains(t, src.Profiles, "personal")
	assert.Equal(t, "base", src.Profiles["personal"].Extends)

	claude, ok := src.Tools["claude"]
	require.True(t, ok)
	assert.Equal(t, "tools/claude.yaml", claude.Source)
	def, ok := claude.Default("team")
	require.True(t, ok)
	assert.Equal(t, "platform", def)
}

func Test_SourceLoader_MissingDirectories(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	loader, err := NewSourceLoader(dir, nil)
	require.NoError(t, err)
	src, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, src.Store.Len())
	assert.Empty(t, src.Profiles)

	_, err = (&SourceLoader{dir: filepath.Join(dir, "nope")}).Load(context.Background())
	assert.Error(t, err)
}

func Test_SourceLoader_SchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
		file  string
		field string
	}{
		{
			name:  "unknown field",
			files: map[string]string{"components/a.yaml": "id: a\nversion: 1.0.0\nkind: rule\nprioirty: 3\n"},
			file:  "components/a.yaml",
		},
		{
			name:  "bad version",
			files: map[string]string{"components/a.yaml": "id: a\nversion: one\nkind: rule\n"},
			file:  "components/a.yaml",
			field: "version",
		},
		{
			name:  "bad content",
			files: map[string]string{"components/a.yaml": "id: a\nversion: 1.0.0\nkind: rule\ncontent:\n  body: [1, 2]\n"},
			file:  "components/a.yaml",
			field: "content.body",
		},
		{
			name: "duplicate id",
			files: map[string]string{
				"components/a.yaml": "id: a\nversion: 1.0.0\nkind: rule\n",
				"components/b.yaml": "id: a\nversion: 1.0.0\nkind: rule\n",
			},
			field: "id",
		},
		{
			name:  "markdown without front matter",
			files: map[string]string{"components/a.md": "# just text\n"},
			file:  "components/a.md",
		},
		{
			name:  "bad profile pattern",
			files: map[string]string{"profiles/p.yaml": "rules:\n  include: [\"tag:\"]\n"},
			file:  "profiles/p.yaml",
		},
		{
			name:  "profile name escapes state dir",
			files: map[string]string{"profiles/p.yaml": "name: ../../outside\n"},
			file:  "profiles/p.yaml",
			field: "name",
		},
		{
			name:  "dot-dot tool name",
			files: map[string]string{"tools/t.yaml": "tool: ..\nformats:\n  md:\n    path: X.md\n    strategy: append\n"},
			file:  "tools/t.yaml",
			field: "tool",
		},
		{
			name:  "bad tool strategy",
			files: map[string]string{"tools/t.yaml": "formats:\n  md:\n    path: X.md\n    strategy: concat\n"},
			file:  "tools/t.yaml",
			field: "formats[md].strategy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := load(t, writeTree(t, tt.files))

			var schemaErr *entities.SchemaError
			require.ErrorAs(t, err, &schemaErr)
			if tt.file != "" {
				assert.Equal(t, tt.file, schemaErr.File)
			}
			if tt.field != "" {
				assert.Equal(t, tt.field, schemaErr.Field)
			}
		})
	}
}

func Test_SplitFrontMatter(t *testing.T) {
	t.Parallel()
	front, body, err := splitFrontMatter([]byte("---\r\nid: x\r\n---\r\n\r\nHello\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "id: x\n", string(front))
	assert.Equal(t, "Hello\n", body)

	_, _, err = splitFrontMatter([]byte("---\nid: x\n"))
	assert.Error(t, err)
}
