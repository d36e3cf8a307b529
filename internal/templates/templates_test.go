package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(files []File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func find(t *testing.T, files []File, path string) string {
	t.Helper()
	for _, f := range files {
		if f.Path == path {
			return string(f.Content)
		}
	}
	t.Fatalf("file %s not rendered", path)
	return ""
}

func TestScaffold_AllTools(t *testing.T) {
	t.Parallel()

	files, err := Scaffold(ScaffoldData{Profile: "alice", Tools: []string{"claude", "cursor"}, Examples: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"components/commands/review.md",
		"components/mcp/github.yaml",
		"components/rules/house-style.md",
		"profiles/alice.yaml",
		"profiles/base.yaml",
		"tools/claude.yaml",
		"tools/cursor.yaml",
	}, paths(files))

	profile := find(t, files, "profiles/alice.yaml")
	assert.Contains(t, profile, "name: alice")
	assert.Contains(t, profile, "extends: base")

	rule := find(t, files, "components/rules/house-style.md")
	assert.Contains(t, rule, "  claude: markdown\n  cursor: rule\n")
	assert.Contains(t, rule, "${branch_prefix}", "component placeholders are left for the binder")

	cursor := find(t, files, "tools/cursor.yaml")
	assert.Contains(t, cursor, `{{ index .Content "body" }}`, "tool templates pass through")
}

func TestScaffold_SingleToolNoExamples(t *testing.T) {
	t.Parallel()

	files, err := Scaffold(ScaffoldData{Profile: "base", Tools: []string{"cursor"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"profiles/base.yaml", "tools/cursor.yaml"}, paths(files))
}

func TestScaffold_Errors(t *testing.T) {
	t.Parallel()

	_, err := Scaffold(ScaffoldData{Tools: []string{"claude"}})
	assert.ErrorContains(t, err, "profile name is required")

	_, err = Scaffold(ScaffoldData{Profile: "p", Tools: []string{"vim"}})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported tool: vim"))

	_, err = Scaffold(ScaffoldData{Profile: "p"})
	assert.ErrorContains(t, err, "at least one tool")
}
