package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loadout-dev/loadout/internal/domain/values"
)

func Test_FormatEntry_Defaults(t *testing.T) {
	t.Parallel()
	text := FormatEntry{Path: "a.md", Strategy: values.StrategyAppend}
	assert.Equal(t, "body", text.ContentField())
	assert.Equal(t, DefaultSeparator, text.JoinSeparator())

	sep := "---"
	text.Separator = &sep
	text.Field = "summary"
	assert.Equal(t, "summary", text.ContentField())
	assert.Equal(t, "---", text.JoinSeparator())

	merge := FormatEntry{Path: "settings.json", Strategy: values.StrategyJSONMerge}
	assert.Equal(t, "", merge.ContentField())
}

func Test_ToolSchema_Validate(t *testing.T) {
	t.Parallel()
	valid := &ToolSchema{
		Tool: "claude",
		Formats: map[string]FormatEntry{
			"markdown": {Path: "CLAUDE.md", Strategy: values.StrategyAppend},
		},
		Variables: []VariableDecl{{Name: "home", Default: "~"}},
	}
	assert.NoError(t, valid.Validate())

	d, ok := valid.Default("home")
	assert.True(t, ok)
	assert.Equal(t, "~", d)
	_, ok = valid.Default("nope")
	assert.False(t, ok)

	tests := []struct {
		name   string
		schema *ToolSchema
	}{
		{"no tool", &ToolSchema{Formats: valid.Formats}},
		{"no formats", &ToolSchema{Tool: "x"}},
		{"no path", &ToolSchema{Tool: "x", Formats: map[string]FormatEntry{"f": {Strategy: values.StrategyAppend}}}},
		{"bad strategy", &ToolSchema{Tool: "x", Formats: map[string]FormatEntry{"f": {Path: "p", Strategy: "prepend"}}}},
		{"duplicate variable", &ToolSchema{Tool: "x", Formats: valid.Formats, Variables: []VariableDecl{{Name: "a"}, {Name: "a"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, tt.schema.Validate())
		})
	}
}
