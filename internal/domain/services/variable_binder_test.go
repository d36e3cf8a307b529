package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadout-dev/loadout/internal/domain/entities"
)

func Test_VariableBinder_Bind_NestedContent(t *testing.T) {
	t.Parallel()
	c := rule("r", 0)
	c.Content = map[string]interface{}{
		"body": "Hello ${name}, use ${editor.command}.",
		"port": "${port}",
		"nested": map[string]interface{}{
			"list": []interface{}{"${name}", 7, map[string]interface{}{"deep": "x-${name}"}},
		},
		"token": "${secret:GITHUB_TOKEN}",
	}
	original := CopyVars(c.Content)

	vars := map[string]interface{}{
		"name":   "ada",
		"editor": map[string]interface{}{"command": "vim"},
		"port":   8080,
	}
	bound, err := NewVariableBinder().Bind([]*entities.Component{c}, NewBindings(vars, nil))
	require.NoError(t, err)
	require.Len(t, bound, 1)

	got := bound[0].Content
	assert.Equal(t, "Hello ada, use vim.", got["body"])
	assert.Equal(t, 8080, got["port"], "a whole-string placeholder keeps the bound type")
	list := got["nested"].(map[string]interface{})["list"].([]interface{})
	assert.Equal(t, "ada", list[0])
	assert.Equal(t, 7, list[1])
	assert.Equal(t, "x-ada", list[2].(map[string]interface{})["deep"])
	assert.Equal(t, "${secret:GITHUB_TOKEN}", got["token"], "secret references are left untouched")

	assert.Equal(t, original, c.Content, "input component must not be modified")
}

func Test_VariableBinder_Bind_Unbound(t *testing.T) {
	t.Parallel()
	c := rule("needs-var", 0)
	c.Content = map[string]interface{}{"body": "path: ${workspace}"}

	_, err := NewVariableBinder().Bind([]*entities.Component{c}, NewBindings(nil, nil))
	require.Error(t, err)

	var unbound *entities.UnboundVariableError
	require.True(t, errors.As(err, &unbound))
	assert.Equal(t, "needs-var", unbound.ComponentID)
	assert.Equal(t, "workspace", unbound.Variable)
}

func Test_VariableBinder_Bind_UnboundIsReportedInKeyOrder(t *testing.T) {
	t.Parallel()
	c := rule("many-vars", 0)
	c.Content = map[string]interface{}{
		"zeta":  "${last}",
		"alpha": "${first}",
		"mid":   map[string]interface{}{"b": "${second}", "a": "x ${also}"},
		"omega": []interface{}{"${later}"},
	}

	for range 20 {
		_, err := NewVariableBinder().Bind([]*entities.Component{c}, NewBindings(nil, nil))
		var unbound *entities.UnboundVariableError
		require.True(t, errors.As(err, &unbound))
		assert.Equal(t, "first", unbound.Variable)
	}
}

func Test_VariableBinder_Bind_ToolDefaults(t *testing.T) {
	t.Parallel()
	c := rule("r", 0)
	c.Content = map[string]interface{}{"body": "${home}/${shell}/${who}"}

	tools := []*entities.ToolSchema{
		{Tool: "alpha", Variables: []entities.VariableDecl{{Name: "home", Default: "/a"}, {Name: "shell", Default: "zsh"}}},
		{Tool: "beta", Variables: []entities.VariableDecl{{Name: "home", Default: "/b"}, {Name: "who", Default: "beta"}}},
	}
	vars := map[string]interface{}{"shell": "bash"}

	bound, err := NewVariableBinder().Bind([]*entities.Component{c}, NewBindings(vars, tools))
	require.NoError(t, err)
	// Profile variables win; the first tool default wins among tools.
	assert.Equal(t, "/a/bash/beta", bound[0].Content["body"])
}

func Test_VariableBinder_Expand(t *testing.T) {
	t.Parallel()
	b := NewBindings(map[string]interface{}{"dir": "rules", "ratio": 1.5, "count": float64(3)}, nil).
		WithBuiltins(map[string]interface{}{"id": "git"})

	out, err := NewVariableBinder().Expand("${dir}/${id}-${count}-${ratio}.md", b)
	require.NoError(t, err)
	assert.Equal(t, "rules/git-3-1.5.md", out)

	_, err = NewVariableBinder().Expand("${nope}", b)
	name, ok := UnboundName(err)
	require.True(t, ok)
	assert.Equal(t, "nope", name)

	assert.Equal(t, []string{"a", "b.c"}, Placeholders("${a} ${secret:x} ${b.c}"))
}
