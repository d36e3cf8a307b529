package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadout-dev/loadout/internal/domain/values"
)

func testComponent(id string, kind values.ComponentKind, tags ...string) *Component {
	return &Component{ID: id, Version: "1.0.0", Kind: kind, Tags: tags, Source: "components/" + id + ".yaml"}
}

func Test_NewComponentStore_SortsByID(t *testing.T) {
	t.Parallel()
	store, err := NewComponentStore([]*Component{
		testComponent("zeta", values.KindRule),
		testComponent("alpha", values.KindSkill),
		testComponent("mid", values.KindRule),
	})
	require.NoError(t, err)
	require.Equal(t, 3, store.Len())

	var ids []string
	for h, c := range store.All() {
		assert.Same(t, c, store.At(h))
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, ids)

	h, ok := store.Handle("mid")
	require.True(t, ok)
	assert.Equal(t, Handle(1), h)

	c, ok := store.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, values.KindRule, c.Kind)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func Test_NewComponentStore_DuplicateID(t *testing.T) {
	t.Parallel()
	a := testComponent("dup", values.KindRule)
	b := testComponent("dup", values.KindSkill)
	b.Source = "components/other.yaml"

	_, err := NewComponentStore([]*Component{a, b})
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "id", schemaErr.Field)
	assert.Contains(t, schemaErr.Message, "duplicate component id")
}

func Test_NewComponentStore_InvalidComponent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		c     *Component
		field string
	}{
		{"bad id", testComponent("has space", values.KindRule), "id"},
		{"bad kind", testComponent("ok", values.ComponentKind("plugin")), "kind"},
		{"self dependency", &Component{ID: "a", Kind: values.KindRule, DependsOn: []string{"a"}}, "depends_on"},
		{"self conflict", &Component{ID: "a", Kind: values.KindRule, ConflictsWith: []string{"a"}}, "conflicts_with"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewComponentStore([]*Component{tt.c})
			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.field, schemaErr.Field)
		})
	}
}

func Test_ComponentStore_Filter(t *testing.T) {
	t.Parallel()
	store, err := NewComponentStore([]*Component{
		testComponent("r1", values.KindRule, "security"),
		testComponent("r2", values.KindRule),
		testComponent("s1", values.KindSkill, "security"),
	})
	require.NoError(t, err)

	collect := func(kind values.ComponentKind, tag string) []string {
		var ids []string
		for _, c := range store.Filter(kind, tag) {
			ids = append(ids, c.ID)
		}
		return ids
	}

	assert.Equal(t, []string{"r1", "r2"}, collect(values.KindRule, ""))
	assert.Equal(t, []string{"r1", "s1"}, collect("", "security"))
	assert.Equal(t, []string{"r1"}, collect(values.KindRule, "security"))
	assert.Empty(t, collect(values.KindHook, ""))

	// Early break is honoured.
	n := 0
	for range store.Filter("", "") {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func Test_Component_Tools(t *testing.T) {
	t.Parallel()
	c := &Component{Output: map[string]string{"zed": "md", "claude": "md"}}
	assert.Equal(t, []string{"claude", "zed"}, c.Tools())

	format, ok := c.OutputFor("claude")
	assert.True(t, ok)
	assert.Equal(t, "md", format)
}
