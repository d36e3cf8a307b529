package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

func selectedIDs(store *entities.ComponentStore, sel *Selection) []string {
	ids := make([]string, 0, len(sel.Selected))
	for _, h := range sel.Selected {
		ids = append(ids, store.At(h).ID)
	}
	return ids
}

func Test_Selector_IncludeAndExclude(t *testing.T) {
	t.Parallel()
	sso := rule("enterprise-sso", 0)
	sso.Tags = []string{"enterprise"}
	store := newStore(t, rule("git-workflow", 100), rule("security-review", 50), sso, rule("misc", 0))

	policy := resolvePolicy(t, "work", &entities.Profile{
		Name: "work",
		Rules: entities.SelectionRule{
			Include: []string{"git-*", "enterprise-sso", "security-review"},
			Exclude: []string{"enterprise-*"},
		},
	})

	sel := NewSelector().Select(store, policy)
	assert.Equal(t, []string{"git-workflow", "security-review"}, selectedIDs(store, sel))

	h, _ := store.Handle("enterprise-sso")
	require.Contains(t, sel.Excluded, h)
	assert.Equal(t, "enterprise-*", sel.Excluded[h].String())
	assert.False(t, sel.Contains(h))
}

func Test_Selector_ExcludeDominatesAcrossLevels(t *testing.T) {
	t.Parallel()
	store := newStore(t, rule("legacy", 0), rule("modern", 0))

	base := &entities.Profile{Name: "base", Rules: entities.SelectionRule{Exclude: []string{"legacy"}}}
	child := &entities.Profile{Name: "child", Extends: "base", Rules: entities.SelectionRule{Include: []string{"legacy", "modern"}}}

	policy := resolvePolicy(t, "child", base, child)
	sel := NewSelector().Select(store, policy)
	assert.Equal(t, []string{"modern"}, selectedIDs(store, sel))
}

func Test_Selector_PatternsApplyPerKind(t *testing.T) {
	t.Parallel()
	skill := &entities.Component{ID: "shared-name", Version: "1.0.0", Kind: values.KindSkill}
	hook := &entities.Component{ID: "hook-a", Version: "1.0.0", Kind: values.KindHook}
	store := newStore(t, skill, hook, rule("rule-a", 0))

	policy := resolvePolicy(t, "p", &entities.Profile{
		Name:   "p",
		Rules:  entities.SelectionRule{Include: []string{"*"}, Exclude: []string{"hook-*"}},
		Skills: entities.SelectionRule{Exclude: []string{"*"}},
		Hooks:  entities.SelectionRule{Include: []string{"*"}},
	})

	sel := NewSelector().Select(store, policy)
	// The rules exclude does not touch hooks; skills have no include.
	assert.Equal(t, []string{"hook-a", "rule-a"}, selectedIDs(store, sel))

	hh, _ := store.Handle("hook-a")
	assert.NotContains(t, sel.Excluded, hh)
	sh, _ := store.Handle("shared-name")
	assert.Contains(t, sel.Excluded, sh)
}

func Test_Selector_TagPatterns(t *testing.T) {
	t.Parallel()
	a := rule("a", 0)
	a.Tags = []string{"review"}
	b := rule("b", 0)
	b.Tags = []string{"review", "slow"}
	store := newStore(t, a, b, rule("c", 0))

	policy := resolvePolicy(t, "p", &entities.Profile{
		Name:  "p",
		Rules: entities.SelectionRule{Include: []string{"tag:review"}, Exclude: []string{"tag:slow"}},
	})
	sel := NewSelector().Select(store, policy)
	assert.Equal(t, []string{"a"}, selectedIDs(store, sel))
}
