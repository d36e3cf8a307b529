package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadout-dev/loadout/internal/application/dto"
	apperrors "github.com/loadout-dev/loadout/internal/application/errors"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
	"github.com/loadout-dev/loadout/internal/infrastructure/persistence/memory"
)

// mockSourceLoader returns a fixed source tree.
type mockSourceLoader struct {
	src   *dto.Source
	err   error
	block bool
}

func (m *mockSourceLoader) Load(ctx context.Context) (*dto.Source, error) {
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.src, m.err
}

// mockGuard flags any file containing the needle.
type mockGuard struct {
	needle string
}

func (g *mockGuard) Scan(_ context.Context, tool, path string, content []byte) error {
	for i, line := range strings.Split(string(content), "\n") {
		if g.needle != "" && strings.Contains(line, g.needle) {
			return &entities.SecretLeakError{Tool: tool, Path: path, Rule: "test", Line: i + 1}
		}
	}
	return nil
}

func component(id string, kind values.ComponentKind, priority int, output map[string]string, content map[string]interface{}, deps ...string) *entities.Component {
	return &entities.Component{
		ID:        id,
		Version:   "1.0.0",
		Kind:      kind,
		Priority:  priority,
		DependsOn: deps,
		Output:    output,
		Content:   content,
		Source:    "components/" + id + ".yaml",
	}
}

func testSource(t *testing.T, extra ...*entities.Component) *dto.Source {
	t.Helper()
	components := []*entities.Component{
		component("git-workflow", values.KindRule, 100,
			map[string]string{"claude": "markdown", "cursor": "rule"},
			map[string]interface{}{"body": "Use ${branch_prefix}/ branches."}, "base-style"),
		component("base-style", values.KindRule, 10,
			map[string]string{"claude": "markdown"},
			map[string]interface{}{"body": "Be terse."}),
		component("github-mcp", values.KindMCPGlobal, 0,
			map[string]string{"claude": "mcp"},
			map[string]interface{}{"server": map[string]interface{}{"mcpServers": map[string]interface{}{"github": map[string]interface{}{"command": "gh-mcp"}}}}),
		component("experimental", values.KindRule, 0,
			map[string]string{"claude": "markdown"},
			map[string]interface{}{"body": "Experimental."}),
	}
	components = append(components, extra...)
	store, err := entities.NewComponentStore(components)
	require.NoError(t, err)

	return &dto.Source{
		Dir:   "/src",
		Store: store,
		Profiles: map[string]*entities.Profile{
			"base": {
				Name:      "base",
				Rules:     entities.SelectionRule{Include: []string{"*"}, Exclude: []string{"experimental"}},
				MCPGlobal: entities.SelectionRule{Include: []string{"github-*"}},
				Variables: map[string]interface{}{"branch_prefix": "feature"},
			},
			"personal": {
				Name:      "personal",
				Extends:   "base",
				Variables: map[string]interface{}{"branch_prefix": "me"},
			},
		},
		Tools: map[string]*entities.ToolSchema{
			"claude": {
				Tool: "claude",
				Formats: map[string]entities.FormatEntry{
					"markdown": {Path: "CLAUDE.md", Strategy: values.StrategyAppend},
					"mcp":      {Path: "mcp.json", Strategy: values.StrategyJSONMerge, Field: "server"},
				},
			},
			"cursor": {
				Tool: "cursor",
				Formats: map[string]entities.FormatEntry{
					"rule": {Path: "rules/${id}.mdc", Strategy: values.StrategyOverwrite},
				},
			},
		},
	}
}

type harness struct {
	uc        *CompileUseCase
	manifests *memory.ManifestRepository
	staging   *memory.StagingRepository
	history   *memory.BuildHistory
}

func newHarness(t *testing.T, loader *mockSourceLoader, guard *mockGuard) *harness {
	t.Helper()
	h := &harness{
		manifests: memory.NewManifestRepository(),
		staging:   memory.NewStagingRepository(),
		history:   memory.NewBuildHistory(),
	}
	n := 0
	uc := NewCompileUseCase(loader, h.manifests, h.staging, nil, h.history, nil)
	if guard != nil {
		uc = NewCompileUseCase(loader, h.manifests, h.staging, guard, h.history, nil)
	}
	h.uc = uc.
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }).
		WithBuildIDs(func() string {
			n++
			return "build-" + string(rune('0'+n))
		})
	return h
}

func Test_Compile_WritesStagingAndManifests(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &mockSourceLoader{src: testSource(t)}, nil)
	ctx := context.Background()

	result, err := h.uc.Execute(ctx, dto.CompileRequest{Profile: "personal"})
	require.NoError(t, err)

	assert.Equal(t, "build-1", result.BuildID)
	assert.Equal(t, []string{"claude", "cursor"}, result.Tools)
	assert.True(t, result.Metadata.Written)

	claude, ok := result.Output("claude")
	require.True(t, ok)
	assert.Equal(t, []string{"git-workflow", "base-style", "github-mcp"}, claude.Manifest.Components)
	assert.Equal(t, "Use me/ branches.\n\nBe terse.\n", string(claude.Files["CLAUDE.md"]))
	assert.Equal(t, 2, claude.Diff.Count(values.ChangeAdded))

	staged, err := h.staging.Read(ctx, "personal", "cursor")
	require.NoError(t, err)
	assert.Equal(t, "Use me/ branches.\n", string(staged["rules/git-workflow.mdc"]))

	stored, err := h.manifests.Load(ctx, "personal", "claude")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "build-1", stored.BuildID)

	records, err := h.history.Recent(ctx, "personal", 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func Test_Compile_RecompileIsUnchanged(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &mockSourceLoader{src: testSource(t)}, nil)
	ctx := context.Background()

	first, err := h.uc.Execute(ctx, dto.CompileRequest{Profile: "personal"})
	require.NoError(t, err)
	second, err := h.uc.Execute(ctx, dto.CompileRequest{Profile: "personal"})
	require.NoError(t, err)

	assert.False(t, second.HasChanges())
	for _, out := range second.Outputs {
		prev, _ := first.Output(out.Tool)
		assert.Equal(t, prev.Manifest.Digest(), out.Manifest.Digest())
		assert.Equal(t, len(out.Diff.Changes), out.Diff.Count(values.ChangeUnchanged))
	}
}

func Test_Compile_DryRunWritesNothing(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &mockSourceLoader{src: testSource(t)}, nil)
	ctx := context.Background()

	result, err := h.uc.Execute(ctx, dto.CompileRequest{Profile: "personal", Options: dto.CompileOptions{DryRun: true}})
	require.NoError(t, err)
	assert.False(t, result.Metadata.Written)
	assert.True(t, result.HasChanges())

	tools, err := h.staging.Tools(ctx, "personal")
	require.NoError(t, err)
	assert.Empty(t, tools)
	m, err := h.manifests.Load(ctx, "personal", "claude")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func Test_Compile_RequestedTools(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &mockSourceLoader{src: testSource(t)}, nil)

	result, err := h.uc.Execute(context.Background(), dto.CompileRequest{Profile: "personal", Tools: []string{"cursor", "cursor"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"cursor"}, result.Tools)

	_, err = h.uc.Execute(context.Background(), dto.CompileRequest{Profile: "personal", Tools: []string{"vim"}})
	var unknown *entities.UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "vim", unknown.Tool)
}

func Test_Compile_FailureWritesNothing(t *testing.T) {
	t.Parallel()
	broken := component("needs-ghost", values.KindRule, 0, map[string]string{"claude": "markdown"},
		map[string]interface{}{"body": "x"}, "ghost")
	h := newHarness(t, &mockSourceLoader{src: testSource(t, broken)}, nil)
	ctx := context.Background()

	_, err := h.uc.Execute(ctx, dto.CompileRequest{Profile: "personal"})
	require.Error(t, err)

	var buildErr *apperrors.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, entities.StageDependency, buildErr.Diagnostic.Stage)
	assert.Equal(t, "personal", buildErr.Diagnostic.Profile)
	assert.Equal(t, entities.LevelError, buildErr.Diagnostic.Level)

	var missing *entities.MissingDependencyError
	require.ErrorAs(t, err, &missing)

	tools, _ := h.staging.Tools(ctx, "personal")
	assert.Empty(t, tools)
}

func Test_Compile_UnknownProfile(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &mockSourceLoader{src: testSource(t)}, nil)

	_, err := h.uc.Execute(context.Background(), dto.CompileRequest{Profile: "work"})
	var notFound *entities.ProfileNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func Test_Compile_UnboundVariable(t *testing.T) {
	t.Parallel()
	src := testSource(t)
	delete(src.Profiles["base"].Variables, "branch_prefix")
	src.Profiles["personal"].Variables = nil
	h := newHarness(t, &mockSourceLoader{src: src}, nil)

	_, err := h.uc.Execute(context.Background(), dto.CompileRequest{Profile: "personal"})
	var unbound *entities.UnboundVariableError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "git-workflow", unbound.ComponentID)
	assert.Equal(t, "branch_prefix", unbound.Variable)
}

func Test_Compile_SecretGuardAbortsBuild(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &mockSourceLoader{src: testSource(t)}, &mockGuard{needle: "gh-mcp"})
	ctx := context.Background()

	_, err := h.uc.Execute(ctx, dto.CompileRequest{Profile: "personal"})
	var leak *entities.SecretLeakError
	require.ErrorAs(t, err, &leak)
	assert.Equal(t, "claude", leak.Tool)
	assert.Equal(t, "mcp.json", leak.Path)

	m, _ := h.manifests.Load(ctx, "personal", "cursor")
	assert.Nil(t, m, "no tool is committed when any tool fails")

	_, err = h.uc.Execute(ctx, dto.CompileRequest{Profile: "personal", Options: dto.CompileOptions{SkipSecretGuard: true}})
	assert.NoError(t, err)
}

func Test_Compile_Timeout(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &mockSourceLoader{block: true}, nil)

	_, err := h.uc.Execute(context.Background(), dto.CompileRequest{
		Profile: "personal",
		Options: dto.CompileOptions{Timeout: 10 * time.Millisecond},
	})
	var timeout *entities.BuildTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, entities.StageStore, timeout.Stage)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func Test_Compile_WarningsCarryToolAndProfile(t *testing.T) {
	t.Parallel()
	src := testSource(t)
	src.Tools["cursor"].Formats["rule"] = entities.FormatEntry{Path: "rules.mdc", Strategy: values.StrategyOverwrite}
	extra := component("zz-rule", values.KindRule, 0, map[string]string{"cursor": "rule"}, map[string]interface{}{"body": "z"})
	store, err := entities.NewComponentStore(append(collect(src.Store), extra))
	require.NoError(t, err)
	src.Store = store
	h := newHarness(t, &mockSourceLoader{src: src}, nil)

	result, err := h.uc.Execute(context.Background(), dto.CompileRequest{Profile: "personal", Tools: []string{"cursor"}})
	require.NoError(t, err)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "cursor", result.Diagnostics[0].Tool)
	assert.Equal(t, "personal", result.Diagnostics[0].Profile)
	assert.Equal(t, entities.LevelWarning, result.Diagnostics[0].Level)
}

func Test_Compile_ParallelLimit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &mockSourceLoader{src: testSource(t)}, nil)

	result, err := h.uc.Execute(context.Background(), dto.CompileRequest{
		Profile: "personal",
		Options: dto.CompileOptions{MaxParallelTools: 1},
	})
	require.NoError(t, err)
	assert.Len(t, result.Outputs, 2)
}

func collect(store *entities.ComponentStore) []*entities.Component {
	var out []*entities.Component
	for _, c := range store.All() {
		out = append(out, c)
	}
	return out
}

// failingStaging refuses to commit one tool's tree.
type failingStaging struct {
	*memory.StagingRepository
	tool string
}

func (f *failingStaging) Commit(ctx context.Context, profile string, tree *entities.StagedTree) error {
	if tree.Tool == f.tool {
		return errors.New("disk full")
	}
	return f.StagingRepository.Commit(ctx, profile, tree)
}

func Test_Compile_FailedCommitRestoresPreviousBuild(t *testing.T) {
	t.Parallel()
	h := newHarness(t, &mockSourceLoader{src: testSource(t)}, nil)
	ctx := context.Background()

	first, err := h.uc.Execute(ctx, dto.CompileRequest{Profile: "personal"})
	require.NoError(t, err)

	changed := testSource(t)
	changed.Profiles["personal"].Variables = map[string]interface{}{"branch_prefix": "you"}
	uc := NewCompileUseCase(&mockSourceLoader{src: changed}, h.manifests, &failingStaging{StagingRepository: h.staging, tool: "cursor"}, nil, h.history, nil).
		WithBuildIDs(func() string { return "build-9" })

	_, err = uc.Execute(ctx, dto.CompileRequest{Profile: "personal"})
	require.ErrorContains(t, err, "disk full")

	staged, err := h.staging.Read(ctx, "personal", "claude")
	require.NoError(t, err)
	assert.Equal(t, "Use me/ branches.\n\nBe terse.\n", string(staged["CLAUDE.md"]))

	for _, tool := range []string{"claude", "cursor"} {
		m, err := h.manifests.Load(ctx, "personal", tool)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, first.BuildID, m.BuildID, tool)
	}

	last, err := h.manifests.LoadBuild(ctx, "personal")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, first.BuildID, last.BuildID)

	exec := &mockExecutor{}
	_, err = NewDeployUseCase(h.staging, h.manifests, exec, nil).Execute(ctx, dto.DeployRequest{Profile: "personal", DryRun: true})
	require.NoError(t, err)
	claude, ok := exec.got.Output("claude")
	require.True(t, ok)
	assert.Equal(t, values.DigestOf(staged["CLAUDE.md"]), mustLookup(t, claude, "CLAUDE.md"))
}

func Test_Compile_FailedFirstCommitLeavesNothingStaged(t *testing.T) {
	t.Parallel()
	manifests := memory.NewManifestRepository()
	staging := memory.NewStagingRepository()
	uc := NewCompileUseCase(&mockSourceLoader{src: testSource(t)}, manifests, &failingStaging{StagingRepository: staging, tool: "cursor"}, nil, memory.NewBuildHistory(), nil)
	ctx := context.Background()

	_, err := uc.Execute(ctx, dto.CompileRequest{Profile: "personal"})
	require.Error(t, err)

	tools, err := staging.Tools(ctx, "personal")
	require.NoError(t, err)
	assert.Empty(t, tools)

	m, err := manifests.Load(ctx, "personal", "claude")
	require.NoError(t, err)
	assert.Nil(t, m)

	last, err := manifests.LoadBuild(ctx, "personal")
	require.NoError(t, err)
	assert.Nil(t, last)
}
