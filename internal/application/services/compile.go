// Package services contains application use cases.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/loadout-dev/loadout/internal/application/dto"
	apperrors "github.com/loadout-dev/loadout/internal/application/errors"
	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/services"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

// CompileUseCase orchestrates one build: resolve the profile, select and
// close the component set, bind variables, render every tool in parallel,
// scan, hash and diff, then commit atomically.
// This is a pure application layer component that depends only on ports.
type CompileUseCase struct {
	sources   ports.SourceLoader
	manifests ports.ManifestRepository
	staging   ports.StagingRepository
	guard     ports.SecretGuard
	history   ports.BuildHistory

	profileResolver *services.ProfileResolver
	selector        *services.Selector
	deps            *services.DependencyResolver
	orderer         *services.Orderer
	binder          *services.VariableBinder
	renderer        *services.Renderer
	differ          *services.Differ

	newBuildID func() string
	now        func() time.Time
	logger     *slog.Logger
}

// NewCompileUseCase creates a new compile use case.
// guard and history may be nil.
func NewCompileUseCase(
	sources ports.SourceLoader,
	manifests ports.ManifestRepository,
	staging ports.StagingRepository,
	guard ports.SecretGuard,
	history ports.BuildHistory,
	logger *slog.Logger,
) *CompileUseCase {
	if logger == nil {
		logger = slog.Default()
	}

	return &CompileUseCase{
		sources:         sources,
		manifests:       manifests,
		staging:         staging,
		guard:           guard,
		history:         history,
		profileResolver: services.NewProfileResolver(),
		selector:        services.NewSelector(),
		deps:            services.NewDependencyResolver(),
		orderer:         services.NewOrderer(),
		binder:          services.NewVariableBinder(),
		renderer:        services.NewRenderer(),
		differ:          services.NewDiffer(),
		newBuildID:      uuid.NewString,
		now:             time.Now,
		logger:          logger,
	}
}

// WithClock replaces the clock used for manifest timestamps.
func (uc *CompileUseCase) WithClock(now func() time.Time) *CompileUseCase {
	uc.now = now
	return uc
}

// WithBuildIDs replaces the build id generator.
func (uc *CompileUseCase) WithBuildIDs(gen func() string) *CompileUseCase {
	uc.newBuildID = gen
	return uc
}

// toolRender is one worker's output.
type toolRender struct {
	schema *entities.ToolSchema
	result *services.RenderResult
}

// Execute runs the complete build. On failure it returns an
// *apperrors.BuildError and nothing is written.
func (uc *CompileUseCase) Execute(ctx context.Context, req dto.CompileRequest) (*dto.BuildResult, error) {
	startTime := time.Now()
	timeout := req.Options.EffectiveTimeout()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stage := entities.StageStore
	fail := func(err error) error {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			var timeoutErr *entities.BuildTimeoutError
			if !errors.As(err, &timeoutErr) {
				err = &entities.BuildTimeoutError{Cause: err, Stage: stage, Timeout: timeout}
			}
		}
		uc.logger.Debug("build failed", "profile", req.Profile, "stage", stage, "error", err)
		return apperrors.NewBuildError(req.Profile, err)
	}

	uc.logger.Info("loading sources", "profile", req.Profile)

	// 1. Load and validate every source
	src, err := uc.sources.Load(ctx)
	if err != nil {
		return nil, fail(err)
	}
	uc.logger.Debug("sources loaded", "components", src.Store.Len(), "profiles", len(src.Profiles), "tools", len(src.Tools))

	// 2. Resolve inheritance
	stage = entities.StageProfile
	policy, err := uc.profileResolver.Resolve(req.Profile, src.Profiles)
	if err != nil {
		return nil, fail(err)
	}
	uc.logger.Debug("profile resolved", "chain", policy.Chain)

	// 3-5. Select, close, order
	stage = entities.StageDependency
	selection := uc.selector.Select(src.Store, policy)
	final, err := uc.deps.Resolve(src.Store, selection, policy)
	if err != nil {
		return nil, fail(err)
	}
	ordered := uc.orderer.Order(src.Store, final)
	uc.logger.Info("components selected", "selected", len(selection.Selected), "final", len(ordered))

	// 6. Tools
	stage = entities.StageRender
	schemas, err := uc.selectTools(req.Tools, ordered, src.Tools)
	if err != nil {
		return nil, fail(err)
	}

	// 7. Bind
	stage = entities.StageBind
	bindings := services.NewBindings(policy.Variables, schemas)
	bound, err := uc.binder.Bind(ordered, bindings)
	if err != nil {
		return nil, fail(err)
	}

	// 8. Render and scan, one worker per tool
	stage = entities.StageRender
	renders, err := uc.renderTools(ctx, schemas, bound, bindings, req.Options)
	if err != nil {
		return nil, fail(err)
	}

	// 9. Manifests and diffs
	stage = entities.StageManifest
	result := &dto.BuildResult{
		BuildID: uc.newBuildID(),
		Profile: req.Profile,
	}
	createdAt := uc.now()
	for _, r := range renders {
		output, err := uc.assembleOutput(ctx, result.BuildID, req.Profile, createdAt, r)
		if err != nil {
			return nil, fail(err)
		}
		result.Tools = append(result.Tools, r.schema.Tool)
		result.Outputs = append(result.Outputs, output)
		for _, w := range r.result.Warnings {
			w.Profile = req.Profile
			w.Tool = r.schema.Tool
			result.Diagnostics = append(result.Diagnostics, w)
		}
	}

	// 10. Commit
	if !req.Options.DryRun {
		if err := uc.commit(ctx, req.Profile, renders, result, len(req.Tools) == 0); err != nil {
			return nil, fail(err)
		}
		result.Metadata.Written = true
		uc.recordHistory(ctx, result)
	}

	result.Metadata.RequestID = req.Metadata.RequestID
	result.Metadata.ProcessedAt = startTime
	result.Metadata.Duration = time.Since(startTime)

	uc.logger.Info("build complete",
		"profile", req.Profile,
		"build_id", result.BuildID,
		"tools", len(result.Tools),
		"written", result.Metadata.Written,
		"duration", result.Metadata.Duration)

	return result, nil
}

// selectTools resolves the tool schemas to render, sorted by tool name.
// An empty request means every tool referenced by the final set.
func (uc *CompileUseCase) selectTools(
	requested []string,
	ordered []*entities.Component,
	schemas map[string]*entities.ToolSchema,
) ([]*entities.ToolSchema, error) {
	names := slices.Clone(requested)
	if len(names) == 0 {
		for _, c := range ordered {
			names = append(names, c.Tools()...)
		}
	}
	slices.Sort(names)
	names = slices.Compact(names)

	out := make([]*entities.ToolSchema, 0, len(names))
	for _, name := range names {
		schema, ok := schemas[name]
		if !ok {
			return nil, &entities.UnknownToolError{Tool: name}
		}
		out = append(out, schema)
	}
	return out, nil
}

// renderTools fans out one renderer per tool. The store is shared by
// reference; every worker writes only its own slot.
func (uc *CompileUseCase) renderTools(
	ctx context.Context,
	schemas []*entities.ToolSchema,
	components []*entities.Component,
	bindings *services.Bindings,
	opts dto.CompileOptions,
) ([]toolRender, error) {
	renders := make([]toolRender, len(schemas))

	g, gctx := errgroup.WithContext(ctx)
	if opts.MaxParallelTools > 0 {
		g.SetLimit(opts.MaxParallelTools)
	}

	for i, schema := range schemas {
		g.Go(func() error {
			res, err := uc.renderer.Render(gctx, schema, components, bindings)
			if err != nil {
				return err
			}
			if !opts.SkipSecretGuard && uc.guard != nil {
				for _, path := range res.Tree.Paths() {
					file, _ := res.Tree.Get(path)
					if err := uc.guard.Scan(gctx, schema.Tool, path, file.Content); err != nil {
						return err
					}
				}
			}
			uc.logger.Debug("tool rendered", "tool", schema.Tool, "files", res.Tree.Len())
			renders[i] = toolRender{schema: schema, result: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return renders, ctx.Err()
}

func (uc *CompileUseCase) assembleOutput(
	ctx context.Context,
	buildID, profile string,
	createdAt time.Time,
	r toolRender,
) (*dto.ToolOutput, error) {
	files := r.result.Tree.Contents()
	manifest := entities.NewManifest(buildID, profile, r.schema.Tool, createdAt, files, r.result.Components)

	previous, err := uc.manifests.Load(ctx, profile, r.schema.Tool)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous manifest for tool %s: %w", r.schema.Tool, err)
	}

	return &dto.ToolOutput{
		Tool:     r.schema.Tool,
		Manifest: manifest,
		Diff:     uc.differ.Diff(previous, manifest),
		Files:    files,
	}, nil
}

// priorState is what a tool had staged before the current commit.
type priorState struct {
	tool     string
	manifest *entities.Manifest
	files    map[string][]byte
}

// commit installs each tool's tree together with its manifest, then saves
// the build record that makes the build deployable. Any failure restores the
// tools already replaced, so the previous build stays intact.
// A full-profile build (prune) also drops staged tools it did not render.
func (uc *CompileUseCase) commit(ctx context.Context, profile string, renders []toolRender, result *dto.BuildResult, prune bool) error {
	replaced := make([]priorState, 0, len(renders))
	fail := func(err error) error {
		if rerr := uc.restore(context.WithoutCancel(ctx), profile, replaced); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}

	for i, r := range renders {
		tool := r.schema.Tool
		prior, err := uc.snapshot(ctx, profile, tool)
		if err != nil {
			return fail(err)
		}
		if err := uc.staging.Commit(ctx, profile, r.result.Tree); err != nil {
			return fail(fmt.Errorf("failed to commit staging tree for tool %s: %w", tool, err))
		}
		replaced = append(replaced, prior)
		if err := uc.manifests.Save(ctx, result.Outputs[i].Manifest); err != nil {
			return fail(fmt.Errorf("failed to save manifest for tool %s: %w", tool, err))
		}
	}

	build := &entities.StagedBuild{
		BuildID:   result.BuildID,
		Profile:   profile,
		Tools:     slices.Clone(result.Tools),
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.manifests.SaveBuild(ctx, build); err != nil {
		return fail(fmt.Errorf("failed to save build record: %w", err))
	}

	if prune {
		uc.pruneStale(ctx, profile, result.Tools)
	}
	return nil
}

func (uc *CompileUseCase) snapshot(ctx context.Context, profile, tool string) (priorState, error) {
	prior := priorState{tool: tool}
	m, err := uc.manifests.Load(ctx, profile, tool)
	if err != nil {
		return prior, fmt.Errorf("failed to load manifest for tool %s: %w", tool, err)
	}
	files, err := uc.staging.Read(ctx, profile, tool)
	if err != nil {
		return prior, fmt.Errorf("failed to read staging tree for tool %s: %w", tool, err)
	}
	prior.manifest = m
	prior.files = files
	return prior, nil
}

// restore puts back the trees and manifests in replaced, newest first.
func (uc *CompileUseCase) restore(ctx context.Context, profile string, replaced []priorState) error {
	var errs []error
	for i := len(replaced) - 1; i >= 0; i-- {
		prior := replaced[i]
		if prior.manifest == nil {
			errs = append(errs,
				uc.staging.Remove(ctx, profile, prior.tool),
				uc.manifests.Delete(ctx, profile, prior.tool))
			continue
		}
		errs = append(errs,
			uc.staging.Commit(ctx, profile, entities.NewStagedTreeFrom(prior.tool, prior.files)),
			uc.manifests.Save(ctx, prior.manifest))
	}
	if err := errors.Join(errs...); err != nil {
		uc.logger.Error("failed to restore previous build", "profile", profile, "error", err)
		return fmt.Errorf("failed to restore previous build: %w", err)
	}
	uc.logger.Warn("commit failed, previous build restored", "profile", profile, "tools", len(replaced))
	return nil
}

// pruneStale removes staged trees and manifests of tools outside keep.
// The build record already excludes them, so failures only leave clutter.
func (uc *CompileUseCase) pruneStale(ctx context.Context, profile string, keep []string) {
	staged, err := uc.staging.Tools(ctx, profile)
	if err != nil {
		uc.logger.Warn("failed to list staged tools", "profile", profile, "error", err)
		return
	}
	for _, tool := range staged {
		if slices.Contains(keep, tool) {
			continue
		}
		if err := errors.Join(uc.staging.Remove(ctx, profile, tool), uc.manifests.Delete(ctx, profile, tool)); err != nil {
			uc.logger.Warn("failed to prune stale tool output", "profile", profile, "tool", tool, "error", err)
			continue
		}
		uc.logger.Debug("pruned stale tool output", "profile", profile, "tool", tool)
	}
}

// recordHistory is best effort: a history failure never fails a build.
func (uc *CompileUseCase) recordHistory(ctx context.Context, result *dto.BuildResult) {
	if uc.history == nil {
		return
	}
	records := make([]dto.BuildRecord, 0, len(result.Outputs))
	for _, out := range result.Outputs {
		records = append(records, dto.BuildRecord{
			BuildID:   result.BuildID,
			Profile:   result.Profile,
			Tool:      out.Tool,
			Digest:    out.Manifest.Digest().String(),
			CreatedAt: out.Manifest.CreatedAt,
			Files:     len(out.Manifest.Entries),
			Added:     out.Diff.Count(values.ChangeAdded),
			Changed:   out.Diff.Count(values.ChangeChanged),
			Unchanged: out.Diff.Count(values.ChangeUnchanged),
			Removed:   out.Diff.Count(values.ChangeRemoved),
		})
	}
	if err := uc.history.Record(ctx, records); err != nil {
		uc.logger.Warn("failed to record build history", "build_id", result.BuildID, "error", err)
	}
}
