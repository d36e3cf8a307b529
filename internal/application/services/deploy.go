package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/loadout-dev/loadout/internal/application/dto"
	apperrors "github.com/loadout-dev/loadout/internal/application/errors"
	"github.com/loadout-dev/loadout/internal/application/ports"
)

// DeployUseCase places the last successful staged build of a profile into
// the live tool locations.
type DeployUseCase struct {
	staging   ports.StagingRepository
	manifests ports.ManifestRepository
	executor  ports.DeployExecutor
	logger    *slog.Logger
}

// NewDeployUseCase creates a new deploy use case.
func NewDeployUseCase(
	staging ports.StagingRepository,
	manifests ports.ManifestRepository,
	executor ports.DeployExecutor,
	logger *slog.Logger,
) *DeployUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeployUseCase{
		staging:   staging,
		manifests: manifests,
		executor:  executor,
		logger:    logger,
	}
}

// Execute loads the staged trees and manifests of the requested tools and
// hands them to the executor.
func (uc *DeployUseCase) Execute(ctx context.Context, req dto.DeployRequest) (*dto.DeployResult, error) {
	build, err := uc.LoadStaged(ctx, req.Profile, req.Tools)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("deploying build", "profile", req.Profile, "build_id", build.BuildID, "tools", build.Tools, "dry_run", req.DryRun)

	result, err := uc.executor.Deploy(ctx, build, req.DryRun)
	if err != nil {
		return nil, fmt.Errorf("deploy of profile %q failed: %w", req.Profile, err)
	}
	return result, nil
}

// LoadStaged reassembles the last successful build of profile from storage.
// Only tools that build staged are loaded, and each manifest must carry its
// build id; output left behind by earlier builds is rejected.
func (uc *DeployUseCase) LoadStaged(ctx context.Context, profile string, tools []string) (*dto.BuildResult, error) {
	last, err := uc.manifests.LoadBuild(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load build record: %w", err)
	}
	if last == nil {
		return nil, apperrors.NewValidationError("profile", fmt.Sprintf("no staged build for profile %q; run compile first", profile))
	}

	if len(tools) == 0 {
		tools = last.Tools
	}
	tools = slices.Clone(tools)
	slices.Sort(tools)
	tools = slices.Compact(tools)

	build := &dto.BuildResult{BuildID: last.BuildID, Profile: profile, Tools: tools}
	build.Metadata.ProcessedAt = last.CreatedAt
	for _, tool := range tools {
		if !last.Includes(tool) {
			return nil, apperrors.NewValidationError("tool",
				fmt.Sprintf("tool %q has no successful build for profile %q", tool, profile),
				fmt.Sprintf("build %s staged: %v", last.BuildID, last.Tools))
		}
		manifest, err := uc.manifests.Load(ctx, profile, tool)
		if err != nil {
			return nil, fmt.Errorf("failed to load manifest for tool %s: %w", tool, err)
		}
		if manifest == nil || manifest.BuildID != last.BuildID {
			found := "none"
			if manifest != nil {
				found = manifest.BuildID
			}
			return nil, apperrors.NewValidationError("tool",
				fmt.Sprintf("staged manifest of tool %q does not belong to build %s (found %s); recompile profile %q", tool, last.BuildID, found, profile))
		}
		files, err := uc.staging.Read(ctx, profile, tool)
		if err != nil {
			return nil, fmt.Errorf("failed to read staging tree for tool %s: %w", tool, err)
		}

		build.Outputs = append(build.Outputs, &dto.ToolOutput{
			Tool:     tool,
			Manifest: manifest,
			Files:    files,
		})
	}
	return build, nil
}
