package services

import (
	"context"
	"fmt"

	"github.com/loadout-dev/loadout/internal/application/dto"
	apperrors "github.com/loadout-dev/loadout/internal/application/errors"
	"github.com/loadout-dev/loadout/internal/application/ports"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/services"
)

// ListComponentsUseCase queries the component store.
type ListComponentsUseCase struct {
	sources ports.SourceLoader
}

// NewListComponentsUseCase creates a new list use case.
func NewListComponentsUseCase(sources ports.SourceLoader) *ListComponentsUseCase {
	return &ListComponentsUseCase{sources: sources}
}

// Execute returns the matching components in id order.
func (uc *ListComponentsUseCase) Execute(ctx context.Context, req dto.ListRequest) ([]*entities.Component, error) {
	filter := services.NewComponentFilter().WithKinds(req.Kinds).WithTags(req.Tags)
	if req.FilterExpression != "" {
		program, err := services.CompileFilterExpression(req.FilterExpression)
		if err != nil {
			return nil, apperrors.NewValidationError("filter", "invalid filter expression", err.Error())
		}
		filter = filter.WithFilterExpression(program)
	}

	src, err := uc.sources.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	return filter.Apply(src.Store), nil
}

// BuildHistoryUseCase lists recorded builds.
type BuildHistoryUseCase struct {
	history ports.BuildHistory
}

// NewBuildHistoryUseCase creates a new history use case.
func NewBuildHistoryUseCase(history ports.BuildHistory) *BuildHistoryUseCase {
	return &BuildHistoryUseCase{history: history}
}

// Execute returns the newest records first. An empty profile lists all.
func (uc *BuildHistoryUseCase) Execute(ctx context.Context, profile string, limit int) ([]dto.BuildRecord, error) {
	if uc.history == nil {
		return nil, apperrors.NewConfigurationError("history", "build history is disabled", nil)
	}
	if limit <= 0 {
		return nil, apperrors.NewValidationError("limit", "must be positive")
	}
	return uc.history.Recent(ctx, profile, limit)
}
