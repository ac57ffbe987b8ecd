package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// SetModeInput contains the parameters for changing a project's execution mode.
type SetModeInput struct {
	ProjectID string // Project to update (required)
	Mode      string // "sequential" or "parallel"
}

// SetModeOutput contains the result of changing the execution mode.
type SetModeOutput struct {
	Mode domain.ExecutionMode // The mode now in effect
}

// SetMode is the use case for switching a board between sequential and
// parallel dispatch. The mode applies to future dispatches only; tasks
// already running keep the isolation they started with.
type SetMode struct {
	registry domain.ProjectRegistry
	boards   domain.BoardStore
	logger   domain.Logger
}

// NewSetMode creates a new SetMode use case.
func NewSetMode(registry domain.ProjectRegistry, boards domain.BoardStore, logger domain.Logger) *SetMode {
	return &SetMode{
		registry: registry,
		boards:   boards,
		logger:   logger,
	}
}

// Execute sets the project's execution mode.
func (uc *SetMode) Execute(_ context.Context, in SetModeInput) (*SetModeOutput, error) {
	mode, err := domain.ParseExecutionMode(in.Mode)
	if err != nil {
		return nil, err
	}

	project, err := uc.registry.Get(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrProjectNotFound, in.ProjectID)
	}

	if _, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		b.ExecutionMode = mode
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update board: %w", err)
	}

	if uc.logger != nil {
		uc.logger.Info("", "project", fmt.Sprintf("%s execution mode set to %s", in.ProjectID, mode))
	}

	return &SetModeOutput{Mode: mode}, nil
}
