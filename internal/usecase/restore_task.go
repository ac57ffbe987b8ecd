package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// RestoreTaskInput contains the parameters for restoring the last deleted task.
type RestoreTaskInput struct {
	ProjectID string // Project board to mutate (required)
}

// RestoreTaskOutput contains the result of restoring a task.
// Fields are ordered to minimize memory padding.
type RestoreTaskOutput struct {
	Task     *domain.Task // The restored task, nil when nothing qualified
	Restored bool         // False when the undo window had already closed
}

// RestoreTask is the use case for undoing the most recent deletion. Only
// deletions younger than the peek window qualify; anything older is treated
// as intentional.
type RestoreTask struct {
	boards domain.BoardStore
	clock  domain.Clock
	logger domain.Logger
}

// NewRestoreTask creates a new RestoreTask use case.
func NewRestoreTask(boards domain.BoardStore, clock domain.Clock, logger domain.Logger) *RestoreTask {
	return &RestoreTask{
		boards: boards,
		clock:  clock,
		logger: logger,
	}
}

// Execute restores the most recently deleted task if it is still restorable.
func (uc *RestoreTask) Execute(_ context.Context, in RestoreTaskInput) (*RestoreTaskOutput, error) {
	var task *domain.Task
	if _, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		task = b.RestoreLast(uc.clock.Now())
		return nil
	}); err != nil {
		return nil, fmt.Errorf("restore task: %w", err)
	}

	if task == nil {
		return &RestoreTaskOutput{Restored: false}, nil
	}

	if uc.logger != nil {
		uc.logger.Info(task.ShortID(), "task", fmt.Sprintf("restored: %q", task.Title))
	}

	return &RestoreTaskOutput{Task: task, Restored: true}, nil
}
