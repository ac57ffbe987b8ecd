package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// DeleteTaskInput contains the parameters for deleting a task.
type DeleteTaskInput struct {
	ProjectID string // Project board to mutate (required)
	Ref       string // Task id or unique prefix (required)
}

// DeleteTaskOutput contains the result of deleting a task.
type DeleteTaskOutput struct {
	Task *domain.Task // The deleted task
}

// DeleteTask is the use case for deleting a task into the undo buffer. The
// task's worktree is left alone so an undo restores the work intact; orphaned
// worktrees are reclaimed by prune once the undo entry expires.
type DeleteTask struct {
	boards domain.BoardStore
	clock  domain.Clock
	logger domain.Logger
}

// NewDeleteTask creates a new DeleteTask use case.
func NewDeleteTask(boards domain.BoardStore, clock domain.Clock, logger domain.Logger) *DeleteTask {
	return &DeleteTask{
		boards: boards,
		clock:  clock,
		logger: logger,
	}
}

// Execute deletes the task, keeping it restorable for a short window.
func (uc *DeleteTask) Execute(_ context.Context, in DeleteTaskInput) (*DeleteTaskOutput, error) {
	var task *domain.Task
	if _, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		t, err := b.FindByRef(in.Ref)
		if err != nil {
			return err
		}
		if t.Locked {
			return fmt.Errorf("task %s: %w", t.ShortID(), domain.ErrTaskLocked)
		}
		if t.Dispatch.Active() {
			return fmt.Errorf("task %s: %w", t.ShortID(), domain.ErrTaskDispatched)
		}

		removed, column, index, ok := b.Remove(t.ID)
		if !ok {
			return domain.ErrTaskNotFound
		}
		b.Archive(removed, column, index, uc.clock.Now())
		task = removed
		return nil
	}); err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info(task.ShortID(), "task", fmt.Sprintf("deleted: %q", task.Title))
	}

	return &DeleteTaskOutput{Task: task}, nil
}
