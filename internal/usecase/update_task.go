package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// UpdateTaskInput contains the parameters for updating task fields. Nil
// pointers leave the field untouched; at least one must be set.
// Fields are ordered to minimize memory padding.
type UpdateTaskInput struct {
	Title       *string // New title
	Description *string // New description
	Priority    *string // New priority
	Status      *string // New column; performs the same transfer as a move
	Mode        *string // Per-task execution mode hint; empty string clears it
	Findings    *string // Agent findings
	HumanSteps  *string // Manual verification steps
	Locked      *bool   // Lock flag
	ProjectID   string  // Project board to mutate (required)
	Ref         string  // Task id or unique prefix (required)
}

// UpdateTaskOutput contains the result of updating a task.
type UpdateTaskOutput struct {
	Task *domain.Task // The task after the update
}

// UpdateTask is the use case behind task edit and the machine-readable
// completion surface agents report through. Unlike a move it is allowed on
// locked tasks, because the completion contract runs while the lock is still
// held.
type UpdateTask struct {
	boards domain.BoardStore
	clock  domain.Clock
	logger domain.Logger
}

// NewUpdateTask creates a new UpdateTask use case.
func NewUpdateTask(boards domain.BoardStore, clock domain.Clock, logger domain.Logger) *UpdateTask {
	return &UpdateTask{
		boards: boards,
		clock:  clock,
		logger: logger,
	}
}

// Execute applies the requested field updates.
func (uc *UpdateTask) Execute(_ context.Context, in UpdateTaskInput) (*UpdateTaskOutput, error) {
	if in.Title == nil && in.Description == nil && in.Priority == nil && in.Status == nil &&
		in.Mode == nil && in.Findings == nil && in.HumanSteps == nil && in.Locked == nil {
		return nil, domain.ErrNoFieldsToUpdate
	}

	// Parse enumerated fields before touching the board
	var (
		priority domain.Priority
		status   domain.Status
		mode     domain.ExecutionMode
		err      error
	)
	if in.Priority != nil {
		if priority, err = domain.ParsePriority(*in.Priority); err != nil {
			return nil, err
		}
	}
	if in.Status != nil {
		if status, err = domain.ParseStatus(*in.Status); err != nil {
			return nil, err
		}
	}
	if in.Mode != nil && *in.Mode != "" {
		if mode, err = domain.ParseExecutionMode(*in.Mode); err != nil {
			return nil, err
		}
	}

	var taskID string
	board, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		t, err := b.FindByRef(in.Ref)
		if err != nil {
			return err
		}
		taskID = t.ID
		now := uc.clock.Now()

		if in.Title != nil {
			t.Title = domain.DeriveTitle(*in.Title, t.Description)
		}
		if in.Description != nil {
			if *in.Description == "" {
				return domain.ErrEmptyDescription
			}
			t.Description = *in.Description
		}
		if in.Priority != nil {
			t.Priority = priority
		}
		if in.Mode != nil {
			t.ModeHint = mode
		}
		if in.Findings != nil {
			t.Findings = *in.Findings
		}
		if in.HumanSteps != nil {
			t.HumanSteps = *in.HumanSteps
		}
		if in.Locked != nil {
			t.Locked = *in.Locked
		}

		if in.Status != nil && status != t.Status {
			// done needs the merge-back that only a move performs
			if status == domain.StatusDone && t.Isolated() {
				return fmt.Errorf("task %s: %w", t.ShortID(), domain.ErrUnmergedBranch)
			}
			if _, _, err := b.Move(t.ID, status, 0, now); err != nil {
				return err
			}
		}

		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	task := board.Find(taskID)
	if uc.logger != nil {
		uc.logger.Info(task.ShortID(), "task", "updated")
	}

	return &UpdateTaskOutput{Task: task}, nil
}
