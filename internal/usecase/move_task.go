package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// MoveTaskInput contains the parameters for moving a task between columns.
// Fields are ordered to minimize memory padding.
type MoveTaskInput struct {
	ProjectID string // Project board to mutate (required)
	Ref       string // Task id or unique prefix (required)
	To        string // Target column (required)
	Index     int    // Insertion index within the column; negative appends
}

// MoveTaskOutput contains the result of moving a task.
// Fields are ordered to minimize memory padding.
type MoveTaskOutput struct {
	Task     *domain.Task          // The task after the move
	Conflict *domain.MergeConflict // Set when a merge-back to done conflicted
	From     domain.Status         // Column the task came from
	Moved    bool                  // False when a conflict blocked the move
}

// MoveTask is the use case for transferring a task to another column. Moving
// an isolated task to done re-attempts the merge-back first; on conflict the
// task stays in verify with the conflict recorded for human resolution.
type MoveTask struct {
	boards    domain.BoardStore
	registry  domain.ProjectRegistry
	worktrees domain.WorktreeManager
	clock     domain.Clock
	logger    domain.Logger
}

// NewMoveTask creates a new MoveTask use case.
func NewMoveTask(boards domain.BoardStore, registry domain.ProjectRegistry, worktrees domain.WorktreeManager, clock domain.Clock, logger domain.Logger) *MoveTask {
	return &MoveTask{
		boards:    boards,
		registry:  registry,
		worktrees: worktrees,
		clock:     clock,
		logger:    logger,
	}
}

// Execute moves the task to the target column.
func (uc *MoveTask) Execute(_ context.Context, in MoveTaskInput) (*MoveTaskOutput, error) {
	to, err := domain.ParseStatus(in.To)
	if err != nil {
		return nil, err
	}

	// Resolve the task and check it can be moved
	board, err := uc.boards.Load(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	task, err := board.FindByRef(in.Ref)
	if err != nil {
		return nil, err
	}
	if task.Locked {
		return nil, fmt.Errorf("task %s: %w", task.ShortID(), domain.ErrTaskLocked)
	}
	if task.Dispatch.Active() {
		return nil, fmt.Errorf("task %s: %w", task.ShortID(), domain.ErrTaskDispatched)
	}
	taskID, shortID, from := task.ID, task.ShortID(), task.Status

	// Completing an isolated task means reconciling its branch first
	if to == domain.StatusDone && task.Isolated() {
		project, err := uc.registry.Get(in.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("get project: %w", err)
		}
		if project == nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrProjectNotFound, in.ProjectID)
		}

		conflict, err := uc.worktrees.Merge(project.Path, shortID)
		if err != nil {
			return nil, fmt.Errorf("merge branch: %w", err)
		}
		if conflict != nil {
			return uc.recordConflict(in.ProjectID, taskID, shortID, from, conflict)
		}

		// Merged cleanly: drop the isolation fields along with the move
		board, err = uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
			t := b.Find(taskID)
			if t == nil {
				return domain.ErrTaskNotFound
			}
			t.WorktreePath, t.Branch, t.MergeConflict = "", "", nil
			_, _, err := b.Move(taskID, to, uc.insertIndex(b, to, in.Index), uc.clock.Now())
			return err
		})
		if err != nil {
			return nil, err
		}
		if uc.logger != nil {
			uc.logger.Info(shortID, "merge", "branch merged back on move to done")
		}
		return &MoveTaskOutput{Task: board.Find(taskID), From: from, Moved: true}, nil
	}

	// Plain column transfer
	board, err = uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		_, _, err := b.Move(taskID, to, uc.insertIndex(b, to, in.Index), uc.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info(shortID, "task", fmt.Sprintf("moved %s -> %s", from, to))
	}

	return &MoveTaskOutput{Task: board.Find(taskID), From: from, Moved: true}, nil
}

// recordConflict keeps the task in verify with the conflict attached.
func (uc *MoveTask) recordConflict(projectID, taskID, shortID string, from domain.Status, conflict *domain.MergeConflict) (*MoveTaskOutput, error) {
	board, err := uc.boards.Mutate(projectID, func(b *domain.Board) error {
		t := b.Find(taskID)
		if t == nil {
			return domain.ErrTaskNotFound
		}
		now := uc.clock.Now()
		t.MergeConflict = conflict
		t.UpdatedAt = now
		if t.Status != domain.StatusVerify {
			if _, _, err := b.Move(taskID, domain.StatusVerify, 0, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if uc.logger != nil {
		uc.logger.Warn(shortID, "merge", fmt.Sprintf("merge conflict in %d file(s), task held in verify", len(conflict.Files)))
	}
	return &MoveTaskOutput{Task: board.Find(taskID), Conflict: conflict, From: from, Moved: false}, nil
}

// insertIndex maps a negative index onto the end of the target column.
func (uc *MoveTask) insertIndex(b *domain.Board, to domain.Status, index int) int {
	if index < 0 {
		return len(b.Column(to))
	}
	return index
}
