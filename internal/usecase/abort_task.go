package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// AbortTaskInput contains the parameters for aborting a dispatched task.
type AbortTaskInput struct {
	ProjectID string // Project board to mutate (required)
	Ref       string // Task id or unique prefix (required)
}

// AbortTaskOutput contains the result of aborting a task.
// Fields are ordered to minimize memory padding.
type AbortTaskOutput struct {
	Task    *domain.Task // The task after the abort
	Ignored bool         // True when the task was not dispatched
}

// AbortTask is the use case for cancelling a dispatched run. The supervisor
// is signalled first, then the dispatch state is cleared. The worktree and
// branch are deliberately left in place: partial work stays inspectable and a
// later dispatch of the same task resumes in the same worktree.
type AbortTask struct {
	boards   domain.BoardStore
	signaler domain.ProcessSignaler
	clock    domain.Clock
	logger   domain.Logger
}

// NewAbortTask creates a new AbortTask use case.
func NewAbortTask(boards domain.BoardStore, signaler domain.ProcessSignaler, clock domain.Clock, logger domain.Logger) *AbortTask {
	return &AbortTask{
		boards:   boards,
		signaler: signaler,
		clock:    clock,
		logger:   logger,
	}
}

// Execute aborts the dispatched run for the given task.
func (uc *AbortTask) Execute(_ context.Context, in AbortTaskInput) (*AbortTaskOutput, error) {
	// Look up the supervisor before touching any state
	board, err := uc.boards.Load(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	task, err := board.FindByRef(in.Ref)
	if err != nil {
		return nil, err
	}
	if !task.Dispatch.Active() {
		return &AbortTaskOutput{Task: task, Ignored: true}, nil
	}
	taskID, shortID, pid := task.ID, task.ShortID(), task.DispatchPID

	// Stop the supervisor first so it cannot race the state clear below. A
	// supervisor that is already gone is fine.
	if pid > 0 {
		if err := uc.signaler.Terminate(pid); err != nil {
			return nil, fmt.Errorf("signal supervisor: %w", err)
		}
	}

	board, err = uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		t := b.Find(taskID)
		if t == nil {
			return domain.ErrTaskNotFound
		}
		if !t.Dispatch.Active() {
			// The run completed in the gap; nothing left to clear.
			return nil
		}
		now := uc.clock.Now()
		if err := t.SetDispatch(domain.DispatchNone, now); err != nil {
			return err
		}
		t.Locked = false
		t.AppendRunSummary(fmt.Sprintf("[%s] run aborted", now.Format("2006-01-02 15:04")))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info(shortID, "dispatch", fmt.Sprintf("aborted, supervisor pid %d signalled", pid))
	}

	return &AbortTaskOutput{Task: board.Find(taskID)}, nil
}
