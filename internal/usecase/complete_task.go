package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// CompleteTaskInput contains the parameters for completing an agent run.
type CompleteTaskInput struct {
	ProjectID string // Project board to mutate (required)
	TaskID    string // Full task id (required)
	Summary   string // Run summary, used as findings when the agent set none
}

// CompleteTaskOutput contains the result of completing a run.
// Fields are ordered to minimize memory padding.
type CompleteTaskOutput struct {
	Task     *domain.Task          // The task after completion
	Conflict *domain.MergeConflict // Set when the merge-back conflicted
	Ignored  bool                  // True when the task was not dispatched (duplicate signal)
}

// CompleteTask is the use case run when an agent finishes: move the task to
// verify, release the lock, clear the dispatch state and merge isolated work
// back. It is idempotent; completing a task that is not dispatched is a
// recorded no-op so duplicate signals cannot corrupt state.
type CompleteTask struct {
	boards    domain.BoardStore
	registry  domain.ProjectRegistry
	worktrees domain.WorktreeManager
	clock     domain.Clock
	logger    domain.Logger
}

// NewCompleteTask creates a new CompleteTask use case.
func NewCompleteTask(
	boards domain.BoardStore,
	registry domain.ProjectRegistry,
	worktrees domain.WorktreeManager,
	clock domain.Clock,
	logger domain.Logger,
) *CompleteTask {
	return &CompleteTask{
		boards:    boards,
		registry:  registry,
		worktrees: worktrees,
		clock:     clock,
		logger:    logger,
	}
}

// Execute completes the run for the given task.
func (uc *CompleteTask) Execute(_ context.Context, in CompleteTaskInput) (*CompleteTaskOutput, error) {
	project, err := uc.registry.Get(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrProjectNotFound, in.ProjectID)
	}

	// Settle the board state first so the task is visible in verify even if
	// the merge below takes a while or fails hard.
	var (
		ignored  bool
		isolated bool
		shortID  string
	)
	board, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		t := b.Find(in.TaskID)
		if t == nil {
			return domain.ErrTaskNotFound
		}
		if !t.Dispatch.Active() {
			ignored = true
			return nil
		}
		now := uc.clock.Now()
		if t.Status != domain.StatusVerify {
			if _, _, err := b.Move(t.ID, domain.StatusVerify, 0, now); err != nil {
				return err
			}
		}
		if err := t.SetDispatch(domain.DispatchNone, now); err != nil {
			return err
		}
		t.Locked = false
		if t.Findings == "" && in.Summary != "" {
			t.Findings = in.Summary
		}
		t.AppendRunSummary(runSummaryLine(now.Format("2006-01-02 15:04"), in.Summary))
		shortID = t.ShortID()
		isolated = t.Isolated()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ignored {
		if uc.logger != nil {
			uc.logger.Debug(domain.ShortID(in.TaskID), "complete", "ignored: task not dispatched")
		}
		return &CompleteTaskOutput{Ignored: true}, nil
	}

	// Reconcile isolated work outside the board lock
	var conflict *domain.MergeConflict
	if isolated {
		conflict, err = uc.worktrees.Merge(project.Path, shortID)
		if err != nil {
			if uc.logger != nil {
				uc.logger.Error(shortID, "merge", err.Error())
			}
			return nil, fmt.Errorf("merge branch: %w", err)
		}

		board, err = uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
			t := b.Find(in.TaskID)
			if t == nil {
				return domain.ErrTaskNotFound
			}
			t.UpdatedAt = uc.clock.Now()
			if conflict != nil {
				t.MergeConflict = conflict
				return nil
			}
			t.WorktreePath, t.Branch, t.MergeConflict = "", "", nil
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if uc.logger != nil {
		if conflict != nil {
			uc.logger.Warn(shortID, "complete", fmt.Sprintf("run complete, merge conflict in %d file(s)", len(conflict.Files)))
		} else {
			uc.logger.Info(shortID, "complete", "run complete, task in verify")
		}
	}

	return &CompleteTaskOutput{Task: board.Find(in.TaskID), Conflict: conflict}, nil
}

// runSummaryLine formats one agent-log line from a run summary.
func runSummaryLine(stamp, summary string) string {
	note := "agent run finished"
	if summary != "" {
		note = summary
		if i := strings.IndexByte(note, '\n'); i >= 0 {
			note = note[:i]
		}
		const maxNote = 120
		if len(note) > maxNote {
			note = note[:maxNote]
		}
	}
	return fmt.Sprintf("[%s] %s", stamp, note)
}
