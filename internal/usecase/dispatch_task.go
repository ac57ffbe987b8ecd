package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// DispatchTaskInput contains the parameters for dispatching a task to an
// agent.
type DispatchTaskInput struct {
	ProjectID string // Project board to mutate (required)
	Ref       string // Task id or unique prefix (required)
}

// DispatchTaskOutput contains the result of dispatching a task.
// Fields are ordered to minimize memory padding.
type DispatchTaskOutput struct {
	TaskID       string               // Full task id
	ShortID      string               // Short id used for branch and worktree names
	WorktreePath string               // Empty in sequential mode
	Dir          string               // Directory the agent will run in
	Mode         domain.ExecutionMode // Effective execution mode
	PID          int                  // Supervisor process id
}

// DispatchTask is the use case for handing a task to an agent. It claims the
// task on the board, prepares the execution directory and launches the
// detached supervisor that owns the rest of the run. Failures after the board
// transition roll the task back to todo, unlocked, with no dispatch state.
type DispatchTask struct {
	boards    domain.BoardStore
	registry  domain.ProjectRegistry
	worktrees domain.WorktreeManager
	launcher  domain.SupervisorLauncher
	clock     domain.Clock
	logger    domain.Logger
}

// NewDispatchTask creates a new DispatchTask use case.
func NewDispatchTask(
	boards domain.BoardStore,
	registry domain.ProjectRegistry,
	worktrees domain.WorktreeManager,
	launcher domain.SupervisorLauncher,
	clock domain.Clock,
	logger domain.Logger,
) *DispatchTask {
	return &DispatchTask{
		boards:    boards,
		registry:  registry,
		worktrees: worktrees,
		launcher:  launcher,
		clock:     clock,
		logger:    logger,
	}
}

// Execute dispatches the task.
func (uc *DispatchTask) Execute(_ context.Context, in DispatchTaskInput) (*DispatchTaskOutput, error) {
	project, err := uc.registry.Get(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrProjectNotFound, in.ProjectID)
	}

	// Claim the task under the board lock: lock it, queue it, move it to
	// in-progress. Single-writer semantics make a double dispatch impossible.
	var (
		taskID  string
		shortID string
		mode    domain.ExecutionMode
	)
	if _, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		t, err := b.FindByRef(in.Ref)
		if err != nil {
			return err
		}
		if err := t.Dispatchable(); err != nil {
			return fmt.Errorf("task %s: %w", t.ShortID(), err)
		}
		now := uc.clock.Now()
		if err := t.SetDispatch(domain.DispatchQueued, now); err != nil {
			return err
		}
		t.Locked = true
		if t.Status != domain.StatusInProgress {
			if _, _, err := b.Move(t.ID, domain.StatusInProgress, 0, now); err != nil {
				return err
			}
		}
		taskID, shortID = t.ID, t.ShortID()
		mode = b.ExecutionMode
		if t.ModeHint != "" {
			mode = t.ModeHint
		}
		return nil
	}); err != nil {
		return nil, err
	}

	// Prepare the execution directory
	workDir := project.Path
	worktreePath := ""
	if mode == domain.ModeParallel {
		path, err := uc.worktrees.CreateIsolated(project.Path, shortID)
		if err != nil {
			uc.rollback(in.ProjectID, project.Path, taskID, shortID, false, "create worktree: "+err.Error())
			return nil, fmt.Errorf("create worktree: %w", err)
		}
		worktreePath = path
		workDir = path
	}

	// Advance to starting and record the isolation fields
	if _, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		t := b.Find(taskID)
		if t == nil {
			return domain.ErrTaskNotFound
		}
		if err := t.SetDispatch(domain.DispatchStarting, uc.clock.Now()); err != nil {
			return err
		}
		if worktreePath != "" {
			t.WorktreePath = worktreePath
			t.Branch = domain.BranchName(shortID)
		}
		return nil
	}); err != nil {
		uc.rollback(in.ProjectID, project.Path, taskID, shortID, worktreePath != "", "mark starting: "+err.Error())
		return nil, err
	}

	// Launch the detached supervisor that owns the run from here
	pid, err := uc.launcher.Launch(in.ProjectID, taskID)
	if err != nil {
		uc.rollback(in.ProjectID, project.Path, taskID, shortID, worktreePath != "", "launch supervisor: "+err.Error())
		return nil, fmt.Errorf("launch supervisor: %w", err)
	}

	// Record the supervisor pid for abort. The supervisor may already have
	// advanced the task to running; that is fine, pid is just a field write.
	if _, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		if t := b.Find(taskID); t != nil {
			t.DispatchPID = pid
		}
		return nil
	}); err != nil && uc.logger != nil {
		uc.logger.Warn(shortID, "dispatch", "record supervisor pid: "+err.Error())
	}

	if uc.logger != nil {
		uc.logger.Info(shortID, "dispatch", fmt.Sprintf("dispatched in %s mode, supervisor pid %d", mode, pid))
	}

	return &DispatchTaskOutput{
		TaskID:       taskID,
		ShortID:      shortID,
		WorktreePath: worktreePath,
		Dir:          workDir,
		Mode:         mode,
		PID:          pid,
	}, nil
}

// rollback returns a task claimed for dispatch to the backlog after a
// preparation step failed.
func (uc *DispatchTask) rollback(projectID, projectPath, taskID, shortID string, removeWorktree bool, reason string) {
	if removeWorktree {
		if err := uc.worktrees.Remove(projectPath, shortID); err != nil && uc.logger != nil {
			uc.logger.Warn(shortID, "dispatch", "rollback: remove worktree: "+err.Error())
		}
	}

	if _, err := uc.boards.Mutate(projectID, func(b *domain.Board) error {
		t := b.Find(taskID)
		if t == nil {
			return nil
		}
		now := uc.clock.Now()
		if err := t.SetDispatch(domain.DispatchNone, now); err != nil {
			return err
		}
		t.Locked = false
		t.WorktreePath, t.Branch = "", ""
		if t.Status != domain.StatusTodo {
			if _, _, err := b.Move(t.ID, domain.StatusTodo, 0, now); err != nil {
				return err
			}
		}
		return nil
	}); err != nil && uc.logger != nil {
		uc.logger.Error(shortID, "dispatch", "rollback failed: "+err.Error())
	}

	if uc.logger != nil {
		uc.logger.Warn(shortID, "dispatch", "rolled back: "+reason)
	}
}
