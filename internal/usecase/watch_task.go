package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// BlockFollower streams a task's render blocks as they change, replaying
// history first and returning once the run finishes.
type BlockFollower interface {
	Follow(ctx context.Context, projectID, taskID string, emit func(domain.RenderBlock)) error
}

// WatchTaskInput contains the parameters for watching a task's conversation.
type WatchTaskInput struct {
	Emit      func(domain.RenderBlock) // Receives each new or updated block (required)
	ProjectID string                   // Project the task belongs to (required)
	Ref       string                   // Task id or unique prefix (required)
}

// WatchTaskOutput contains the result of watching a task.
type WatchTaskOutput struct {
	Task *domain.Task // Snapshot of the task when watching began
}

// WatchTask is the use case for following a task's agent conversation live.
// For a finished task the recorded history is replayed and the watch ends.
type WatchTask struct {
	boards   domain.BoardStore
	follower BlockFollower
}

// NewWatchTask creates a new WatchTask use case.
func NewWatchTask(boards domain.BoardStore, follower BlockFollower) *WatchTask {
	return &WatchTask{
		boards:   boards,
		follower: follower,
	}
}

// Execute follows the task until its run ends or ctx is cancelled.
func (uc *WatchTask) Execute(ctx context.Context, in WatchTaskInput) (*WatchTaskOutput, error) {
	if in.Emit == nil {
		return nil, errors.New("emit callback is required")
	}

	board, err := uc.boards.Load(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	task, err := board.FindByRef(in.Ref)
	if err != nil {
		return nil, err
	}

	if err := uc.follower.Follow(ctx, in.ProjectID, task.ID, in.Emit); err != nil {
		return nil, err
	}

	return &WatchTaskOutput{Task: task}, nil
}
