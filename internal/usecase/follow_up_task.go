package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// FollowUpTaskInput contains the parameters for a follow-up dispatch.
type FollowUpTaskInput struct {
	ProjectID string // Project board to mutate (required)
	Ref       string // Task id or unique prefix (required)
	Message   string // Reviewer message for the agent (required)
}

// FollowUpTaskOutput contains the result of a follow-up dispatch.
type FollowUpTaskOutput struct {
	Dispatched *DispatchTaskOutput // Details of the new run
}

// FollowUpTask is the use case for sending reviewer feedback back to a task's
// agent. The message is recorded in the conversation immediately and staged
// on the task, then a fresh dispatch starts a run whose prompt carries it.
// The staged copy also dedups the message if the agent stream replays it.
type FollowUpTask struct {
	boards   domain.BoardStore
	dispatch *DispatchTask
	clock    domain.Clock
	logger   domain.Logger
}

// NewFollowUpTask creates a new FollowUpTask use case.
func NewFollowUpTask(boards domain.BoardStore, dispatch *DispatchTask, clock domain.Clock, logger domain.Logger) *FollowUpTask {
	return &FollowUpTask{
		boards:   boards,
		dispatch: dispatch,
		clock:    clock,
		logger:   logger,
	}
}

// Execute records the message and redispatches the task.
func (uc *FollowUpTask) Execute(ctx context.Context, in FollowUpTaskInput) (*FollowUpTaskOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}

	var taskID, shortID string
	if _, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		t, err := b.FindByRef(in.Ref)
		if err != nil {
			return err
		}
		if err := t.Dispatchable(); err != nil {
			return fmt.Errorf("task %s: %w", t.ShortID(), err)
		}
		now := uc.clock.Now()
		b.UpsertBlock(t.ID, domain.RenderBlock{
			Time:   now,
			ID:     uuid.NewString(),
			Kind:   domain.BlockUserMessage,
			Status: domain.BlockComplete,
			Text:   message,
		})
		t.PendingFollowUp = message
		t.UpdatedAt = now
		taskID, shortID = t.ID, t.ShortID()
		return nil
	}); err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info(shortID, "task", "follow-up recorded")
	}

	out, err := uc.dispatch.Execute(ctx, DispatchTaskInput{ProjectID: in.ProjectID, Ref: taskID})
	if err != nil {
		return nil, fmt.Errorf("dispatch follow-up: %w", err)
	}

	return &FollowUpTaskOutput{Dispatched: out}, nil
}
