package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// ShowTaskInput contains the parameters for showing a task.
type ShowTaskInput struct {
	ProjectID string // Project board to read (required)
	Ref       string // Task id or unique prefix (required)
}

// ShowTaskOutput contains the result of showing a task.
type ShowTaskOutput struct {
	Task   *domain.Task         // The task details
	Blocks []domain.RenderBlock // Recorded agent conversation, oldest first
}

// ShowTask is the use case for displaying task details and chat history.
type ShowTask struct {
	boards domain.BoardStore
}

// NewShowTask creates a new ShowTask use case.
func NewShowTask(boards domain.BoardStore) *ShowTask {
	return &ShowTask{
		boards: boards,
	}
}

// Execute retrieves and returns the task details.
func (uc *ShowTask) Execute(_ context.Context, in ShowTaskInput) (*ShowTaskOutput, error) {
	board, err := uc.boards.Load(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}

	task, err := board.FindByRef(in.Ref)
	if err != nil {
		return nil, err
	}

	return &ShowTaskOutput{
		Task:   task,
		Blocks: board.ChatFor(task.ID),
	}, nil
}
