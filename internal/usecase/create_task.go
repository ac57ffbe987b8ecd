package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// CreateTaskInput contains the parameters for creating a task.
type CreateTaskInput struct {
	ProjectID   string // Project board to create the task on (required)
	Title       string // Title (optional, derived from the description)
	Description string // Description (required)
	Priority    string // low / medium / high (optional, defaults to medium)
}

// CreateTaskOutput contains the result of creating a task.
type CreateTaskOutput struct {
	Task *domain.Task // The created task
}

// CreateTask is the use case for creating a task at the top of the todo
// column.
type CreateTask struct {
	boards domain.BoardStore
	clock  domain.Clock
	logger domain.Logger
}

// NewCreateTask creates a new CreateTask use case.
func NewCreateTask(boards domain.BoardStore, clock domain.Clock, logger domain.Logger) *CreateTask {
	return &CreateTask{
		boards: boards,
		clock:  clock,
		logger: logger,
	}
}

// Execute creates a new task with the given input.
func (uc *CreateTask) Execute(_ context.Context, in CreateTaskInput) (*CreateTaskOutput, error) {
	// Validate
	if in.Description == "" {
		return nil, domain.ErrEmptyDescription
	}
	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	// Build the task
	now := uc.clock.Now()
	task := &domain.Task{
		CreatedAt:   now,
		UpdatedAt:   now,
		ID:          uuid.NewString(),
		Title:       domain.DeriveTitle(in.Title, in.Description),
		Description: in.Description,
		Events:      []domain.TaskEvent{domain.NewCreatedEvent(now)},
		Priority:    priority,
		Dispatch:    domain.DispatchNone,
	}

	// Insert at the top of todo
	if _, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		b.Insert(task, domain.StatusTodo, 0)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	if uc.logger != nil {
		uc.logger.Info(task.ShortID(), "task", fmt.Sprintf("created: %q", task.Title))
	}

	return &CreateTaskOutput{Task: task}, nil
}
