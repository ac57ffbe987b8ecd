package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// ImportTasksInput contains the parameters for importing tasks from a YAML
// document.
// Fields are ordered to minimize memory padding.
type ImportTasksInput struct {
	ProjectID string // Project board to mutate (required)
	Content   []byte // YAML document content (required)
	DryRun    bool   // Parse and report without creating anything
}

// ImportTasksOutput contains the result of importing tasks.
type ImportTasksOutput struct {
	Drafts []domain.TaskDraft // Parsed drafts, in file order
	Tasks  []*domain.Task     // Created tasks, empty on dry runs
}

// ImportTasks is the use case for bulk task creation from a file. The whole
// file is validated before anything is created; imported tasks land at the
// bottom of todo in file order.
type ImportTasks struct {
	boards domain.BoardStore
	clock  domain.Clock
	logger domain.Logger
}

// NewImportTasks creates a new ImportTasks use case.
func NewImportTasks(boards domain.BoardStore, clock domain.Clock, logger domain.Logger) *ImportTasks {
	return &ImportTasks{
		boards: boards,
		clock:  clock,
		logger: logger,
	}
}

// Execute parses the document and creates the tasks it describes.
func (uc *ImportTasks) Execute(_ context.Context, in ImportTasksInput) (*ImportTasksOutput, error) {
	drafts, err := domain.ParseTaskDrafts(in.Content)
	if err != nil {
		return nil, err
	}

	if in.DryRun {
		return &ImportTasksOutput{Drafts: drafts}, nil
	}

	now := uc.clock.Now()
	tasks := make([]*domain.Task, 0, len(drafts))
	for _, draft := range drafts {
		priority, err := domain.ParsePriority(draft.Priority)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, &domain.Task{
			CreatedAt:   now,
			UpdatedAt:   now,
			ID:          uuid.NewString(),
			Title:       domain.DeriveTitle(draft.Title, draft.Description),
			Description: draft.Description,
			Events:      []domain.TaskEvent{domain.NewCreatedEvent(now)},
			Priority:    priority,
			Dispatch:    domain.DispatchNone,
		})
	}

	if _, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		for _, t := range tasks {
			b.Insert(t, domain.StatusTodo, len(b.Columns.Todo))
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("save tasks: %w", err)
	}

	if uc.logger != nil {
		uc.logger.Info("", "task", fmt.Sprintf("imported %d task(s)", len(tasks)))
	}

	return &ImportTasksOutput{Drafts: drafts, Tasks: tasks}, nil
}
