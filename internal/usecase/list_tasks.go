package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// ListTasksInput contains the parameters for listing tasks.
// Fields are ordered to minimize memory padding.
type ListTasksInput struct {
	Status      *domain.Status // Restrict to one column (nil = all)
	ProjectID   string         // Project board to list (required)
	IncludeDone bool           // Include the done column when no filter is set
}

// ListTasksOutput contains the result of listing tasks.
type ListTasksOutput struct {
	Board *domain.Board  // The full board, for mode and column display
	Tasks []*domain.Task // Tasks matching the filter, in board order
}

// ListTasks is the use case for listing a project's tasks.
type ListTasks struct {
	boards domain.BoardStore
}

// NewListTasks creates a new ListTasks use case.
func NewListTasks(boards domain.BoardStore) *ListTasks {
	return &ListTasks{
		boards: boards,
	}
}

// Execute lists tasks matching the given input criteria.
func (uc *ListTasks) Execute(_ context.Context, in ListTasksInput) (*ListTasksOutput, error) {
	board, err := uc.boards.Load(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}

	var tasks []*domain.Task
	switch {
	case in.Status != nil:
		tasks = board.Column(*in.Status)
	case in.IncludeDone:
		tasks = board.Tasks()
	default:
		for _, s := range domain.AllStatuses() {
			if s == domain.StatusDone {
				continue
			}
			tasks = append(tasks, board.Column(s)...)
		}
	}

	return &ListTasksOutput{Board: board, Tasks: tasks}, nil
}
