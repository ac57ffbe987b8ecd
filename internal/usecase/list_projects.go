package usecase

import (
	"context"
	"fmt"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// ListProjectsInput contains the parameters for listing projects.
type ListProjectsInput struct{}

// ProjectSummary pairs a registered project with its board statistics.
// Fields are ordered to minimize memory padding.
type ProjectSummary struct {
	Counts     map[domain.Status]int // Tasks per column
	Project    *domain.Project       // The registered project
	Mode       domain.ExecutionMode  // Board execution mode
	Dispatched int                   // Tasks with an active dispatch
}

// ListProjectsOutput contains the result of listing projects.
type ListProjectsOutput struct {
	Projects []ProjectSummary // Registered projects in display order
}

// ListProjects is the use case for listing registered projects with their
// board statistics.
type ListProjects struct {
	registry domain.ProjectRegistry
	boards   domain.BoardStore
}

// NewListProjects creates a new ListProjects use case.
func NewListProjects(registry domain.ProjectRegistry, boards domain.BoardStore) *ListProjects {
	return &ListProjects{
		registry: registry,
		boards:   boards,
	}
}

// Execute lists all registered projects.
func (uc *ListProjects) Execute(_ context.Context, _ ListProjectsInput) (*ListProjectsOutput, error) {
	projects, err := uc.registry.List()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		board, err := uc.boards.Load(p.ID)
		if err != nil {
			return nil, fmt.Errorf("load board for %s: %w", p.ID, err)
		}

		counts := make(map[domain.Status]int, 4)
		dispatched := 0
		for _, s := range domain.AllStatuses() {
			counts[s] = len(board.Column(s))
		}
		for _, t := range board.Tasks() {
			if t.Dispatch.Active() {
				dispatched++
			}
		}

		summaries = append(summaries, ProjectSummary{
			Counts:     counts,
			Project:    p,
			Mode:       board.ExecutionMode,
			Dispatched: dispatched,
		})
	}

	return &ListProjectsOutput{Projects: summaries}, nil
}
