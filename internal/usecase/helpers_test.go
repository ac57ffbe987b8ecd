package usecase

import (
	"time"

	"github.com/coreycrellin/deckhand/internal/domain"
	"github.com/coreycrellin/deckhand/internal/testutil"
)

// testTime is a fixed reference time for deterministic tests.
var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTask builds a minimal valid task for board seeding.
func newTask(id string, status domain.Status) *domain.Task {
	return &domain.Task{
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
		ID:          id,
		Title:       "task " + domain.ShortID(id),
		Description: "description for " + domain.ShortID(id),
		Events:      []domain.TaskEvent{domain.NewCreatedEvent(testTime)},
		Status:      status,
		Priority:    domain.PriorityMedium,
		Dispatch:    domain.DispatchNone,
	}
}

// seedBoard creates a board store holding one project board with the given
// tasks appended to their columns.
func seedBoard(projectID string, tasks ...*domain.Task) *testutil.MockBoardStore {
	boards := testutil.NewMockBoardStore()
	b := domain.NewBoard()
	for _, t := range tasks {
		b.Insert(t, t.Status, len(b.Column(t.Status)))
	}
	boards.Seed(projectID, b)
	return boards
}

// seedProject returns a registry with one registered project.
func seedProject(p *domain.Project) *testutil.MockRegistry {
	reg := testutil.NewMockRegistry()
	_ = reg.Add(p)
	return reg
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
