package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreycrellin/deckhand/internal/domain"
	"github.com/coreycrellin/deckhand/internal/testutil"
)

func TestWatchTask_ReplaysBlocksThroughEmit(t *testing.T) {
	// Setup
	task := newTask("aaaa1111-0000-4000-8000-000000000001", domain.StatusInProgress)
	follower := &testutil.MockFollower{
		Blocks: []domain.RenderBlock{
			{ID: "b1", Kind: domain.BlockText, Status: domain.BlockComplete, Text: "first"},
			{ID: "b2", Kind: domain.BlockResult, Status: domain.BlockComplete, Text: "second"},
		},
	}
	uc := NewWatchTask(seedBoard("api", task), follower)

	// Execute
	var seen []string
	out, err := uc.Execute(context.Background(), WatchTaskInput{
		ProjectID: "api",
		Ref:       "aaaa1111",
		Emit:      func(b domain.RenderBlock) { seen = append(seen, b.ID) },
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, seen)
	assert.Equal(t, "api", follower.ProjectID)
	assert.Equal(t, task.ID, follower.TaskID)
	assert.Equal(t, task.ID, out.Task.ID)
}

func TestWatchTask_RequiresEmitCallback(t *testing.T) {
	task := newTask("aaaa1111-0000-4000-8000-000000000001", domain.StatusInProgress)
	uc := NewWatchTask(seedBoard("api", task), &testutil.MockFollower{})

	_, err := uc.Execute(context.Background(), WatchTaskInput{ProjectID: "api", Ref: "aaaa1111"})

	assert.ErrorContains(t, err, "emit callback")
}

func TestWatchTask_FollowerErrorPropagates(t *testing.T) {
	task := newTask("aaaa1111-0000-4000-8000-000000000001", domain.StatusInProgress)
	follower := &testutil.MockFollower{Err: assert.AnError}
	uc := NewWatchTask(seedBoard("api", task), follower)

	_, err := uc.Execute(context.Background(), WatchTaskInput{
		ProjectID: "api",
		Ref:       "aaaa1111",
		Emit:      func(domain.RenderBlock) {},
	})

	assert.ErrorIs(t, err, assert.AnError)
}

func TestWatchTask_TaskNotFound(t *testing.T) {
	follower := &testutil.MockFollower{}
	uc := NewWatchTask(seedBoard("api"), follower)

	_, err := uc.Execute(context.Background(), WatchTaskInput{
		ProjectID: "api",
		Ref:       "ffff0000",
		Emit:      func(domain.RenderBlock) {},
	})

	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Empty(t, follower.TaskID)
}
