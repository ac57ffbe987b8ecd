package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreycrellin/deckhand/internal/domain"
)

func TestShowTask_ReturnsTaskAndChat(t *testing.T) {
	// Setup
	task := newTask("aaaa1111-0000-4000-8000-000000000001", domain.StatusInProgress)
	boards := seedBoard("api", task)
	boards.Boards["api"].UpsertBlock(task.ID, domain.RenderBlock{
		Time: testTime, ID: "b1", Kind: domain.BlockText, Status: domain.BlockComplete, Text: "hello",
	})
	uc := NewShowTask(boards)

	// Execute: short id prefix resolves the task
	out, err := uc.Execute(context.Background(), ShowTaskInput{ProjectID: "api", Ref: "aaaa1111"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, task.ID, out.Task.ID)
	require.Len(t, out.Blocks, 1)
	assert.Equal(t, "hello", out.Blocks[0].Text)
}

func TestShowTask_NotFound(t *testing.T) {
	uc := NewShowTask(seedBoard("api"))

	_, err := uc.Execute(context.Background(), ShowTaskInput{ProjectID: "api", Ref: "deadbeef"})

	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestShowTask_AmbiguousRef(t *testing.T) {
	boards := seedBoard("api",
		newTask("aaaa1111-0000-4000-8000-000000000001", domain.StatusTodo),
		newTask("aaaa1111-9999-4000-8000-000000000002", domain.StatusTodo),
	)
	uc := NewShowTask(boards)

	_, err := uc.Execute(context.Background(), ShowTaskInput{ProjectID: "api", Ref: "aaaa1111"})

	assert.ErrorIs(t, err, domain.ErrAmbiguousTaskRef)
}
