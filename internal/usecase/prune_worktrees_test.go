package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreycrellin/deckhand/internal/domain"
	"github.com/coreycrellin/deckhand/internal/testutil"
)

func TestPruneWorktrees_RemovesOnlyOrphans(t *testing.T) {
	// Setup: one live isolated task, one task in the undo buffer, one orphan,
	// one branch that is not ours
	live := newTask("aaaa1111-0000-4000-8000-000000000001", domain.StatusInProgress)
	live.Branch = domain.BranchName("aaaa1111")
	live.WorktreePath = domain.WorktreePath("/srv/api", "aaaa1111")
	boards := seedBoard("api", live)
	boards.Boards["api"].Deleted = append(boards.Boards["api"].Deleted, domain.DeletedTaskEntry{
		DeletedAt: testTime,
		Task:      newTask("bbbb2222-0000-4000-8000-000000000002", domain.StatusTodo),
		Column:    domain.StatusTodo,
	})

	wt := testutil.NewMockWorktreeManager()
	wt.Worktrees = []domain.WorktreeInfo{
		{Path: domain.WorktreePath("/srv/api", "aaaa1111"), Branch: "deckhand/aaaa1111"},
		{Path: domain.WorktreePath("/srv/api", "bbbb2222"), Branch: "deckhand/bbbb2222"},
		{Path: domain.WorktreePath("/srv/api", "cccc3333"), Branch: "deckhand/cccc3333"},
		{Path: "/srv/api", Branch: "feature/unrelated"},
	}
	reg := seedProject(&domain.Project{ID: "api", Path: "/srv/api"})
	uc := NewPruneWorktrees(reg, boards, wt, domain.NopLogger{})

	// Execute
	out, err := uc.Execute(context.Background(), PruneWorktreesInput{})

	// Assert: only the worktree without a live or undoable task went away
	require.NoError(t, err)
	require.Len(t, out.Removed, 1)
	assert.Equal(t, "api", out.Removed[0].ProjectID)
	assert.Equal(t, "cccc3333", out.Removed[0].ShortID)
	assert.Equal(t, "deckhand/cccc3333", out.Removed[0].Branch)
	assert.Equal(t, []string{"cccc3333"}, wt.Removed)
}

func TestPruneWorktrees_ScopedToRequestedProject(t *testing.T) {
	boards := testutil.NewMockBoardStore()
	wt := testutil.NewMockWorktreeManager()
	wt.Worktrees = []domain.WorktreeInfo{
		{Path: domain.WorktreePath("/srv/api", "cccc3333"), Branch: "deckhand/cccc3333"},
	}
	reg := testutil.NewMockRegistry()
	require.NoError(t, reg.Add(&domain.Project{ID: "api", Path: "/srv/api"}))
	require.NoError(t, reg.Add(&domain.Project{ID: "web", Path: "/srv/web", Order: 1}))
	uc := NewPruneWorktrees(reg, boards, wt, domain.NopLogger{})

	out, err := uc.Execute(context.Background(), PruneWorktreesInput{ProjectID: "api"})

	require.NoError(t, err)
	require.Len(t, out.Removed, 1)
	assert.Equal(t, []string{"cccc3333"}, wt.Removed)
}

func TestPruneWorktrees_NothingToPrune(t *testing.T) {
	boards := testutil.NewMockBoardStore()
	wt := testutil.NewMockWorktreeManager()
	reg := seedProject(&domain.Project{ID: "api", Path: "/srv/api"})
	uc := NewPruneWorktrees(reg, boards, wt, domain.NopLogger{})

	out, err := uc.Execute(context.Background(), PruneWorktreesInput{})

	require.NoError(t, err)
	assert.Empty(t, out.Removed)
	assert.Empty(t, wt.Removed)
}

func TestPruneWorktrees_RemoveFailurePropagates(t *testing.T) {
	boards := testutil.NewMockBoardStore()
	wt := testutil.NewMockWorktreeManager()
	wt.Worktrees = []domain.WorktreeInfo{
		{Path: domain.WorktreePath("/srv/api", "cccc3333"), Branch: "deckhand/cccc3333"},
	}
	wt.RemoveErr = assert.AnError
	reg := seedProject(&domain.Project{ID: "api", Path: "/srv/api"})
	uc := NewPruneWorktrees(reg, boards, wt, domain.NopLogger{})

	_, err := uc.Execute(context.Background(), PruneWorktreesInput{})

	assert.ErrorContains(t, err, "remove worktree cccc3333")
}

func TestPruneWorktrees_UnknownProject(t *testing.T) {
	uc := NewPruneWorktrees(testutil.NewMockRegistry(), testutil.NewMockBoardStore(), testutil.NewMockWorktreeManager(), domain.NopLogger{})

	_, err := uc.Execute(context.Background(), PruneWorktreesInput{ProjectID: "ghost"})

	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}
