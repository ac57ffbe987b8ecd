package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreycrellin/deckhand/internal/domain"
	"github.com/coreycrellin/deckhand/internal/testutil"
)

// startingTask builds a task in the state the dispatcher leaves it in just
// before the supervisor takes over.
func startingTask(id string) *domain.Task {
	task := newTask(id, domain.StatusInProgress)
	task.Dispatch = domain.DispatchStarting
	task.Locked = true
	return task
}

// streamLines joins protocol lines into one newline-terminated chunk.
func streamLines(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

// runAgentEnv bundles the collaborators of a RunAgent test. Completion runs
// through a real CompleteTask so the whole supervisor path is exercised.
type runAgentEnv struct {
	boards *testutil.MockBoardStore
	runner *testutil.MockRunner
	cfg    *testutil.MockConfigLoader
	wt     *testutil.MockWorktreeManager
	uc     *RunAgent
}

func newRunAgentEnv(task *domain.Task, proc *testutil.MockProcess) *runAgentEnv {
	boards := seedBoard("api", task)
	reg := seedProject(&domain.Project{ID: "api", Path: "/srv/api"})
	wt := testutil.NewMockWorktreeManager()
	clock := &testutil.MockClock{NowTime: testTime}
	complete := NewCompleteTask(boards, reg, wt, clock, domain.NopLogger{})
	runner := &testutil.MockRunner{Process: proc}
	cfg := testutil.NewMockConfigLoader()
	uc := NewRunAgent(boards, reg, runner, cfg, complete, clock, domain.NopLogger{})
	return &runAgentEnv{boards: boards, runner: runner, cfg: cfg, wt: wt, uc: uc}
}

func TestRunAgent_SupervisesRunToVerify(t *testing.T) {
	// Setup: a scripted agent that talks, runs one tool and reports a result
	task := startingTask("aaaa1111-0000-4000-8000-000000000001")
	proc := &testutil.MockProcess{
		Output: [][]byte{
			streamLines(`{"type":"assistant","message":{"content":[{"type":"text","text":"Patching the client."}]}}`),
			streamLines(
				`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"call-1","name":"bash","input":{"command":"go test ./..."}}]}}`,
				`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"call-1","content":"ok"}]}}`,
			),
			streamLines(`{"type":"result","result":"Retry logic added and covered by tests.","cost_usd":0.37,"duration_ms":42000,"num_turns":6}`),
		},
	}
	env := newRunAgentEnv(task, proc)

	// Execute
	out, err := env.uc.Execute(context.Background(), RunAgentInput{ProjectID: "api", TaskID: task.ID})

	// Assert: run finished cleanly
	require.NoError(t, err)
	assert.Zero(t, out.ExitCode)
	assert.False(t, out.Cancelled)
	assert.Nil(t, out.Conflict)

	// Assert: agent invocation
	spec := env.runner.Spec
	assert.Equal(t, "claude", spec.Command)
	assert.Equal(t, "/srv/api", spec.Dir)
	assert.Equal(t, domain.DefaultAgentStreamArgs(), spec.Args)
	assert.Contains(t, spec.Prompt, task.Title)
	assert.Contains(t, spec.Prompt, "deckhand task update aaaa1111")
	assert.Contains(t, spec.ExtraEnv, "DECKHAND_TASK=aaaa1111")
	assert.Contains(t, spec.ExtraEnv, "DECKHAND_PROJECT=api")

	// Assert: conversation persisted in arrival order
	board := env.boards.Boards["api"]
	blocks := board.ChatFor(task.ID)
	require.Len(t, blocks, 3)
	assert.Equal(t, domain.BlockText, blocks[0].Kind)
	assert.Equal(t, "Patching the client.", blocks[0].Text)
	assert.Equal(t, domain.BlockComplete, blocks[0].Status)
	assert.Equal(t, domain.BlockToolCall, blocks[1].Kind)
	assert.Equal(t, "bash", blocks[1].ToolName)
	assert.Equal(t, "ok", blocks[1].ToolResult)
	assert.Equal(t, domain.BlockResult, blocks[2].Kind)
	assert.InDelta(t, 0.37, blocks[2].CostUSD, 1e-9)

	// Assert: task settled in verify with the result as findings
	settled := board.Find(task.ID)
	assert.Equal(t, domain.StatusVerify, settled.Status)
	assert.False(t, settled.Locked)
	assert.False(t, settled.Dispatch.Active())
	assert.Equal(t, "Retry logic added and covered by tests.", settled.Findings)
}

func TestRunAgent_WorktreeDirAndConfiguredArgs(t *testing.T) {
	// Setup: isolated task, config with model and extra args
	task := startingTask("aaaa1111-0000-4000-8000-000000000001")
	task.WorktreePath = domain.WorktreePath("/srv/api", "aaaa1111")
	task.Branch = domain.BranchName("aaaa1111")
	proc := &testutil.MockProcess{
		Output: [][]byte{streamLines(`{"type":"result","result":"done"}`)},
	}
	env := newRunAgentEnv(task, proc)
	env.cfg.Config.Agent.Model = "sonnet"
	env.cfg.Config.Agent.Args = []string{"--permission-mode", "acceptEdits"}

	// Execute
	out, err := env.uc.Execute(context.Background(), RunAgentInput{ProjectID: "api", TaskID: task.ID})

	// Assert
	require.NoError(t, err)
	assert.Nil(t, out.Conflict)
	assert.Equal(t, task.WorktreePath, env.runner.Spec.Dir)
	want := append(domain.DefaultAgentStreamArgs(), "--model", "sonnet", "--permission-mode", "acceptEdits")
	assert.Equal(t, want, env.runner.Spec.Args)
	// Completion merged the branch back
	assert.Equal(t, []string{"aaaa1111"}, env.wt.Merged)
}

func TestRunAgent_MergeConflictSurfaces(t *testing.T) {
	task := startingTask("aaaa1111-0000-4000-8000-000000000001")
	task.WorktreePath = domain.WorktreePath("/srv/api", "aaaa1111")
	task.Branch = domain.BranchName("aaaa1111")
	proc := &testutil.MockProcess{
		Output: [][]byte{streamLines(`{"type":"result","result":"done"}`)},
	}
	env := newRunAgentEnv(task, proc)
	env.wt.Conflict = &domain.MergeConflict{DetectedAt: testTime, Summary: "conflict", Files: []string{"main.go"}}

	out, err := env.uc.Execute(context.Background(), RunAgentInput{ProjectID: "api", TaskID: task.ID})

	require.NoError(t, err)
	require.NotNil(t, out.Conflict)
	assert.Equal(t, []string{"main.go"}, out.Conflict.Files)
}

func TestRunAgent_SpawnFailureReleasesTask(t *testing.T) {
	// Setup
	task := startingTask("aaaa1111-0000-4000-8000-000000000001")
	env := newRunAgentEnv(task, nil)
	env.runner.StartErr = assert.AnError

	// Execute
	_, err := env.uc.Execute(context.Background(), RunAgentInput{ProjectID: "api", TaskID: task.ID})

	// Assert: error surfaced, dispatch released, failure visible in the chat
	require.ErrorContains(t, err, "start agent")
	board := env.boards.Boards["api"]
	released := board.Find(task.ID)
	assert.False(t, released.Locked)
	assert.False(t, released.Dispatch.Active())
	assert.Equal(t, domain.StatusInProgress, released.Status)

	blocks := board.ChatFor(task.ID)
	require.Len(t, blocks, 1)
	assert.Equal(t, domain.BlockResult, blocks[0].Kind)
	assert.True(t, blocks[0].IsError)
	assert.Contains(t, blocks[0].Text, "agent failed to start")
}

func TestRunAgent_CancelledRunLeavesStateToAbort(t *testing.T) {
	// The abort path owns the board when a run is terminated.
	task := startingTask("aaaa1111-0000-4000-8000-000000000001")
	proc := &testutil.MockProcess{Result: domain.AgentResult{ExitCode: -1, Cancelled: true}}
	env := newRunAgentEnv(task, proc)

	out, err := env.uc.Execute(context.Background(), RunAgentInput{ProjectID: "api", TaskID: task.ID})

	require.NoError(t, err)
	assert.True(t, out.Cancelled)
	interrupted := env.boards.Boards["api"].Find(task.ID)
	assert.Equal(t, domain.DispatchRunning, interrupted.Dispatch)
	assert.True(t, interrupted.Locked)
	assert.Equal(t, domain.StatusInProgress, interrupted.Status)
}

func TestRunAgent_NonZeroExitSynthesizesErrorResult(t *testing.T) {
	// Setup: the agent crashes before reporting a result
	task := startingTask("aaaa1111-0000-4000-8000-000000000001")
	proc := &testutil.MockProcess{
		Output: [][]byte{streamLines(`{"type":"assistant","message":{"content":[{"type":"text","text":"Starting."}]}}`)},
		Result: domain.AgentResult{ExitCode: 2, StderrTail: "panic: boom"},
	}
	env := newRunAgentEnv(task, proc)

	// Execute
	out, err := env.uc.Execute(context.Background(), RunAgentInput{ProjectID: "api", TaskID: task.ID})

	// Assert: a synthetic error result records the failure and the run settles
	require.NoError(t, err)
	assert.Equal(t, 2, out.ExitCode)

	board := env.boards.Boards["api"]
	blocks := board.ChatFor(task.ID)
	require.Len(t, blocks, 2)
	last := blocks[len(blocks)-1]
	assert.Equal(t, domain.BlockResult, last.Kind)
	assert.True(t, last.IsError)
	assert.Contains(t, last.Text, "agent exited with code 2")
	assert.Contains(t, last.Text, "panic: boom")

	settled := board.Find(task.ID)
	assert.Equal(t, domain.StatusVerify, settled.Status)
	assert.Contains(t, settled.Findings, "agent exited with code 2")
}

func TestRunAgent_ConsumesFollowUpWithoutDuplicatingIt(t *testing.T) {
	// Setup: a staged follow-up that the stream will replay
	task := startingTask("aaaa1111-0000-4000-8000-000000000001")
	task.PendingFollowUp = "Please also update the changelog."
	proc := &testutil.MockProcess{
		Output: [][]byte{streamLines(
			`{"type":"user-follow-up","message":"Please also update the changelog."}`,
			`{"type":"result","result":"Changelog updated."}`,
		)},
	}
	env := newRunAgentEnv(task, proc)
	env.boards.Boards["api"].UpsertBlock(task.ID, domain.RenderBlock{
		Time:   testTime,
		ID:     "seed-follow-up",
		Kind:   domain.BlockUserMessage,
		Status: domain.BlockComplete,
		Text:   "Please also update the changelog.",
	})

	// Execute
	_, err := env.uc.Execute(context.Background(), RunAgentInput{ProjectID: "api", TaskID: task.ID})

	// Assert: the prompt carried the message, the stage was cleared and the
	// replayed copy was not recorded twice
	require.NoError(t, err)
	assert.Contains(t, env.runner.Spec.Prompt, "Please also update the changelog.")

	board := env.boards.Boards["api"]
	settled := board.Find(task.ID)
	assert.Empty(t, settled.PendingFollowUp)

	userBlocks := 0
	for _, blk := range board.ChatFor(task.ID) {
		if blk.Kind == domain.BlockUserMessage {
			userBlocks++
		}
	}
	assert.Equal(t, 1, userBlocks)
}

func TestRunAgent_TaskNotFound(t *testing.T) {
	env := newRunAgentEnv(startingTask("aaaa1111-0000-4000-8000-000000000001"), nil)

	_, err := env.uc.Execute(context.Background(), RunAgentInput{ProjectID: "api", TaskID: "ffff0000-0000-4000-8000-000000000009"})

	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.False(t, env.runner.StartCalled)
}
