package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coreycrellin/deckhand/internal/domain"
	"github.com/coreycrellin/deckhand/internal/infra/stream"
	"github.com/coreycrellin/deckhand/internal/usecase/shared"
)

// RunAgentInput contains the parameters for supervising one agent run.
type RunAgentInput struct {
	ProjectID string // Project the task belongs to (required)
	TaskID    string // Full task id (required)
}

// RunAgentOutput contains the result of an agent run.
// Fields are ordered to minimize memory padding.
type RunAgentOutput struct {
	Conflict  *domain.MergeConflict // Set when completion hit a merge conflict
	ExitCode  int                   // Agent process exit code
	Cancelled bool                  // Run was terminated by an abort
}

// RunAgent is the use case executed by the detached supervisor process. It
// marks the task running, spawns the agent, persists parsed stream blocks as
// they arrive and completes the task when the agent exits. Cancelling ctx
// terminates the agent; the abort path owns the board state in that case.
type RunAgent struct {
	boards   domain.BoardStore
	registry domain.ProjectRegistry
	runner   domain.AgentRunner
	config   domain.ConfigLoader
	complete *CompleteTask
	clock    domain.Clock
	logger   domain.Logger
}

// NewRunAgent creates a new RunAgent use case.
func NewRunAgent(
	boards domain.BoardStore,
	registry domain.ProjectRegistry,
	runner domain.AgentRunner,
	config domain.ConfigLoader,
	complete *CompleteTask,
	clock domain.Clock,
	logger domain.Logger,
) *RunAgent {
	return &RunAgent{
		boards:   boards,
		registry: registry,
		runner:   runner,
		config:   config,
		complete: complete,
		clock:    clock,
		logger:   logger,
	}
}

// Execute supervises one agent run from start to completion.
func (uc *RunAgent) Execute(ctx context.Context, in RunAgentInput) (*RunAgentOutput, error) {
	project, err := uc.registry.Get(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrProjectNotFound, in.ProjectID)
	}
	cfg, err := uc.config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Mark the task running and snapshot everything the run needs. The
	// pending follow-up is consumed here; it reaches the agent through the
	// prompt and must not fire again on the next dispatch.
	var (
		prompt   string
		dir      string
		shortID  string
		followUp string
	)
	if _, err := uc.boards.Mutate(in.ProjectID, func(b *domain.Board) error {
		t := b.Find(in.TaskID)
		if t == nil {
			return domain.ErrTaskNotFound
		}
		if err := t.SetDispatch(domain.DispatchRunning, uc.clock.Now()); err != nil {
			return fmt.Errorf("mark running: %w", err)
		}
		followUp = t.PendingFollowUp
		prompt = shared.BuildPrompt(t, cfg.Agent.Prompt)
		t.PendingFollowUp = ""
		shortID = t.ShortID()
		dir = t.WorktreePath
		return nil
	}); err != nil {
		return nil, err
	}
	if dir == "" {
		dir = project.Path
	}

	args := domain.DefaultAgentStreamArgs()
	if cfg.Agent.Model != "" {
		args = append(args, "--model", cfg.Agent.Model)
	}
	args = append(args, cfg.Agent.Args...)

	proc, err := uc.runner.Start(ctx, domain.AgentSpec{
		Command: cfg.Agent.Command,
		Dir:     dir,
		Prompt:  prompt,
		Args:    args,
		ExtraEnv: []string{
			"DECKHAND_TASK=" + shortID,
			"DECKHAND_PROJECT=" + in.ProjectID,
		},
	})
	if err != nil {
		uc.failDispatch(in.ProjectID, in.TaskID, shortID, fmt.Sprintf("agent failed to start: %v", err))
		return nil, fmt.Errorf("start agent: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info(shortID, "supervisor", fmt.Sprintf("agent started: %s in %s", cfg.Agent.Command, dir))
	}

	// Pump the stream: each chunk may complete blocks, grow the active block
	// or both. Blocks are persisted by id, so re-emitting a growing block
	// just overwrites its previous snapshot.
	parser := stream.NewParser()
	if followUp != "" {
		parser.SeedFollowUp(followUp)
	}
	for chunk := range proc.Chunks() {
		uc.persistBlocks(in.ProjectID, in.TaskID, parser.Feed(chunk))
	}
	uc.persistBlocks(in.ProjectID, in.TaskID, parser.Flush())
	if n := parser.Skipped(); n > 0 && uc.logger != nil {
		uc.logger.Warn(shortID, "supervisor", fmt.Sprintf("skipped %d undecodable stream line(s)", n))
	}

	res := proc.Wait()
	if res.Cancelled {
		if uc.logger != nil {
			uc.logger.Info(shortID, "supervisor", "agent run cancelled")
		}
		return &RunAgentOutput{ExitCode: res.ExitCode, Cancelled: true}, nil
	}

	// A failed agent that never reported a result still leaves a visible
	// trace in the conversation.
	summary := ""
	if result, ok := parser.Result(); ok {
		summary = result.Text
	} else if res.ExitCode != 0 {
		text := fmt.Sprintf("agent exited with code %d", res.ExitCode)
		if res.StderrTail != "" {
			text += "\n\n" + res.StderrTail
		}
		uc.persistBlocks(in.ProjectID, in.TaskID, []domain.RenderBlock{{
			Time:    uc.clock.Now(),
			ID:      uuid.NewString(),
			Kind:    domain.BlockResult,
			Status:  domain.BlockComplete,
			Text:    text,
			IsError: true,
		}})
		summary = text
	}

	out, err := uc.complete.Execute(ctx, CompleteTaskInput{
		ProjectID: in.ProjectID,
		TaskID:    in.TaskID,
		Summary:   summary,
	})
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	if out.Ignored && uc.logger != nil {
		uc.logger.Info(shortID, "supervisor", "completion already handled out of band")
	}

	return &RunAgentOutput{Conflict: out.Conflict, ExitCode: res.ExitCode}, nil
}

// persistBlocks upserts a batch of parsed blocks into the task's chat.
func (uc *RunAgent) persistBlocks(projectID, taskID string, blocks []domain.RenderBlock) {
	if len(blocks) == 0 {
		return
	}
	if _, err := uc.boards.Mutate(projectID, func(b *domain.Board) error {
		for _, blk := range blocks {
			b.UpsertBlock(taskID, blk)
		}
		return nil
	}); err != nil && uc.logger != nil {
		uc.logger.Warn(domain.ShortID(taskID), "supervisor", "persist blocks: "+err.Error())
	}
}

// failDispatch records a spawn failure and releases the task.
func (uc *RunAgent) failDispatch(projectID, taskID, shortID, msg string) {
	if _, err := uc.boards.Mutate(projectID, func(b *domain.Board) error {
		t := b.Find(taskID)
		if t == nil {
			return nil
		}
		now := uc.clock.Now()
		b.UpsertBlock(taskID, domain.RenderBlock{
			Time:    now,
			ID:      uuid.NewString(),
			Kind:    domain.BlockResult,
			Status:  domain.BlockComplete,
			Text:    msg,
			IsError: true,
		})
		if err := t.SetDispatch(domain.DispatchNone, now); err != nil {
			return err
		}
		t.Locked = false
		return nil
	}); err != nil && uc.logger != nil {
		uc.logger.Error(shortID, "supervisor", "record spawn failure: "+err.Error())
	}
}
