package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/coreycrellin/deckhand/internal/app"
	"github.com/coreycrellin/deckhand/internal/domain"
	"github.com/coreycrellin/deckhand/internal/usecase"
)

// newTaskCommand groups the task subcommands and carries the shared
// --project flag they all honor.
func newTaskCommand(c *app.Container) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Create, inspect and dispatch board tasks",
		Long: `Create, inspect and dispatch tasks on a project board.

Task references accept the full id or any unique prefix; the 8-char
short id printed by 'task list' is always enough.`,
	}

	cmd.PersistentFlags().StringVarP(&projectID, "project", "p", "", "Project id (default: resolved from the current directory)")

	cmd.AddCommand(
		newTaskNewCommand(c, &projectID),
		newTaskListCommand(c, &projectID),
		newTaskShowCommand(c, &projectID),
		newTaskMoveCommand(c, &projectID),
		newTaskUpdateCommand(c, &projectID),
		newTaskDeleteCommand(c, &projectID),
		newTaskRestoreCommand(c, &projectID),
		newTaskImportCommand(c, &projectID),
		newTaskDispatchCommand(c, &projectID),
		newTaskAbortCommand(c, &projectID),
		newTaskFollowUpCommand(c, &projectID),
		newTaskWatchCommand(c, &projectID),
	)

	return cmd
}

// newTaskNewCommand creates the task new subcommand.
func newTaskNewCommand(c *app.Container, projectID *string) *cobra.Command {
	var opts struct {
		Title       string
		Description string
		Priority    string
	}

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a task in the todo column",
		Long: `Create a task in the todo column.

At least one of --title and --body is required; a missing title is
derived from the first line of the body.

Examples:
  # Quick task
  deckhand task new --title "Fix login redirect"

  # Full description via HEREDOC (recommended for multi-line bodies)
  deckhand task new --title "Retry layer" --body "$(cat <<'EOF'
Add exponential backoff to the fetcher.
Cover the 429 path with a test.
EOF
)"

  # High priority
  deckhand task new --title "Hotfix prod crash" --priority high`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			uc := c.CreateTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.CreateTaskInput{
				ProjectID:   project.ID,
				Title:       opts.Title,
				Description: opts.Description,
				Priority:    opts.Priority,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", domain.ShortID(out.Task.ID), out.Task.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "Task title")
	cmd.Flags().StringVar(&opts.Description, "body", "", "Task description")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "Priority: low, medium or high (default medium)")

	return cmd
}

// newTaskListCommand creates the task list subcommand.
func newTaskListCommand(c *app.Container, projectID *string) *cobra.Command {
	var opts struct {
		Status string
		All    bool
	}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks in board order",
		Long: `List tasks in board order.

The done column is hidden by default; use --all to include it or
--status to show a single column.

The AGENT column shows the dispatch state, the supervisor pid while an
agent is attached, and 'conflict' when a merge-back needs a human.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			input := usecase.ListTasksInput{
				ProjectID:   project.ID,
				IncludeDone: opts.All,
			}
			if opts.Status != "" {
				st, err := domain.ParseStatus(opts.Status)
				if err != nil {
					return err
				}
				input.Status = &st
			}

			uc := c.ListTasksUseCase()
			out, err := uc.Execute(cmd.Context(), input)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(out.Tasks) == 0 {
				_, _ = fmt.Fprintln(w, "No tasks.")
				return nil
			}

			tw := newTable(w)
			tw.AppendHeader(table.Row{"ID", "STATUS", "PRI", "AGENT", "TITLE"})
			for _, t := range out.Tasks {
				tw.AppendRow(table.Row{
					domain.ShortID(t.ID),
					t.Status,
					t.Priority,
					dispatchCell(t),
					truncateLine(t.Title, 60),
				})
			}
			tw.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Only one column: todo, in-progress, verify or done")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Include the done column")

	return cmd
}

// newTaskShowCommand creates the task show subcommand.
func newTaskShowCommand(c *app.Container, projectID *string) *cobra.Command {
	var opts struct {
		JSON bool
	}

	cmd := &cobra.Command{
		Use:   "show <task>",
		Short: "Display task details and its conversation",
		Long: `Display task details, including findings, the per-run agent log and
the recorded agent conversation.

Examples:
  deckhand task show 3f2a91bc
  deckhand task show 3f2a91bc --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			uc := c.ShowTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowTaskInput{
				ProjectID: project.ID,
				Ref:       args[0],
			})
			if err != nil {
				return err
			}

			if opts.JSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out.Task)
			}

			printTaskDetails(cmd.OutOrStdout(), out.Task, out.Blocks)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output the task as JSON")

	return cmd
}

// newTaskMoveCommand creates the task move subcommand.
func newTaskMoveCommand(c *app.Container, projectID *string) *cobra.Command {
	var opts struct {
		Index int
	}

	cmd := &cobra.Command{
		Use:   "move <task> <column>",
		Short: "Move a task to another column",
		Long: `Move a task to another column: todo, in-progress, verify or done.

Accepting an isolated task into done merges its branch back first. A
conflicting merge blocks the move, keeps the branch in place and
reports the files so a human can resolve them.

Examples:
  # Accept reviewed work
  deckhand task move 3f2a91bc done

  # Put a task at the top of todo
  deckhand task move 3f2a91bc todo --index 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			uc := c.MoveTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.MoveTaskInput{
				ProjectID: project.ID,
				Ref:       args[0],
				To:        args[1],
				Index:     opts.Index,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.Conflict != nil {
				_, _ = fmt.Fprintf(w, "Merge conflict: %s\n", out.Conflict.Summary)
				for _, f := range out.Conflict.Files {
					_, _ = fmt.Fprintf(w, "  %s\n", f)
				}
				_, _ = fmt.Fprintf(w, "Branch %s kept. Resolve by hand, then move again.\n", out.Task.Branch)
				return nil
			}
			if !out.Moved {
				_, _ = fmt.Fprintf(w, "Task %s is already in %s\n", domain.ShortID(out.Task.ID), out.Task.Status)
				return nil
			}
			_, _ = fmt.Fprintf(w, "Moved task %s: %s -> %s\n", domain.ShortID(out.Task.ID), out.From, out.Task.Status)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Index, "index", -1, "Position within the target column (default: append)")

	return cmd
}

// newTaskUpdateCommand creates the task update subcommand. Dispatched
// agents report back through it, so every flag must stay scriptable.
func newTaskUpdateCommand(c *app.Container, projectID *string) *cobra.Command {
	var opts struct {
		Title       string
		Description string
		Priority    string
		Status      string
		Mode        string
		Findings    string
		HumanSteps  string
		Locked      bool
	}

	cmd := &cobra.Command{
		Use:     "update <task>",
		Aliases: []string{"edit"},
		Short:   "Update task fields",
		Long: `Update one or more task fields. Only flags that are explicitly set
change anything.

Agents report completion through this command:

  deckhand task update <id> --status verify --locked=false --findings "..."

Examples:
  # Reword a title
  deckhand task update 3f2a91bc --title "Retry layer with backoff"

  # Record manual verification steps for the reviewer
  deckhand task update 3f2a91bc --human-steps "Run make e2e against staging"

  # Isolate this task on its next dispatch regardless of the board mode
  deckhand task update 3f2a91bc --mode parallel`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			input := usecase.UpdateTaskInput{
				ProjectID: project.ID,
				Ref:       args[0],
			}

			flags := cmd.Flags()
			if flags.Changed("title") {
				input.Title = &opts.Title
			}
			if flags.Changed("body") {
				input.Description = &opts.Description
			}
			if flags.Changed("priority") {
				input.Priority = &opts.Priority
			}
			if flags.Changed("status") {
				input.Status = &opts.Status
			}
			if flags.Changed("mode") {
				input.Mode = &opts.Mode
			}
			if flags.Changed("findings") {
				input.Findings = &opts.Findings
			}
			if flags.Changed("human-steps") {
				input.HumanSteps = &opts.HumanSteps
			}
			if flags.Changed("locked") {
				input.Locked = &opts.Locked
			}

			uc := c.UpdateTaskUseCase()
			out, err := uc.Execute(cmd.Context(), input)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s (%s)\n", domain.ShortID(out.Task.ID), out.Task.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "New title")
	cmd.Flags().StringVar(&opts.Description, "body", "", "New description")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "New priority: low, medium or high")
	cmd.Flags().StringVar(&opts.Status, "status", "", "New column; behaves like a move")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "Per-task execution mode: sequential, parallel or empty to clear")
	cmd.Flags().StringVar(&opts.Findings, "findings", "", "Agent findings for the reviewer")
	cmd.Flags().StringVar(&opts.HumanSteps, "human-steps", "", "Manual verification steps")
	cmd.Flags().BoolVar(&opts.Locked, "locked", false, "Lock flag; agents clear it when done")

	return cmd
}

// newTaskDeleteCommand creates the task delete subcommand.
func newTaskDeleteCommand(c *app.Container, projectID *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <task>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Long: `Delete a task from the board.

The task is held in an undo buffer; 'task restore' brings back the
most recent deletion within two minutes. Locked tasks cannot be
deleted while an agent is working on them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			uc := c.DeleteTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.DeleteTaskInput{
				ProjectID: project.ID,
				Ref:       args[0],
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s: %s\nUndo within two minutes with 'deckhand task restore'.\n",
				domain.ShortID(out.Task.ID), out.Task.Title)
			return nil
		},
	}

	return cmd
}

// newTaskRestoreCommand creates the task restore subcommand.
func newTaskRestoreCommand(c *app.Container, projectID *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore the most recently deleted task",
		Long: `Restore the most recently deleted task to its original column and
position. Only deletions from the last two minutes qualify.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			uc := c.RestoreTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.RestoreTaskInput{ProjectID: project.ID})
			if err != nil {
				return err
			}

			if !out.Restored {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to restore.")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Restored task %s to %s\n", domain.ShortID(out.Task.ID), out.Task.Status)
			return nil
		},
	}

	return cmd
}

// newTaskImportCommand creates the task import subcommand.
func newTaskImportCommand(c *app.Container, projectID *string) *cobra.Command {
	var opts struct {
		DryRun bool
	}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create tasks from a YAML file",
		Long: `Create tasks from a YAML file. Each entry needs a description;
titles are derived from the first description line when omitted and
priorities default to medium.

File format:
  tasks:
    - title: Add retry layer
      priority: high
      description: |
        Add exponential backoff to the fetcher.
    - description: Update the README quickstart.

Examples:
  # Preview without creating anything
  deckhand task import tasks.yaml --dry-run

  deckhand task import tasks.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			uc := c.ImportTasksUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ImportTasksInput{
				ProjectID: project.ID,
				Content:   content,
				DryRun:    opts.DryRun,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.DryRun {
				_, _ = fmt.Fprintf(w, "Dry run: %d task(s) would be created\n", len(out.Drafts))
				for _, d := range out.Drafts {
					priority, _ := domain.ParsePriority(d.Priority)
					_, _ = fmt.Fprintf(w, "  [%s] %s\n", priority, domain.DeriveTitle(d.Title, d.Description))
				}
				return nil
			}

			for _, t := range out.Tasks {
				_, _ = fmt.Fprintf(w, "Created task %s: %s\n", domain.ShortID(t.ID), t.Title)
			}
			_, _ = fmt.Fprintf(w, "Created %d task(s)\n", len(out.Tasks))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Parse and preview without creating")

	return cmd
}

// newTaskDispatchCommand creates the task dispatch subcommand.
func newTaskDispatchCommand(c *app.Container, projectID *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch <task>",
		Short: "Dispatch an agent onto a task",
		Long: `Dispatch an agent onto a task.

The task is claimed at the head of in-progress and locked, then a
detached supervisor launches the agent and follows it to completion.
In parallel mode the agent works in a dedicated git worktree; in
sequential mode it works directly in the repository.

The command returns as soon as the supervisor is up. Use 'task watch'
to follow the run and 'task abort' to stop it.

Examples:
  deckhand task dispatch 3f2a91bc
  deckhand task watch 3f2a91bc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			uc := c.DispatchTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.DispatchTaskInput{
				ProjectID: project.ID,
				Ref:       args[0],
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Dispatched task %s (%s mode, supervisor pid %d)\n", out.ShortID, out.Mode, out.PID)
			if out.WorktreePath != "" {
				_, _ = fmt.Fprintf(w, "Worktree: %s\n", out.WorktreePath)
			}
			_, _ = fmt.Fprintf(w, "Follow the run with 'deckhand task watch %s'\n", out.ShortID)
			return nil
		},
	}

	return cmd
}

// newTaskAbortCommand creates the task abort subcommand.
func newTaskAbortCommand(c *app.Container, projectID *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abort <task>",
		Short: "Stop a dispatched agent run",
		Long: `Stop a dispatched agent run by signalling its supervisor, then
release the task.

The task stays in its current column and keeps its worktree, so the
run can be resumed with another dispatch or cleaned up with a move.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			uc := c.AbortTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.AbortTaskInput{
				ProjectID: project.ID,
				Ref:       args[0],
			})
			if err != nil {
				return err
			}

			if out.Ignored {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %s is not dispatched; nothing to abort.\n", domain.ShortID(out.Task.ID))
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Aborted task %s\n", domain.ShortID(out.Task.ID))
			return nil
		},
	}

	return cmd
}

// newTaskFollowUpCommand creates the task follow-up subcommand.
func newTaskFollowUpCommand(c *app.Container, projectID *string) *cobra.Command {
	var opts struct {
		Message string
	}

	cmd := &cobra.Command{
		Use:   "follow-up <task>",
		Short: "Send a reviewer message and redispatch",
		Long: `Record a reviewer message on the task and dispatch a fresh agent run
that starts from it. The earlier conversation is kept, so the new run
reads as one continuous thread.

Examples:
  deckhand task follow-up 3f2a91bc -m "Also cover the 429 path in the test"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			uc := c.FollowUpTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.FollowUpTaskInput{
				ProjectID: project.ID,
				Ref:       args[0],
				Message:   opts.Message,
			})
			if err != nil {
				return err
			}

			d := out.Dispatched
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Recorded follow-up and dispatched task %s (supervisor pid %d)\n", d.ShortID, d.PID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "Follow-up message (required)")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

// newTaskWatchCommand creates the task watch subcommand.
func newTaskWatchCommand(c *app.Container, projectID *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <task>",
		Short: "Stream the agent conversation",
		Long: `Stream the task's conversation. Existing blocks are replayed first,
then new blocks appear as the live run produces them, until the run
finishes. Interrupting the watch does not touch the agent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := resolveProject(c, *projectID)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			uc := c.WatchTaskUseCase()
			_, err = uc.Execute(cmd.Context(), usecase.WatchTaskInput{
				ProjectID: project.ID,
				Ref:       args[0],
				Emit: func(b domain.RenderBlock) {
					// Blocks are reprinted once finalized; skipping the
					// active form keeps each one on screen exactly once.
					if b.Status != domain.BlockComplete {
						return
					}
					renderBlock(w, b)
				},
			})
			return err
		},
	}

	return cmd
}
