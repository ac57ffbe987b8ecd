// Package cli provides the deckhand command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/coreycrellin/deckhand/internal/app"
)

// Command group IDs.
const (
	groupProject = "project"
	groupTask    = "task"
	groupSetup   = "setup"
)

// NewRootCommand builds the deckhand command tree on top of the container.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "deckhand",
		Short: "Kanban boards with dispatchable AI coding agents",
		Long: `deckhand keeps a four-column kanban board per project and dispatches
AI coding agents against its tasks. A dispatched task is claimed on the
board, optionally isolated in its own git worktree, and supervised until
the agent reports back. The conversation stream is persisted, so runs
can be watched live or reviewed later.

Task commands accept -p/--project; without it the project is resolved
from the current directory.

Typical flow:
  deckhand project add              # register the current repository
  deckhand task new --title "..."   # put work on the board
  deckhand task dispatch <id>       # hand it to an agent
  deckhand task watch <id>          # follow the run
  deckhand task move <id> done      # accept the result`,
		Version: version,
		// main prints errors; cobra should print neither them nor usage.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddGroup(
		&cobra.Group{ID: groupProject, Title: "Project Commands:"},
		&cobra.Group{ID: groupTask, Title: "Task Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
	)

	projectCmd := newProjectCommand(c)
	projectCmd.GroupID = groupProject

	taskCmd := newTaskCommand(c)
	taskCmd.GroupID = groupTask

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	pruneCmd := newPruneCommand(c)
	pruneCmd.GroupID = groupSetup

	// The supervisor entry point stays hidden and ungrouped.
	runAgentCmd := newRunAgentCommand(c)

	root.AddCommand(
		projectCmd,
		taskCmd,
		configCmd,
		pruneCmd,
		runAgentCmd,
	)

	return root
}
