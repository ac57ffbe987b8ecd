package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/coreycrellin/deckhand/internal/app"
	"github.com/coreycrellin/deckhand/internal/domain"
	"github.com/coreycrellin/deckhand/internal/usecase"
)

// newProjectCommand groups the project subcommands.
func newProjectCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage registered projects",
		Long:    `Register repositories as projects and control their boards.`,
		// Parent only; cobra lists the subcommands.
	}

	cmd.AddCommand(
		newProjectAddCommand(c),
		newProjectListCommand(c),
		newProjectRemoveCommand(c),
		newProjectSetModeCommand(c),
	)

	return cmd
}

// newProjectAddCommand creates the project add subcommand.
func newProjectAddCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Name string
	}

	cmd := &cobra.Command{
		Use:   "add [path]",
		Short: "Register a repository as a project",
		Long: `Register a git repository so deckhand keeps a board for it.

The path defaults to the current directory and must be a git repository.
New boards start in sequential mode; switch with 'project set-mode'.

Examples:
  # Register the current repository
  deckhand project add

  # Register another repository under a display name
  deckhand project add ~/src/api --name "Payments API"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			uc := c.AddProjectUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.AddProjectInput{
				Path: path,
				Name: opts.Name,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered project %s (%s)\n", out.Project.ID, out.Project.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Display name (defaults to the directory name)")

	return cmd
}

// newProjectListCommand creates the project list subcommand.
func newProjectListCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered projects",
		Long: `List registered projects with their board statistics.

The WORKING column counts tasks in progress; the number before the
slash is how many of them have an agent dispatched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.ListProjectsUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ListProjectsInput{})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(out.Projects) == 0 {
				_, _ = fmt.Fprintln(w, "No projects registered. Run 'deckhand project add' inside a repository.")
				return nil
			}

			tw := newTable(w)
			tw.AppendHeader(table.Row{"ID", "NAME", "MODE", "TODO", "WORKING", "VERIFY", "DONE", "PATH"})
			for _, p := range out.Projects {
				tw.AppendRow(table.Row{
					p.Project.ID,
					p.Project.Name,
					p.Mode,
					p.Counts[domain.StatusTodo],
					fmt.Sprintf("%d/%d", p.Dispatched, p.Counts[domain.StatusInProgress]),
					p.Counts[domain.StatusVerify],
					p.Counts[domain.StatusDone],
					p.Project.Path,
				})
			}
			tw.Render()
			return nil
		},
	}

	return cmd
}

// newProjectRemoveCommand creates the project remove subcommand.
func newProjectRemoveCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <project>",
		Aliases: []string{"rm"},
		Short:   "Remove a project from the registry",
		Long: `Remove a project from the registry.

The board file and any worktrees stay on disk. Run 'deckhand prune -p <project>'
first if the worktrees should go too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.RemoveProjectUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.RemoveProjectInput{ProjectID: args[0]})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed project %s. Its board file is kept in the data directory.\n", out.Project.ID)
			return nil
		},
	}

	return cmd
}

// newProjectSetModeCommand creates the project set-mode subcommand.
func newProjectSetModeCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-mode <project> <mode>",
		Short: "Set the board execution mode",
		Long: `Set how dispatched agents run against the project.

sequential runs the agent directly in the repository, one task at a
time. parallel gives every dispatched task its own git worktree so
concurrent runs cannot trample each other.

Individual tasks can override the board mode via 'task update --mode'.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.SetModeUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.SetModeInput{
				ProjectID: args[0],
				Mode:      args[1],
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Project %s now dispatches in %s mode\n", args[0], out.Mode)
			return nil
		},
	}

	return cmd
}
