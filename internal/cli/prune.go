package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreycrellin/deckhand/internal/app"
	"github.com/coreycrellin/deckhand/internal/usecase"
)

// newPruneCommand creates the prune command.
func newPruneCommand(c *app.Container) *cobra.Command {
	var opts struct {
		ProjectID string
	}

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove orphaned task worktrees",
		Long: `Remove worktrees and branches left behind by deleted or long-gone
tasks. Worktrees still owned by a live isolated task are kept.

Note: tasks themselves are never touched, only worktrees and their
branches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.PruneWorktreesUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.PruneWorktreesInput{
				ProjectID: opts.ProjectID,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(out.Removed) == 0 {
				_, _ = fmt.Fprintln(w, "Nothing to prune.")
				return nil
			}
			for _, p := range out.Removed {
				_, _ = fmt.Fprintf(w, "Removed %s (branch %s)\n", p.Path, p.Branch)
			}
			_, _ = fmt.Fprintf(w, "Pruned %d worktree(s)\n", len(out.Removed))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.ProjectID, "project", "p", "", "Restrict to one project (default: all projects)")

	return cmd
}
