package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coreycrellin/deckhand/internal/app"
	"github.com/coreycrellin/deckhand/internal/usecase"
)

// newRunAgentCommand creates the hidden supervisor entry point. Dispatch
// re-executes the deckhand binary with this command in a detached process
// so the agent run survives the dispatching terminal.
func newRunAgentCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "_run-agent <project> <task-id>",
		Short:  "Supervise a single agent run (internal)",
		Hidden: true,
		Args:   cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Abort signals the supervisor with SIGTERM; the context
			// cancellation propagates to the agent process.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			uc := c.RunAgentUseCase()
			out, err := uc.Execute(ctx, usecase.RunAgentInput{
				ProjectID: args[0],
				TaskID:    args[1],
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.Cancelled {
				_, _ = fmt.Fprintln(w, "run cancelled")
				return nil
			}
			_, _ = fmt.Fprintf(w, "run finished with exit code %d\n", out.ExitCode)
			return nil
		},
	}

	return cmd
}
