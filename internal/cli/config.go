package cli

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/coreycrellin/deckhand/internal/app"
	"github.com/coreycrellin/deckhand/internal/usecase"
)

// newConfigCommand creates the config command.
func newConfigCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Inspect and initialize the deckhand configuration file.`,
		// Parent only; cobra lists the subcommands.
	}

	cmd.AddCommand(
		newConfigShowCommand(c),
		newConfigInitCommand(c),
	)

	return cmd
}

// newConfigShowCommand creates the config show subcommand.
func newConfigShowCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Display the effective configuration after defaults, the config file
and DECKHAND_* environment overrides are merged, in TOML form.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.ShowConfigUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowConfigInput{})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.Exists {
				_, _ = fmt.Fprintf(w, "# %s\n", out.Path)
			} else {
				_, _ = fmt.Fprintf(w, "# %s (not found, defaults in effect)\n", out.Path)
			}
			if err := toml.NewEncoder(w).Encode(out.Config); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return nil
		},
	}

	return cmd
}

// newConfigInitCommand creates the config init subcommand.
func newConfigInitCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file template",
		Long: `Write a commented configuration template to the config path.

The path honors $DECKHAND_CONFIG and defaults to
$XDG_CONFIG_HOME/deckhand/config.toml. An existing file is never
overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.InitConfigUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.InitConfigInput{Path: c.ConfigPath})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote config template to %s\n", out.Path)
			return nil
		},
	}

	return cmd
}
