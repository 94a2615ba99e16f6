package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/usecase"
)

// newInitCommand creates the init command.
func newInitCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the sprintcrew data directory",
		Long: `Initialize the sprintcrew data directory.

This command creates the .sprintcrew/ directory with:
- config.toml: configuration with defaults
- store.json (or store.db with the sqlite driver): empty entity store

The --actor flag is written to [cli] actor so later commands act as that user.

Error conditions:
- Already initialized: "sprintcrew already initialized"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.InitDataDirUseCase()
			_, err := uc.Execute(cmd.Context(), usecase.InitDataDirInput{
				Actor: c.AppConfig.CLI.Actor,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Initialized sprintcrew in %s\n", c.Config.DataDir)
			return nil
		},
	}
}
