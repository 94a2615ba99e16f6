package cli

import (
	"github.com/spf13/cobra"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/tui"
)

// launchBoard runs the board; tests replace it.
var launchBoard = tui.Run

// newBoardCommand creates the board command.
func newBoardCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "board <sprint-id>",
		Short: "Open the live sprint board",
		Long: `Open an interactive board for a sprint.

The board lists the sprint's tasks with a progress bar. Changing a task's
status recomputes the sprint progress immediately; changes made elsewhere
appear within a few seconds.

Keys: j/k move, enter pick status, space next status, x remove from sprint,
p recalculate, r refresh, ? help, q quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			return launchBoard(cmd.Context(), c, args[0], user)
		},
	}
}
