// Package cli provides the command-line interface for sprintcrew.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/domain"
)

// Command group IDs.
const (
	groupSetup   = "setup"
	groupProject = "project"
	groupSprint  = "sprint"
)

// NewRootCommand creates the root command for sprintcrew.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	var workflow bool
	var actorFlag string

	root := &cobra.Command{
		Use:   "sprintcrew",
		Short: "Sprint progress coordinator",
		Long: `sprintcrew tracks projects, tasks and sprints and keeps every sprint's
progress consistent with the status of its member tasks.

Run 'sprintcrew init' once, then 'sprintcrew serve' to expose the HTTP API
or use the project, task and sprint commands directly.

Use --help-workflow for a guide to the sprint workflow.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests)
			if c == nil {
				return nil
			}
			if actorFlag != "" {
				c.AppConfig.CLI.Actor = actorFlag
			}
			for _, w := range c.AppConfig.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if workflow {
				return showWorkflowHelp(cmd.OutOrStdout(), domain.DefaultHelpData())
			}
			return cmd.Help()
		},
	}

	root.Flags().BoolVar(&workflow, "help-workflow", false, "Show the sprint workflow guide")
	root.PersistentFlags().StringVar(&actorFlag, "actor", "", "User ID to act as (default: [cli] actor from config)")

	// Define command groups
	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupProject, Title: "Projects and Tasks:"},
		&cobra.Group{ID: groupSprint, Title: "Sprints:"},
	)

	// Setup commands
	initCmd := newInitCommand(c)
	initCmd.GroupID = groupSetup

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	serveCmd := newServeCommand(c)
	serveCmd.GroupID = groupSetup

	// Project and task commands
	projectCmd := newProjectCommand(c)
	projectCmd.GroupID = groupProject

	taskCmd := newTaskCommand(c)
	taskCmd.GroupID = groupProject

	// Sprint commands
	sprintCmd := newSprintCommand(c)
	sprintCmd.GroupID = groupSprint

	boardCmd := newBoardCommand(c)
	boardCmd.GroupID = groupSprint

	root.AddCommand(
		initCmd,
		configCmd,
		serveCmd,
		projectCmd,
		taskCmd,
		sprintCmd,
		boardCmd,
	)

	return root
}

// actor returns the user the CLI acts as.
func actor(c *app.Container) (string, error) {
	if c.AppConfig.CLI.Actor == "" {
		return "", fmt.Errorf("%w: set --actor or [cli] actor in config", domain.ErrMissingCredentials)
	}
	return c.AppConfig.CLI.Actor, nil
}
