package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase"
)

const dateLayout = "2006-01-02"

// newSprintCommand creates the sprint command group.
func newSprintCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sprint",
		Short: "Manage sprints and their tasks",
	}
	cmd.AddCommand(
		newSprintCreateCommand(c),
		newSprintListCommand(c),
		newSprintShowCommand(c),
		newSprintUpdateCommand(c),
		newSprintDeleteCommand(c),
		newSprintAddCommand(c),
		newSprintRemoveCommand(c),
		newSprintRecalcCommand(c),
	)
	return cmd
}

// parseDate accepts YYYY-MM-DD (midnight UTC) or RFC 3339.
func parseDate(flag, s string) (*time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, &domain.ValidationError{Field: flag, Reason: "must be YYYY-MM-DD or RFC 3339"}
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func newSprintCreateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Description string
		Start       string
		End         string
	}

	cmd := &cobra.Command{
		Use:   "create <project-id> <name>",
		Short: "Create a sprint",
		Long: `Create a sprint in a project. Requires the owner or manager role.

The status is derived from the dates: Planning before the start date (or
without one), Active until the end date, Completed afterwards.

Examples:
  sprintcrew sprint create <project-id> "Sprint 1" --start 2026-03-01 --end 2026-03-14`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}

			in := usecase.CreateSprintInput{
				ProjectID:   args[0],
				Name:        args[1],
				Description: opts.Description,
				Actor:       user,
			}
			if opts.Start != "" {
				if in.StartDate, err = parseDate("start", opts.Start); err != nil {
					return err
				}
			}
			if opts.End != "" {
				if in.EndDate, err = parseDate("end", opts.End); err != nil {
					return err
				}
			}

			out, err := c.CreateSprintUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created sprint %s [%s]\n", out.Sprint.ID, out.Sprint.Status.Display())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Description, "description", "", "Sprint description")
	cmd.Flags().StringVar(&opts.Start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.End, "end", "", "End date (YYYY-MM-DD)")

	return cmd
}

func newSprintListCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Status string
		Search string
		Page   int
		Limit  int
		JSON   bool
	}

	cmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List sprints of a project",
		Long: `List sprints of a project, newest first.

Output format is tab-separated with columns:
  ID, STATUS, PROGRESS, TASKS, START, END, NAME

Examples:
  sprintcrew sprint list <project-id> --status Active
  sprintcrew sprint list <project-id> --search release --page 2 --limit 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			out, err := c.ListSprintsUseCase().Execute(cmd.Context(), usecase.ListSprintsInput{
				ProjectID: args[0],
				Status:    domain.SprintStatus(opts.Status),
				Search:    opts.Search,
				Page:      opts.Page,
				Limit:     opts.Limit,
				Actor:     user,
			})
			if err != nil {
				return err
			}
			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			return printSprintList(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (Planning, Active, Completed, Cancelled)")
	cmd.Flags().StringVar(&opts.Search, "search", "", "Filter by name (case-insensitive substring)")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "Sprints per page (1-100)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output in JSON format")

	return cmd
}

func printSprintList(w io.Writer, out *usecase.ListSprintsOutput) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tPROGRESS\tTASKS\tSTART\tEND\tNAME")
	for _, s := range out.Sprints {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d%%\t%d\t%s\t%s\t%s\n",
			s.ID, s.Status.Display(), s.Progress, len(s.TaskIDs),
			formatDate(s.StartDate), formatDate(s.EndDate), s.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	p := out.Pagination
	_, _ = fmt.Fprintf(w, "Page %d/%d (%d sprint(s))\n", p.Page, max(p.Pages, 1), p.Total)
	return nil
}

func newSprintShowCommand(c *app.Container) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <sprint-id>",
		Short: "Display sprint details with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			out, err := c.ShowSprintUseCase().Execute(cmd.Context(), usecase.ShowSprintInput{
				SprintID: args[0],
				Actor:    user,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), struct {
					*domain.Sprint
					Tasks []*domain.Task `json:"tasks"`
				}{out.Sprint, out.Tasks})
			}
			printSprintDetails(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func printSprintDetails(w io.Writer, out *usecase.ShowSprintOutput) {
	s := out.Sprint
	_, _ = fmt.Fprintf(w, "# Sprint: %s\n\n", s.Name)

	if s.Description != "" {
		_, _ = fmt.Fprintf(w, "%s\n\n", s.Description)
	}

	_, _ = fmt.Fprintf(w, "ID: %s\n", s.ID)
	_, _ = fmt.Fprintf(w, "Status: %s\n", s.Status.Display())
	_, _ = fmt.Fprintf(w, "Progress: %d%% %s\n", s.Progress, progressBar(s.Progress, 20))
	_, _ = fmt.Fprintf(w, "Dates: %s .. %s\n", formatDate(s.StartDate), formatDate(s.EndDate))

	if len(out.Tasks) == 0 {
		_, _ = fmt.Fprintln(w, "\nTasks: none")
		return
	}
	_, _ = fmt.Fprintf(w, "\nTasks (%d):\n", len(out.Tasks))
	for _, t := range out.Tasks {
		_, _ = fmt.Fprintf(w, "  %s [%s] %s\n", t.ID, t.Status, t.Title)
	}
}

// progressBar renders pct as a fixed-width ASCII bar.
func progressBar(pct, width int) string {
	filled := pct * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func newSprintUpdateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Name        string
		Description string
		Start       string
		End         string
		ClearStart  bool
		ClearEnd    bool
		Cancel      bool
	}

	cmd := &cobra.Command{
		Use:   "update <sprint-id>",
		Short: "Update a sprint",
		Long: `Update a sprint. Only the flags given are changed. Requires the owner or
manager role.

Statuses other than Cancelled follow from the dates; use --cancel to cancel a
sprint. A cancelled sprint stays cancelled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}

			in := usecase.UpdateSprintInput{
				SprintID:   args[0],
				ClearStart: opts.ClearStart,
				ClearEnd:   opts.ClearEnd,
				Actor:      user,
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				in.Name = &opts.Name
			}
			if flags.Changed("description") {
				in.Description = &opts.Description
			}
			if flags.Changed("start") {
				if in.StartDate, err = parseDate("start", opts.Start); err != nil {
					return err
				}
			}
			if flags.Changed("end") {
				if in.EndDate, err = parseDate("end", opts.End); err != nil {
					return err
				}
			}
			if opts.Cancel {
				status := domain.SprintCancelled
				in.Status = &status
			}

			out, err := c.UpdateSprintUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated sprint %s [%s, %d%%]\n",
				out.Sprint.ID, out.Sprint.Status.Display(), out.Sprint.Progress)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "New name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "New description")
	cmd.Flags().StringVar(&opts.Start, "start", "", "New start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.End, "end", "", "New end date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.ClearStart, "clear-start", false, "Remove the start date")
	cmd.Flags().BoolVar(&opts.ClearEnd, "clear-end", false, "Remove the end date")
	cmd.Flags().BoolVar(&opts.Cancel, "cancel", false, "Cancel the sprint")
	cmd.MarkFlagsMutuallyExclusive("start", "clear-start")
	cmd.MarkFlagsMutuallyExclusive("end", "clear-end")

	return cmd
}

func newSprintDeleteCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <sprint-id>",
		Short: "Delete a sprint",
		Long: `Delete a sprint. Its tasks are kept and leave the sprint. Requires the
owner or manager role.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			out, err := c.DeleteSprintUseCase().Execute(cmd.Context(), usecase.DeleteSprintInput{
				SprintID: args[0],
				Actor:    user,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted sprint %s (%d task(s) released)\n", out.Sprint.ID, out.ClearedTasks)
			return nil
		},
	}
}

func newSprintAddCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "add <sprint-id> <task-id>",
		Short: "Add a task to a sprint",
		Long: `Add a task to a sprint. A task that already belongs to another sprint is
moved; both sprints' progress is recomputed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			out, err := c.AddTaskToSprintUseCase().Execute(cmd.Context(), usecase.SprintTaskInput{
				SprintID: args[0],
				TaskID:   args[1],
				Actor:    user,
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out.Previous != nil {
				_, _ = fmt.Fprintf(w, "Moved task %s from sprint %s (now %d%%)\n", args[1], out.Previous.Name, out.Previous.Progress)
			}
			_, _ = fmt.Fprintf(w, "Sprint %s: %d task(s), %d%% complete\n", out.Sprint.Name, len(out.Sprint.TaskIDs), out.Sprint.Progress)
			return nil
		},
	}
}

func newSprintRemoveCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <sprint-id> <task-id>",
		Short: "Remove a task from a sprint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			out, err := c.RemoveTaskFromSprintUseCase().Execute(cmd.Context(), usecase.SprintTaskInput{
				SprintID: args[0],
				TaskID:   args[1],
				Actor:    user,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sprint %s: %d task(s), %d%% complete\n",
				out.Sprint.Name, len(out.Sprint.TaskIDs), out.Sprint.Progress)
			return nil
		},
	}
}

func newSprintRecalcCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc <sprint-id>",
		Short: "Recompute a sprint's progress",
		Long: `Recompute a sprint's progress from the current status of its tasks.
Running it twice gives the same result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			out, err := c.RecalculateProgressUseCase().Execute(cmd.Context(), usecase.RecalculateProgressInput{
				SprintID: args[0],
				Actor:    user,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Progress: %d%% -> %d%%\n", out.Previous, out.Progress)
			return nil
		},
	}
}
