package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase"
)

// newTaskCommand creates the task command group.
func newTaskCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(
		newTaskCreateCommand(c),
		newTaskShowCommand(c),
		newTaskEditCommand(c),
		newTaskDeleteCommand(c),
	)
	return cmd
}

// newTaskCreateCommand creates the task create command.
func newTaskCreateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Description string
		Status      string
		Priority    string
		Assignee    string
		From        string
		DryRun      bool
	}

	cmd := &cobra.Command{
		Use:   "create <project-id> [title]",
		Short: "Create a task",
		Long: `Create a task in a project.

The status defaults to the first entry of the project vocabulary and the
priority defaults to medium.

Examples:
  # Create a task
  sprintcrew task create <project-id> "Write login form"

  # Create a task with body using HEREDOC
  sprintcrew task create <project-id> "Complex task" --body "$(cat <<'EOF'
## Summary
- Step 1
EOF
)"

  # Create tasks from a file (multiple tasks supported)
  sprintcrew task create <project-id> --from tasks.md

  # Preview tasks from a file without creating
  sprintcrew task create <project-id> --from tasks.md --dry-run

File format for --from:
  ---
  title: Task 1
  priority: high
  sprint: Sprint 1     # Sprint name or ID; the task is added to it
  ---
  Description here.

  ---
  title: Task 2
  status: Doing
  ---`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}

			if opts.From != "" {
				return createTasksFromFile(cmd, c, args[0], opts.From, user, opts.DryRun)
			}
			if len(args) < 2 {
				return fmt.Errorf("title is required unless --from is used")
			}

			out, err := c.CreateTaskUseCase().Execute(cmd.Context(), usecase.CreateTaskInput{
				ProjectID:   args[0],
				Title:       args[1],
				Description: opts.Description,
				Status:      opts.Status,
				Priority:    domain.Priority(opts.Priority),
				AssigneeID:  opts.Assignee,
				Actor:       user,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", out.Task.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Description, "body", "", "Task description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Initial status (default: first project status)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "Priority: low, medium, high or urgent")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "Assignee user ID")
	cmd.Flags().StringVar(&opts.From, "from", "", "Create tasks from a Markdown file")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Preview tasks without creating (requires --from)")

	return cmd
}

func createTasksFromFile(cmd *cobra.Command, c *app.Container, projectID, filePath, user string, dryRun bool) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	out, err := c.ImportTasksUseCase().Execute(cmd.Context(), usecase.ImportTasksInput{
		ProjectID: projectID,
		Content:   string(content),
		Actor:     user,
		DryRun:    dryRun,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if dryRun {
		_, _ = fmt.Fprintln(w, "Dry run - tasks that would be created:")
		_, _ = fmt.Fprintln(w, "")
	}

	for i, task := range out.Tasks {
		if dryRun {
			_, _ = fmt.Fprintf(w, "Task %d:\n", i+1)
		} else {
			_, _ = fmt.Fprintf(w, "Created task %s:\n", task.ID)
		}
		_, _ = fmt.Fprintf(w, "  Title: %s\n", task.Title)
		_, _ = fmt.Fprintf(w, "  Status: %s\n", task.Status)
		if task.SprintID != "" {
			_, _ = fmt.Fprintf(w, "  Sprint: %s\n", task.SprintID)
		}
		if task.Description != "" {
			_, _ = fmt.Fprintf(w, "  Description: %s\n", preview(task.Description))
		}
		if i < len(out.Tasks)-1 {
			_, _ = fmt.Fprintln(w, "")
		}
	}

	if !dryRun {
		_, _ = fmt.Fprintf(w, "\nCreated %d task(s)\n", len(out.Tasks))
		for _, s := range out.Sprints {
			_, _ = fmt.Fprintf(w, "Sprint %s: %d task(s), %d%% complete\n", s.Name, len(s.TaskIDs), s.Progress)
		}
	}
	return nil
}

// preview returns the first line of s, truncated to 50 bytes.
func preview(s string) string {
	lines := strings.Split(s, "\n")
	p := lines[0]
	if len(p) > 50 {
		p = p[:50] + "..."
	}
	if len(lines) > 1 {
		p += " ..."
	}
	return p
}

func newTaskShowCommand(c *app.Container) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Display task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			out, err := c.ShowTaskUseCase().Execute(cmd.Context(), usecase.ShowTaskInput{
				TaskID: args[0],
				Actor:  user,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out.Task)
			}
			printTaskDetails(cmd.OutOrStdout(), out.Task)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func printTaskDetails(w io.Writer, task *domain.Task) {
	_, _ = fmt.Fprintf(w, "# Task: %s\n\n", task.Title)

	if task.Description != "" {
		_, _ = fmt.Fprintf(w, "%s\n\n", task.Description)
	}

	_, _ = fmt.Fprintf(w, "ID: %s\n", task.ID)
	_, _ = fmt.Fprintf(w, "Status: %s\n", task.Status)
	_, _ = fmt.Fprintf(w, "Priority: %s\n", task.Priority)
	if task.AssigneeID != "" {
		_, _ = fmt.Fprintf(w, "Assignee: %s\n", task.AssigneeID)
	} else {
		_, _ = fmt.Fprintln(w, "Assignee: none")
	}
	if task.SprintID != "" {
		_, _ = fmt.Fprintf(w, "Sprint: %s\n", task.SprintID)
	} else {
		_, _ = fmt.Fprintln(w, "Sprint: none")
	}
	_, _ = fmt.Fprintf(w, "Created: %s\n", task.Created.Format(time.RFC3339))
}

func newTaskEditCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Title       string
		Description string
		Status      string
		Priority    string
		Assignee    string
	}

	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Edit a task",
		Long: `Edit a task. Only the flags given are changed.

Changing the status recomputes the progress of the task's sprint.

Examples:
  sprintcrew task edit <task-id> --status Done
  sprintcrew task edit <task-id> --assignee carol --priority high
  sprintcrew task edit <task-id> --assignee ""   # unassign`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}

			in := usecase.UpdateTaskInput{TaskID: args[0], Actor: user}
			flags := cmd.Flags()
			if flags.Changed("title") {
				in.Title = &opts.Title
			}
			if flags.Changed("body") {
				in.Description = &opts.Description
			}
			if flags.Changed("status") {
				in.Status = &opts.Status
			}
			if flags.Changed("priority") {
				p := domain.Priority(opts.Priority)
				in.Priority = &p
			}
			if flags.Changed("assignee") {
				in.AssigneeID = &opts.Assignee
			}

			out, err := c.UpdateTaskUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s [%s]\n", out.Task.ID, out.Task.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "New title")
	cmd.Flags().StringVar(&opts.Description, "body", "", "New description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "New status")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "New priority")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "New assignee (empty to unassign)")

	return cmd
}

func newTaskDeleteCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Long: `Delete a task. If it belongs to a sprint it is removed from it first and
the sprint's progress is recomputed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			out, err := c.DeleteTaskUseCase().Execute(cmd.Context(), usecase.DeleteTaskInput{
				TaskID: args[0],
				Actor:  user,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", out.Task.ID)
			if out.Sprint != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sprint %s is now %d%% complete\n", out.Sprint.Name, out.Sprint.Progress)
			}
			return nil
		},
	}
}
