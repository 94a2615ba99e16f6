package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase"
)

// newProjectCommand creates the project command group.
func newProjectCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(
		newProjectCreateCommand(c),
		newProjectListCommand(c),
		newProjectShowCommand(c),
		newProjectDeleteCommand(c),
	)
	return cmd
}

func newProjectCreateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		DoneStatus string
		Statuses   []string
		Members    []string
	}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Long: `Create a project owned by the acting user.

The status vocabulary defaults to ToDo, Doing, Testing, Done. The done status
(the status that counts as complete) defaults to the last entry.

Examples:
  # Default vocabulary
  sprintcrew project create "Web"

  # Custom vocabulary and members
  sprintcrew project create "Billing" --status Open --status Review --status Shipped \
    --member bob:manager --member carol:member`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			members, err := parseMembers(opts.Members)
			if err != nil {
				return err
			}

			out, err := c.CreateProjectUseCase().Execute(cmd.Context(), usecase.CreateProjectInput{
				Name:       args[0],
				DoneStatus: opts.DoneStatus,
				Statuses:   opts.Statuses,
				Members:    members,
				Actor:      user,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created project %s\n", out.Project.ID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opts.Statuses, "status", nil, "Status vocabulary entry, in order (can specify multiple)")
	cmd.Flags().StringVar(&opts.DoneStatus, "done", "", "Status that counts as complete (default: last status)")
	cmd.Flags().StringArrayVar(&opts.Members, "member", nil, "Member as user:role (can specify multiple)")

	return cmd
}

// parseMembers parses user:role pairs.
func parseMembers(specs []string) ([]domain.ProjectMember, error) {
	members := make([]domain.ProjectMember, 0, len(specs))
	for _, spec := range specs {
		user, role, found := strings.Cut(spec, ":")
		if !found || user == "" {
			return nil, &domain.ValidationError{Field: "member", Reason: fmt.Sprintf("%q must be user:role", spec)}
		}
		members = append(members, domain.ProjectMember{UserID: user, Role: domain.Role(role)})
	}
	return members, nil
}

func newProjectListCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects you belong to",
		Long: `List projects the acting user is a member of.

Output format is tab-separated with columns:
  ID, ROLE, STATUSES, NAME`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			out, err := c.ListProjectsUseCase().Execute(cmd.Context(), usecase.ListProjectsInput{Actor: user})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tROLE\tSTATUSES\tNAME")
			for _, p := range out.Projects {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, p.RoleOf(user), len(p.Statuses), p.Name)
			}
			return w.Flush()
		},
	}
}

func newProjectShowCommand(c *app.Container) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Display project details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			out, err := c.ShowProjectUseCase().Execute(cmd.Context(), usecase.ShowProjectInput{
				ProjectID: args[0],
				Actor:     user,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out.Project)
			}
			printProjectDetails(cmd.OutOrStdout(), out.Project)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func printProjectDetails(w io.Writer, p *domain.Project) {
	_, _ = fmt.Fprintf(w, "# Project: %s\n\n", p.Name)
	_, _ = fmt.Fprintf(w, "ID: %s\n", p.ID)
	_, _ = fmt.Fprintf(w, "Owner: %s\n", p.OwnerID)
	_, _ = fmt.Fprintf(w, "Statuses: %s\n", strings.Join(p.Statuses, " -> "))
	_, _ = fmt.Fprintf(w, "Done status: %s\n", p.DoneStatus)
	if len(p.Members) > 0 {
		_, _ = fmt.Fprintln(w, "\nMembers:")
		for _, m := range p.Members {
			_, _ = fmt.Fprintf(w, "  %s (%s)\n", m.UserID, m.Role)
		}
	}
}

func newProjectDeleteCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project with all its sprints and tasks",
		Long: `Delete a project with all its sprints and tasks.

Only the project owner may delete it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actor(c)
			if err != nil {
				return err
			}
			out, err := c.DeleteProjectUseCase().Execute(cmd.Context(), usecase.DeleteProjectInput{
				ProjectID: args[0],
				Actor:     user,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s (%d sprint(s), %d task(s))\n",
				args[0], out.DeletedSprints, out.DeletedTasks)
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
