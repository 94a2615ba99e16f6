package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

// CreateProjectInput contains the parameters for creating a project.
type CreateProjectInput struct {
	Name       string                 // 1-100 characters (required)
	DoneStatus string                 // Terminal status (empty = last vocabulary entry)
	Actor      string                 // Becomes the owner (required)
	Statuses   []string               // Status vocabulary (empty = defaults)
	Members    []domain.ProjectMember // Additional members
}

// CreateProjectOutput contains the result of creating a project.
type CreateProjectOutput struct {
	Project *domain.Project
}

type projectFields struct {
	Name string `validate:"min=1,max=100"`
}

// CreateProject is the use case for creating a project.
type CreateProject struct {
	tx    *Transactor
	clock domain.Clock
}

// NewCreateProject creates a new CreateProject use case.
func NewCreateProject(tx *Transactor, clock domain.Clock) *CreateProject {
	return &CreateProject{
		tx:    tx,
		clock: clock,
	}
}

// Execute creates a project owned by the actor.
func (uc *CreateProject) Execute(ctx context.Context, in CreateProjectInput) (*CreateProjectOutput, error) {
	if in.Actor == "" {
		return nil, domain.ErrMissingCredentials
	}
	if err := domain.Validate(projectFields{Name: in.Name}); err != nil {
		return nil, err
	}
	statuses, done, err := domain.NormalizeVocabulary(in.Statuses, in.DoneStatus)
	if err != nil {
		return nil, err
	}
	members, err := normalizeMembers(in.Members, in.Actor)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	project := &domain.Project{
		ID:         shared.NewID(),
		Name:       in.Name,
		Statuses:   statuses,
		DoneStatus: done,
		OwnerID:    in.Actor,
		Members:    members,
		Created:    now,
		Updated:    now,
	}

	err = uc.tx.Update(ctx, "create_project", func(tx domain.Tx, fx *Effects) error {
		if err := tx.SaveProject(project); err != nil {
			return fmt.Errorf("save project: %w", err)
		}
		fx.Audit(domain.AuditEntry{
			ActorID:    in.Actor,
			Action:     "create",
			EntityKind: "project",
			EntityID:   project.ID,
			Changes:    map[string]any{"name": project.Name},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateProjectOutput{Project: project}, nil
}

// normalizeMembers validates roles and drops the owner and duplicate entries.
func normalizeMembers(members []domain.ProjectMember, owner string) ([]domain.ProjectMember, error) {
	out := make([]domain.ProjectMember, 0, len(members))
	for _, m := range members {
		if m.UserID == "" {
			return nil, &domain.ValidationError{Field: "members", Reason: "user id is required"}
		}
		if !m.Role.IsValid() || m.Role == domain.RoleOwner {
			return nil, &domain.ValidationError{Field: "members", Reason: fmt.Sprintf("invalid role %q", m.Role)}
		}
		if m.UserID == owner || slices.ContainsFunc(out, func(o domain.ProjectMember) bool { return o.UserID == m.UserID }) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// ShowProjectInput contains the parameters for showing a project.
type ShowProjectInput struct {
	ProjectID string
	Actor     string
}

// ShowProjectOutput contains a project.
type ShowProjectOutput struct {
	Project *domain.Project
}

// ShowProject is the use case for displaying a project.
type ShowProject struct {
	tx    *Transactor
	cache domain.Cache
	ttl   time.Duration
}

// NewShowProject creates a new ShowProject use case.
func NewShowProject(tx *Transactor, cache domain.Cache, ttl time.Duration) *ShowProject {
	return &ShowProject{
		tx:    tx,
		cache: cache,
		ttl:   ttl,
	}
}

// Execute returns the project if the actor is a member.
func (uc *ShowProject) Execute(ctx context.Context, in ShowProjectInput) (*ShowProjectOutput, error) {
	if err := shared.ValidateID(in.ProjectID); err != nil {
		return nil, err
	}

	v, err := uc.cache.GetOrCompute(ctx, domain.ProjectKey(in.ProjectID), uc.ttl, func(ctx context.Context) (any, error) {
		var project *domain.Project
		err := uc.tx.View(ctx, func(tx domain.Tx) error {
			var err error
			project, err = tx.GetProject(in.ProjectID)
			if err != nil {
				return fmt.Errorf("get project: %w", err)
			}
			if project == nil {
				return domain.ErrProjectNotFound
			}
			return nil
		})
		return project, err
	})
	if err != nil {
		return nil, err
	}

	project := v.(*domain.Project).Clone()
	if project.RoleOf(in.Actor) == "" {
		return nil, domain.ErrNotProjectMember
	}
	return &ShowProjectOutput{Project: project}, nil
}

// ListProjectsInput contains the parameters for listing projects.
type ListProjectsInput struct {
	Actor string // Only projects the actor belongs to are returned
}

// ListProjectsOutput contains the visible projects.
type ListProjectsOutput struct {
	Projects []*domain.Project
}

// ListProjects is the use case for listing the actor's projects.
type ListProjects struct {
	tx *Transactor
}

// NewListProjects creates a new ListProjects use case.
func NewListProjects(tx *Transactor) *ListProjects {
	return &ListProjects{tx: tx}
}

// Execute returns every project the actor holds a role in, oldest first.
func (uc *ListProjects) Execute(ctx context.Context, in ListProjectsInput) (*ListProjectsOutput, error) {
	var projects []*domain.Project
	err := uc.tx.View(ctx, func(tx domain.Tx) error {
		all, err := tx.ListProjects()
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		projects = slices.DeleteFunc(all, func(p *domain.Project) bool {
			return p.RoleOf(in.Actor) == ""
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ListProjectsOutput{Projects: projects}, nil
}

// DeleteProjectInput contains the parameters for deleting a project.
type DeleteProjectInput struct {
	ProjectID string
	Actor     string
}

// DeleteProjectOutput reports what was removed with the project.
type DeleteProjectOutput struct {
	DeletedSprints int
	DeletedTasks   int
}

// DeleteProject is the use case for deleting a project with its sprints and tasks.
type DeleteProject struct {
	tx *Transactor
}

// NewDeleteProject creates a new DeleteProject use case.
func NewDeleteProject(tx *Transactor) *DeleteProject {
	return &DeleteProject{tx: tx}
}

// Execute deletes the project in one transaction. Only the owner may do this.
func (uc *DeleteProject) Execute(ctx context.Context, in DeleteProjectInput) (*DeleteProjectOutput, error) {
	if err := shared.ValidateID(in.ProjectID); err != nil {
		return nil, err
	}

	out := &DeleteProjectOutput{}
	err := uc.tx.Update(ctx, "delete_project", func(tx domain.Tx, fx *Effects) error {
		if _, err := shared.Authorize(tx, in.ProjectID, in.Actor, shared.IsOwner); err != nil {
			return err
		}

		sprints, err := tx.ListSprints(domain.SprintFilter{ProjectID: in.ProjectID})
		if err != nil {
			return fmt.Errorf("list sprints: %w", err)
		}
		tasks, err := tx.ListTasks(domain.TaskFilter{ProjectID: in.ProjectID})
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		if out.DeletedTasks, err = tx.DeleteTasks(domain.TaskFilter{ProjectID: in.ProjectID}); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if out.DeletedSprints, err = tx.DeleteSprints(domain.SprintFilter{ProjectID: in.ProjectID}); err != nil {
			return fmt.Errorf("delete sprints: %w", err)
		}
		if err := tx.DeleteProject(in.ProjectID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}

		fx.Invalidate(domain.ProjectKey(in.ProjectID), domain.ProjectSprintsPattern(in.ProjectID))
		for _, s := range sprints {
			fx.Invalidate(domain.SprintKey(s.ID))
			fx.Publish(domain.EventSprintDeleted, domain.SprintDeletedPayload{
				SprintID:  s.ID,
				ProjectID: in.ProjectID,
				Actor:     in.Actor,
			}, domain.SprintRoom(s.ID))
		}
		for _, t := range tasks {
			fx.Invalidate(domain.TaskKey(t.ID))
		}
		fx.Audit(domain.AuditEntry{
			ActorID:    in.Actor,
			Action:     "delete",
			EntityKind: "project",
			EntityID:   in.ProjectID,
			Changes:    map[string]any{"sprints": out.DeletedSprints, "tasks": out.DeletedTasks},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
