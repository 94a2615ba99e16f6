package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/sprintcrew/internal/domain"
)

func TestCreateProject(t *testing.T) {
	f := newFixture(t)

	out, err := NewCreateProject(f.tx, f.clock).Execute(context.Background(), CreateProjectInput{
		Name:     "Billing",
		Statuses: []string{"Open", "Review", "Shipped"},
		Actor:    owner,
		Members: []domain.ProjectMember{
			{UserID: owner, Role: domain.RoleViewer},
			{UserID: member, Role: domain.RoleMember},
			{UserID: member, Role: domain.RoleManager},
		},
	})
	require.NoError(t, err)

	p := out.Project
	assert.Equal(t, "Shipped", p.DoneStatus)
	assert.Equal(t, owner, p.OwnerID)
	assert.Equal(t, []domain.ProjectMember{{UserID: member, Role: domain.RoleMember}}, p.Members,
		"owner and duplicate entries are dropped")
	assert.Equal(t, []string{"project:create"}, f.audit.Actions())
}

func TestCreateProject_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		wantErr error
		name    string
		in      CreateProjectInput
	}{
		{name: "no actor", in: CreateProjectInput{Name: "x"}, wantErr: domain.ErrUnauthorized},
		{name: "empty name", in: CreateProjectInput{Actor: owner}, wantErr: domain.ErrInvalidInput},
		{name: "duplicate status", in: CreateProjectInput{Name: "x", Statuses: []string{"A", "A"}, Actor: owner}, wantErr: domain.ErrInvalidVocabulary},
		{name: "done not in vocabulary", in: CreateProjectInput{Name: "x", DoneStatus: "Done", Statuses: []string{"A", "B"}, Actor: owner}, wantErr: domain.ErrInvalidDoneStatus},
		{name: "bad role", in: CreateProjectInput{Name: "x", Actor: owner, Members: []domain.ProjectMember{{UserID: "u", Role: "admin"}}}, wantErr: domain.ErrInvalidInput},
		{name: "second owner", in: CreateProjectInput{Name: "x", Actor: owner, Members: []domain.ProjectMember{{UserID: "u", Role: domain.RoleOwner}}}, wantErr: domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCreateProject(f.tx, f.clock).Execute(context.Background(), tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestShowProject(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	uc := NewShowProject(f.tx, f.cache, time.Minute)

	out, err := uc.Execute(context.Background(), ShowProjectInput{ProjectID: p.ID, Actor: viewer})
	require.NoError(t, err)
	assert.Equal(t, p.Name, out.Project.Name)

	_, err = uc.Execute(context.Background(), ShowProjectInput{ProjectID: p.ID, Actor: stranger})
	require.ErrorIs(t, err, domain.ErrNotProjectMember)

	_, err = uc.Execute(context.Background(), ShowProjectInput{ProjectID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", Actor: owner})
	require.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestListProjects(t *testing.T) {
	f := newFixture(t)
	f.project(t)
	_, err := NewCreateProject(f.tx, f.clock).Execute(context.Background(), CreateProjectInput{Name: "Solo", Actor: stranger})
	require.NoError(t, err)

	out, err := NewListProjects(f.tx).Execute(context.Background(), ListProjectsInput{Actor: member})
	require.NoError(t, err)
	require.Len(t, out.Projects, 1)
	assert.Equal(t, "Checkout", out.Projects[0].Name)

	out, err = NewListProjects(f.tx).Execute(context.Background(), ListProjectsInput{Actor: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, out.Projects)
}

func TestDeleteProject(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	keep := f.project(t)
	s := f.sprint(t, p.ID, "Sprint 1")
	task := f.task(t, p.ID, "a", "ToDo")
	f.add(t, s.ID, task.ID)
	other := f.task(t, keep.ID, "b", "ToDo")

	_, err := NewDeleteProject(f.tx).Execute(context.Background(), DeleteProjectInput{ProjectID: p.ID, Actor: manager})
	require.ErrorIs(t, err, domain.ErrInsufficientRole)

	out, err := NewDeleteProject(f.tx).Execute(context.Background(), DeleteProjectInput{ProjectID: p.ID, Actor: owner})
	require.NoError(t, err)
	assert.Equal(t, 1, out.DeletedSprints)
	assert.Equal(t, 1, out.DeletedTasks)

	assert.Nil(t, f.loadSprint(t, s.ID))
	assert.Nil(t, f.loadTask(t, task.ID))
	assert.NotNil(t, f.loadTask(t, other.ID))

	_, err = NewShowProject(f.tx, f.cache, time.Minute).Execute(context.Background(), ShowProjectInput{ProjectID: p.ID, Actor: owner})
	require.ErrorIs(t, err, domain.ErrProjectNotFound)
}
