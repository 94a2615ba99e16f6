package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		done, total, want int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13}, // 12.5 rounds half up
		{3, 8, 38}, // 37.5 rounds half up
		{1, 200, 1},
		{1, 201, 0}, // 0.497...
		{3, 3, 100},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.done, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeProgress(tt.done, tt.total))
		})
	}
}

func TestCountDone_UsesProjectTerminalStatus(t *testing.T) {
	tasks := []*Task{
		{Status: "Done"},
		{Status: "Completed"},
		{Status: "Open"},
	}

	custom := &Project{Statuses: []string{"Open", "Done", "Completed"}, DoneStatus: "Completed"}
	assert.Equal(t, 1, CountDone(custom, tasks), "only the terminal label counts")

	defaults := &Project{Statuses: DefaultStatuses, DoneStatus: "Done"}
	assert.Equal(t, 1, CountDone(defaults, tasks))
}

func TestKind(t *testing.T) {
	assert.Equal(t, ErrNotFound, Kind(ErrSprintNotFound))
	assert.Equal(t, ErrNotFound, Kind(fmt.Errorf("load: %w", ErrTaskNotFound)))
	assert.Equal(t, ErrConflict, Kind(ErrCrossProjectTask))
	assert.Equal(t, ErrForbidden, Kind(ErrInsufficientRole))
	assert.Equal(t, ErrUnauthorized, Kind(ErrMissingCredentials))
	assert.Equal(t, ErrInvalidInput, Kind(&ValidationError{Field: "name", Reason: "is required"}))
	assert.Nil(t, Kind(errors.New("disk on fire")))
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "sprint:s1", SprintKey("s1"))
	assert.Equal(t, "task:t1", TaskKey("t1"))
	assert.Equal(t, "project:p1", ProjectKey("p1"))
	assert.Equal(t, "project:p1:sprints*", ProjectSprintsPattern("p1"))

	a := ProjectSprintsKey("p1", "page=1")
	assert.Equal(t, a, ProjectSprintsKey("p1", "page=1"))
	assert.NotEqual(t, a, ProjectSprintsKey("p1", "page=2"))
	assert.Contains(t, a, "project:p1:sprints:")
}
