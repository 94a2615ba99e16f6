package domain

// Real-time event names.
const (
	EventSprintCreated         = "sprint:created"
	EventSprintUpdated         = "sprint:updated"
	EventSprintDeleted         = "sprint:deleted"
	EventSprintTaskAdded       = "sprint:task:added"
	EventSprintTaskRemoved     = "sprint:task:removed"
	EventSprintProgressUpdated = "sprint:progress:updated"
)

// ProjectRoom returns the broadcast room for a project.
func ProjectRoom(projectID string) string {
	return "project:" + projectID
}

// SprintRoom returns the broadcast room for a sprint.
func SprintRoom(sprintID string) string {
	return "sprint:" + sprintID
}

// UserRoom returns the broadcast room for a user.
func UserRoom(userID string) string {
	return "user:" + userID
}

// Event is a change notification delivered to one room.
type Event struct {
	Payload any    `json:"payload"`
	Room    string `json:"room"`
	Name    string `json:"event"`
}

// SprintPayload carries a full sprint document.
type SprintPayload struct {
	Sprint *Sprint `json:"sprint"`
	Actor  string  `json:"actor,omitempty"`
}

// SprintDeletedPayload identifies a deleted sprint.
type SprintDeletedPayload struct {
	SprintID  string `json:"sprintId"`
	ProjectID string `json:"projectId"`
	Actor     string `json:"actor,omitempty"`
}

// MembershipPayload describes a task joining or leaving a sprint.
type MembershipPayload struct {
	SprintID string `json:"sprintId"`
	TaskID   string `json:"taskId"`
	Actor    string `json:"actor,omitempty"`
	Progress int    `json:"progress"`
}

// ProgressPayload describes a progress change.
type ProgressPayload struct {
	SprintID  string `json:"sprintId"`
	ProjectID string `json:"projectId"`
	Previous  int    `json:"previous"`
	Progress  int    `json:"progress"`
}
