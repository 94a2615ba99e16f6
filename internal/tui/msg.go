package tui

import "github.com/runoshun/sprintcrew/internal/domain"

// Msg is the sealed interface for all board messages.
//
// go-sumtype:decl Msg
type Msg interface {
	sealed()
}

// MsgBoardLoaded is sent when the sprint, its project and its tasks are loaded.
type MsgBoardLoaded struct {
	Project *domain.Project
	Sprint  *domain.Sprint
	Tasks   []*domain.Task
}

func (MsgBoardLoaded) sealed() {}

// MsgTaskUpdated is sent after a task status change was saved.
type MsgTaskUpdated struct {
	Task   *domain.Task
	Sprint *domain.Sprint
}

func (MsgTaskUpdated) sealed() {}

// MsgTaskRemoved is sent after a task left the sprint.
type MsgTaskRemoved struct {
	Sprint *domain.Sprint
	TaskID string
}

func (MsgTaskRemoved) sealed() {}

// MsgRecalculated is sent after the sprint progress was recomputed.
type MsgRecalculated struct {
	Sprint   *domain.Sprint
	Previous int
}

func (MsgRecalculated) sealed() {}

// MsgSprintEvent carries a broadcast event for the watched sprint.
type MsgSprintEvent struct {
	Event domain.Event
}

func (MsgSprintEvent) sealed() {}

// MsgEventsClosed is sent when the event subscription ends.
type MsgEventsClosed struct{}

func (MsgEventsClosed) sealed() {}

// MsgError is sent when an error occurs.
type MsgError struct {
	Err error
}

func (MsgError) sealed() {}
