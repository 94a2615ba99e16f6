package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase"
)

// DefaultRefreshInterval is how often the board reloads to pick up changes
// made by other processes sharing the store.
const DefaultRefreshInterval = 5 * time.Second

// Model is the bubbletea model for the sprint board.
type Model struct {
	// Dependencies (pointers first for alignment)
	container *app.Container
	events    <-chan domain.Event
	err       error

	// State
	project *domain.Project
	sprint  *domain.Sprint
	tasks   []*domain.Task

	// Components
	keys     KeyMap
	styles   Styles
	help     help.Model
	progress progress.Model

	sprintID string
	actor    string
	notice   string

	// Numeric state (smaller types last)
	refresh      time.Duration
	mode         Mode
	cursor       int
	statusCursor int
	width        int
	height       int
}

// New creates a board for sprintID acting as actor.
func New(c *app.Container, sprintID, actor string) *Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 40

	return &Model{
		container: c,
		keys:      DefaultKeyMap(),
		styles:    DefaultStyles(),
		help:      help.New(),
		progress:  bar,
		sprintID:  sprintID,
		actor:     actor,
		refresh:   DefaultRefreshInterval,
		mode:      ModeNormal,
	}
}

// Run subscribes to the sprint room and runs the board until it quits or ctx ends.
func Run(ctx context.Context, c *app.Container, sprintID, actor string) error {
	m := New(c, sprintID, actor)

	sub := c.Hub.Subscribe(domain.SprintRoom(sprintID))
	defer c.Hub.Unsubscribe(sub)
	m.events = sub.Events()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// Init loads the board and starts listening for changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadBoard(),
		m.waitForEvent(),
		m.tick(),
	)
}

// loadBoard returns a command that loads the sprint, its project and its tasks.
func (m *Model) loadBoard() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		out, err := m.container.ShowSprintUseCase().Execute(ctx, usecase.ShowSprintInput{
			SprintID: m.sprintID,
			Actor:    m.actor,
		})
		if err != nil {
			return MsgError{Err: err}
		}
		proj, err := m.container.ShowProjectUseCase().Execute(ctx, usecase.ShowProjectInput{
			ProjectID: out.Sprint.ProjectID,
			Actor:     m.actor,
		})
		if err != nil {
			return MsgError{Err: err}
		}
		return MsgBoardLoaded{Project: proj.Project, Sprint: out.Sprint, Tasks: out.Tasks}
	}
}

// waitForEvent returns a command that blocks until the next sprint event.
func (m *Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return MsgEventsClosed{}
		}
		return MsgSprintEvent{Event: ev}
	}
}

type tickMsg time.Time

func (m *Model) tick() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// updateStatus returns a command that moves a task to status.
func (m *Model) updateStatus(taskID, status string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.container.UpdateTaskUseCase().Execute(context.Background(), usecase.UpdateTaskInput{
			TaskID: taskID,
			Status: &status,
			Actor:  m.actor,
		})
		if err != nil {
			return MsgError{Err: err}
		}
		return MsgTaskUpdated{Task: out.Task, Sprint: out.Sprint}
	}
}

// removeTask returns a command that takes a task out of the sprint.
func (m *Model) removeTask(taskID string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.container.RemoveTaskFromSprintUseCase().Execute(context.Background(), usecase.SprintTaskInput{
			SprintID: m.sprintID,
			TaskID:   taskID,
			Actor:    m.actor,
		})
		if err != nil {
			return MsgError{Err: err}
		}
		return MsgTaskRemoved{Sprint: out.Sprint, TaskID: taskID}
	}
}

// recalculate returns a command that recomputes the sprint progress.
func (m *Model) recalculate() tea.Cmd {
	return func() tea.Msg {
		out, err := m.container.RecalculateProgressUseCase().Execute(context.Background(), usecase.RecalculateProgressInput{
			SprintID: m.sprintID,
			Actor:    m.actor,
		})
		if err != nil {
			return MsgError{Err: err}
		}
		return MsgRecalculated{Sprint: out.Sprint, Previous: out.Previous}
	}
}

// SelectedTask returns the task under the cursor, or nil.
func (m *Model) SelectedTask() *domain.Task {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return nil
	}
	return m.tasks[m.cursor]
}

// statuses returns the project vocabulary, or nil before the board is loaded.
func (m *Model) statuses() []string {
	if m.project == nil {
		return nil
	}
	return m.project.Statuses
}

// nextStatus returns the status after current, or "" if current is the last.
func (m *Model) nextStatus(current string) string {
	statuses := m.statuses()
	for i, s := range statuses {
		if s == current && i+1 < len(statuses) {
			return statuses[i+1]
		}
	}
	return ""
}

// doneCount returns how many tasks are in the done status.
func (m *Model) doneCount() int {
	if m.project == nil {
		return 0
	}
	n := 0
	for _, t := range m.tasks {
		if m.project.IsDone(t.Status) {
			n++
		}
	}
	return n
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
