package tui

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/sprintcrew/internal/domain"
)

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(min(msg.Width-30, 60), 10)
		return m, nil

	case MsgBoardLoaded:
		m.project = msg.Project
		m.sprint = msg.Sprint
		m.tasks = msg.Tasks
		m.clampCursor()
		return m, nil

	case MsgTaskUpdated:
		m.mode = ModeNormal
		m.notice = ""
		for i, t := range m.tasks {
			if t.ID == msg.Task.ID {
				m.tasks[i] = msg.Task
			}
		}
		if msg.Sprint != nil && msg.Sprint.ID == m.sprintID {
			m.sprint = msg.Sprint
		}
		return m, nil

	case MsgTaskRemoved:
		m.mode = ModeNormal
		m.sprint = msg.Sprint
		m.tasks = slices.DeleteFunc(m.tasks, func(t *domain.Task) bool { return t.ID == msg.TaskID })
		m.clampCursor()
		return m, nil

	case MsgRecalculated:
		m.sprint = msg.Sprint
		if msg.Previous != msg.Sprint.Progress {
			m.notice = fmt.Sprintf("progress corrected: %d%% -> %d%%", msg.Previous, msg.Sprint.Progress)
		} else {
			m.notice = fmt.Sprintf("progress unchanged at %d%%", msg.Sprint.Progress)
		}
		return m, nil

	case MsgSprintEvent:
		return m.handleSprintEvent(msg.Event)

	case MsgEventsClosed:
		m.events = nil
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.loadBoard(), m.tick())

	case MsgError:
		m.err = msg.Err
		m.mode = ModeNormal
		return m, nil
	}

	return m, nil
}

// handleSprintEvent applies a broadcast event and keeps listening.
func (m *Model) handleSprintEvent(ev domain.Event) (tea.Model, tea.Cmd) {
	if ev.Name == domain.EventSprintDeleted {
		m.notice = "this sprint was deleted"
		m.sprint = nil
		m.tasks = nil
		m.cursor = 0
		return m, m.waitForEvent()
	}
	if p, ok := ev.Payload.(domain.SprintPayload); ok && p.Sprint != nil {
		m.sprint = p.Sprint
	}
	// Membership and task status may have changed too.
	return m, tea.Batch(m.loadBoard(), m.waitForEvent())
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.mode {
	case ModeNormal:
		return m.handleNormalMode(msg)
	case ModeStatus:
		return m.handleStatusMode(msg)
	case ModeConfirm:
		return m.handleConfirmMode(msg)
	case ModeHelp:
		return m.handleHelpMode(msg)
	}
	return m, nil
}

func (m *Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key dismisses the last error.
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Status):
		task := m.SelectedTask()
		if task == nil || len(m.statuses()) == 0 {
			return m, nil
		}
		m.statusCursor = max(slices.Index(m.statuses(), task.Status), 0)
		m.mode = ModeStatus
		return m, nil

	case key.Matches(msg, m.keys.Advance):
		task := m.SelectedTask()
		if task == nil {
			return m, nil
		}
		next := m.nextStatus(task.Status)
		if next == "" {
			return m, nil
		}
		return m, m.updateStatus(task.ID, next)

	case key.Matches(msg, m.keys.Remove):
		if m.SelectedTask() == nil {
			return m, nil
		}
		m.mode = ModeConfirm
		return m, nil

	case key.Matches(msg, m.keys.Recalc):
		if m.sprint == nil {
			return m, nil
		}
		return m, m.recalculate()

	case key.Matches(msg, m.keys.Refresh):
		m.notice = ""
		return m, m.loadBoard()

	case key.Matches(msg, m.keys.Help):
		m.mode = ModeHelp
		return m, nil
	}

	return m, nil
}

func (m *Model) handleStatusMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	task := m.SelectedTask()
	statuses := m.statuses()
	if task == nil || len(statuses) == 0 {
		m.mode = ModeNormal
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Quit):
		m.mode = ModeNormal
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.statusCursor > 0 {
			m.statusCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.statusCursor < len(statuses)-1 {
			m.statusCursor++
		}
		return m, nil

	case msg.Type == tea.KeyEnter:
		status := statuses[m.statusCursor]
		if status == task.Status {
			m.mode = ModeNormal
			return m, nil
		}
		return m, m.updateStatus(task.ID, status)
	}

	return m, nil
}

func (m *Model) handleConfirmMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		task := m.SelectedTask()
		if task == nil {
			m.mode = ModeNormal
			return m, nil
		}
		return m, m.removeTask(task.ID)
	default:
		m.mode = ModeNormal
		return m, nil
	}
}

func (m *Model) handleHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Quit) {
		m.mode = ModeNormal
	}
	return m, nil
}
