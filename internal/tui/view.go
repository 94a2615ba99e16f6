package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/sprintcrew/internal/domain"
)

// View renders the model.
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch m.mode {
	case ModeHelp:
		content = m.viewHelp()
	case ModeNormal, ModeStatus, ModeConfirm:
		content = m.viewMain()
	}

	return m.styles.App.Render(content)
}

func (m *Model) viewMain() string {
	var b strings.Builder

	b.WriteString(m.viewHeader())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(m.styles.ErrorMsg.Render("Error: "+m.err.Error()) + "\n\n")
	}
	if m.notice != "" {
		b.WriteString(m.styles.Notice.Render(m.notice) + "\n\n")
	}

	if m.sprint != nil {
		b.WriteString(m.viewProgress())
		b.WriteString("\n\n")
		b.WriteString(m.viewTaskList())
	}

	switch m.mode {
	case ModeNormal, ModeHelp:
	case ModeStatus:
		b.WriteString("\n")
		b.WriteString(m.viewStatusPicker())
	case ModeConfirm:
		b.WriteString("\n")
		b.WriteString(m.viewConfirmDialog())
	}

	b.WriteString("\n")
	b.WriteString(m.viewFooter())

	return b.String()
}

// viewHeader renders the sprint name on the left and its status on the right.
func (m *Model) viewHeader() string {
	if m.sprint == nil {
		return m.styles.Header.Render(m.styles.HeaderText.Render("Sprint " + m.sprintID))
	}

	title := m.styles.HeaderText.Render(m.sprint.Name)
	if m.project != nil {
		title += m.styles.Meta.Render("  " + m.project.Name)
	}
	right := SprintStatusStyle(m.sprint.Status).Render(m.sprint.Status.Display())

	headerWidth := max(m.width-6, 40)
	spacing := max(headerWidth-lipgloss.Width(title)-lipgloss.Width(right), 1)

	return m.styles.Header.Render(title + strings.Repeat(" ", spacing) + right)
}

// viewProgress renders the progress bar with the done/total summary.
func (m *Model) viewProgress() string {
	pct := m.sprint.Progress
	bar := m.progress.ViewAs(float64(pct) / 100)
	summary := fmt.Sprintf(" %3d%%  %d/%d done", pct, m.doneCount(), len(m.tasks))

	var dates string
	if m.sprint.StartDate != nil || m.sprint.EndDate != nil {
		dates = "\n" + m.styles.Meta.Render(fmt.Sprintf("%s .. %s", formatDate(m.sprint.StartDate), formatDate(m.sprint.EndDate)))
	}
	return bar + m.styles.Meta.Render(summary) + dates
}

func (m *Model) viewTaskList() string {
	if len(m.tasks) == 0 {
		return m.styles.Meta.Render("No tasks in this sprint. Add one with 'sprintcrew sprint add'.")
	}

	var b strings.Builder
	for i, t := range m.tasks {
		b.WriteString(m.renderTaskRow(t, i == m.cursor))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m *Model) renderTaskRow(t *domain.Task, selected bool) string {
	cursor := "  "
	title := m.styles.TaskNormal.Render(t.Title)
	if selected {
		cursor = m.styles.Cursor.Render("> ")
		title = m.styles.TaskSelected.Render(t.Title)
	} else if m.project != nil && m.project.IsDone(t.Status) {
		title = m.styles.TaskDone.Render(t.Title)
	}

	status := m.styles.StatusBadge.Render(t.Status)
	id := m.styles.TaskID.Render(shortID(t.ID))

	row := cursor + status + " " + title + "  " + id
	if t.AssigneeID != "" {
		row += m.styles.Meta.Render(" @" + t.AssigneeID)
	}
	return row
}

func (m *Model) viewStatusPicker() string {
	task := m.SelectedTask()
	if task == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.DialogTitle.Render("Status of "+task.Title) + "\n")
	for i, s := range m.statuses() {
		prefix := "  "
		if i == m.statusCursor {
			prefix = m.styles.Cursor.Render("> ")
		}
		line := prefix + s
		if s == task.Status {
			line += m.styles.PickerCurrent.Render(" (current)")
		}
		if m.project.IsDone(s) {
			line += m.styles.PickerCurrent.Render(" (done)")
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(m.styles.Meta.Render("enter apply · esc cancel"))
	return m.styles.Dialog.Render(b.String())
}

func (m *Model) viewConfirmDialog() string {
	task := m.SelectedTask()
	if task == nil {
		return ""
	}
	body := fmt.Sprintf("Remove %q from the sprint?\n", task.Title) +
		m.styles.Meta.Render("y confirm · any other key cancel")
	return m.styles.Dialog.Render(body)
}

func (m *Model) viewFooter() string {
	if m.mode != ModeNormal {
		return ""
	}
	return m.styles.Footer.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *Model) viewHelp() string {
	title := m.styles.HeaderText.Render("KEYBOARD SHORTCUTS")
	return title + "\n\n" + m.help.FullHelpView(m.keys.FullHelp()) + "\n\n" +
		m.styles.Meta.Render("esc or ? to close")
}

// shortID returns the first eight characters of a UUID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
