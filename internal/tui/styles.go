package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/sprintcrew/internal/domain"
)

// Colors defines the color palette for the board.
var Colors = struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Error     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color

	TitleNormal   lipgloss.Color
	TitleSelected lipgloss.Color

	// Sprint status colors
	Planning  lipgloss.Color
	Active    lipgloss.Color
	Completed lipgloss.Color
	Cancelled lipgloss.Color
}{
	Primary:   lipgloss.Color("#6C5CE7"), // Purple
	Secondary: lipgloss.Color("#A29BFE"), // Lavender
	Muted:     lipgloss.Color("#636E72"), // Gray
	Error:     lipgloss.Color("#D63031"), // Red
	Success:   lipgloss.Color("#00B894"), // Green
	Warning:   lipgloss.Color("#FDCB6E"), // Yellow

	TitleNormal:   lipgloss.Color("#DFE6E9"),
	TitleSelected: lipgloss.Color("#FFEAA7"),

	Planning:  lipgloss.Color("#74B9FF"),
	Active:    lipgloss.Color("#FDCB6E"),
	Completed: lipgloss.Color("#00B894"),
	Cancelled: lipgloss.Color("#636E72"),
}

// Styles contains all the lipgloss styles for the board.
type Styles struct {
	App        lipgloss.Style
	Header     lipgloss.Style
	HeaderText lipgloss.Style
	Meta       lipgloss.Style

	TaskNormal    lipgloss.Style
	TaskSelected  lipgloss.Style
	TaskID        lipgloss.Style
	TaskDone      lipgloss.Style
	StatusBadge   lipgloss.Style
	Cursor        lipgloss.Style
	Dialog        lipgloss.Style
	DialogTitle   lipgloss.Style
	PickerCurrent lipgloss.Style

	Footer   lipgloss.Style
	ErrorMsg lipgloss.Style
	Notice   lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		App: lipgloss.NewStyle().Padding(1, 2),
		Header: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Colors.Muted).
			MarginBottom(1),
		HeaderText: lipgloss.NewStyle().Bold(true).Foreground(Colors.Primary),
		Meta:       lipgloss.NewStyle().Foreground(Colors.Muted),

		TaskNormal:    lipgloss.NewStyle().Foreground(Colors.TitleNormal),
		TaskSelected:  lipgloss.NewStyle().Bold(true).Foreground(Colors.TitleSelected),
		TaskID:        lipgloss.NewStyle().Foreground(Colors.Muted),
		TaskDone:      lipgloss.NewStyle().Foreground(Colors.Success).Strikethrough(true),
		StatusBadge:   lipgloss.NewStyle().Foreground(Colors.Secondary).Width(10),
		Cursor:        lipgloss.NewStyle().Foreground(Colors.Primary).Bold(true),
		Dialog:        lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Colors.Primary).Padding(0, 1),
		DialogTitle:   lipgloss.NewStyle().Bold(true).Foreground(Colors.Primary),
		PickerCurrent: lipgloss.NewStyle().Foreground(Colors.Muted).Italic(true),

		Footer:   lipgloss.NewStyle().Foreground(Colors.Muted).MarginTop(1),
		ErrorMsg: lipgloss.NewStyle().Foreground(Colors.Error).Bold(true),
		Notice:   lipgloss.NewStyle().Foreground(Colors.Warning),
	}
}

// SprintStatusStyle returns the style for a sprint status label.
func SprintStatusStyle(s domain.SprintStatus) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case domain.SprintPlanning:
		return base.Foreground(Colors.Planning)
	case domain.SprintActive:
		return base.Foreground(Colors.Active)
	case domain.SprintCompleted:
		return base.Foreground(Colors.Completed)
	case domain.SprintCancelled:
		return base.Foreground(Colors.Cancelled)
	}
	return base
}
