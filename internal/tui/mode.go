// Package tui provides the live sprint board for sprintcrew.
package tui

// Mode represents the current UI mode.
type Mode int

const (
	ModeNormal  Mode = iota // Default navigation mode
	ModeStatus              // Status picker for the selected task
	ModeConfirm             // Confirm removing the selected task from the sprint
	ModeHelp                // Help overlay mode
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeStatus:
		return "status"
	case ModeConfirm:
		return "confirm"
	case ModeHelp:
		return "help"
	default:
		return "unknown"
	}
}
