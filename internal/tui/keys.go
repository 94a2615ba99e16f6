package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the board.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding

	// Actions
	Status  key.Binding // Open the status picker
	Advance key.Binding // Move the task to the next status
	Remove  key.Binding // Remove the task from the sprint
	Recalc  key.Binding // Recompute sprint progress

	// View
	Refresh key.Binding
	Help    key.Binding

	// General
	Quit    key.Binding
	Escape  key.Binding
	Confirm key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Status: key.NewBinding(
			key.WithKeys("enter", "e"),
			key.WithHelp("enter", "set status"),
		),
		Advance: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "next status"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove from sprint"),
		),
		Recalc: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "recalculate"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Status, k.Advance, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Status, k.Advance, k.Remove, k.Recalc},
		{k.Refresh, k.Help, k.Escape, k.Quit},
	}
}
