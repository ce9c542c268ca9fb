package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Refresh    key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding

	// View switching
	ViewBoard    key.Binding
	ViewShopping key.Binding
	ViewActivity key.Binding

	// Household
	CycleMood key.Binding
	ClearMood key.Binding
	CheckIn   key.Binding
	Announce  key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Entry actions
	Toggle       key.Binding
	Add          key.Binding
	Edit         key.Binding
	Delete       key.Binding
	MoveUp       key.Binding
	MoveDown     key.Binding
	Priority     key.Binding
	QuantityUp   key.Binding
	QuantityDown key.Binding

	// Activity
	CycleLevel key.Binding

	// Prompt
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh now"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Switch pane"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Switch pane"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back to board"),
		),

		// View switching
		ViewBoard: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Board"),
		),
		ViewShopping: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Shopping"),
		),
		ViewActivity: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Activity log"),
		),

		// Household
		CycleMood: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Next mood"),
		),
		ClearMood: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "Clear mood"),
		),
		CheckIn: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Check in today"),
		),
		Announce: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New announcement"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		// Entry actions
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("Space", "Toggle done"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Rename"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "Delete"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "Move todo up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "Move todo down"),
		),
		Priority: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Cycle priority"),
		),
		QuantityUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "Quantity up"),
		),
		QuantityDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "Quantity down"),
		),

		// Activity
		CycleLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle level filter"),
		),

		// Prompt
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Navigation
		{k.ViewBoard, k.ViewShopping, k.ViewActivity, k.Tab, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom},
		// Entries
		{k.Toggle, k.Add, k.Edit, k.Delete, k.MoveUp, k.MoveDown, k.Priority},
		{k.QuantityUp, k.QuantityDown},
		// Household
		{k.CycleMood, k.ClearMood, k.CheckIn, k.Announce},
		// General
		{k.Refresh, k.CycleLevel, k.CycleTheme, k.Help, k.Quit},
	}
}
