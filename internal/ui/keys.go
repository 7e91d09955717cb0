package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Account    key.Binding

	// View switching
	ViewMarket    key.Binding
	ViewHistory   key.Binding
	ViewSearch    key.Binding
	ViewCompanies key.Binding
	ViewProfile   key.Binding
	ViewLogs      key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Lists
	PrevPage   key.Binding
	NextPage   key.Binding
	Grow       key.Binding
	Shrink     key.Binding
	Refresh    key.Binding
	Edit       key.Binding
	Latest     key.Binding
	Export     key.Binding
	Adjust     key.Binding
	Source     key.Binding
	Password   key.Binding
	Avatar     key.Binding
	ToggleMode key.Binding

	// Logs
	ToggleFollow key.Binding
	Search       key.Binding
	NextMatch    key.Binding
	PrevMatch    key.Binding

	// Input
	Confirm   key.Binding
	NextField key.Binding
	PrevField key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "Quit")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "Toggle help")),
		CycleTheme: key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "Cycle theme")),
		Tab:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "Next view")),
		ShiftTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "Previous view")),
		Escape:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "Leave input / close")),
		Account:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "Sign in / sign out")),

		ViewMarket:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "Market")),
		ViewHistory:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "History")),
		ViewSearch:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "Search")),
		ViewCompanies: key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "Companies")),
		ViewProfile:   key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "Profile")),
		ViewLogs:      key.NewBinding(key.WithKeys("6"), key.WithHelp("6", "Logs")),

		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "Move up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "Move down")),
		Left:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/left", "Previous date")),
		Right:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/right", "Next date")),
		Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "Go to top")),
		Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "Go to bottom")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("ctrl+u", "Page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("ctrl+d", "Page down")),

		PrevPage:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "Previous page")),
		NextPage:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "Next page")),
		Grow:       key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "Larger pages")),
		Shrink:     key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "Smaller pages")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "Refresh")),
		Edit:       key.NewBinding(key.WithKeys("e", "i"), key.WithHelp("e", "Edit")),
		Latest:     key.NewBinding(key.WithKeys("."), key.WithHelp(".", "Latest date")),
		Export:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "Export PDF")),
		Adjust:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "Cycle adjust")),
		Source:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "Cycle source")),
		Password:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "Change password")),
		Avatar:     key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "Change avatar")),
		ToggleMode: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "Sign in / register")),

		ToggleFollow: key.NewBinding(key.WithKeys(" "), key.WithHelp("Space", "Toggle follow mode")),
		Search:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "Search")),
		NextMatch:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "Next match")),
		PrevMatch:    key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "Previous match")),

		Confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "Confirm")),
		NextField: key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "Next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "Previous field")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ViewMarket, k.ViewHistory, k.ViewSearch, k.ViewCompanies, k.ViewProfile, k.ViewLogs, k.Tab},
		{k.Up, k.Down, k.Left, k.Right, k.Top, k.Bottom},
		{k.PrevPage, k.NextPage, k.Grow, k.Shrink, k.Refresh},
		{k.Edit, k.Export, k.Adjust, k.Source, k.Latest},
		{k.ToggleFollow, k.Search, k.NextMatch, k.PrevMatch},
		{k.Account, k.CycleTheme, k.Help, k.Quit},
	}
}
