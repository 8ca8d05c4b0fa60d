package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings of the main view.
type keyMap struct {
	Quit            key.Binding
	Help            key.Binding
	SwitchDim       key.Binding
	SwitchView      key.Binding
	Search          key.Binding
	ToggleMode      key.Binding
	Clear           key.Binding
	Up              key.Binding
	Down            key.Binding
	Left            key.Binding
	Right           key.Binding
	Top             key.Binding
	Bottom          key.Binding
	PageUp          key.Binding
	PageDown        key.Binding
	Expand          key.Binding
	ExpandAll       key.Binding
	CollapseAll     key.Binding
	Select          key.Binding
	Summary         key.Binding
	Copy            key.Binding
	PickScenario    key.Binding
	PickPanel       key.Binding
	PickRule        key.Binding
	ClearPanel      key.Binding
	NewChat         key.Binding
	SwitchWorkspace key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:            key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:            key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		SwitchDim:       key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "products/locations")),
		SwitchView:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "tree/groups")),
		Search:          key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		ToggleMode:      key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "filter/expand")),
		Clear:           key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Up:              key.NewBinding(key.WithKeys("k", "up")),
		Down:            key.NewBinding(key.WithKeys("j", "down")),
		Left:            key.NewBinding(key.WithKeys("h", "left")),
		Right:           key.NewBinding(key.WithKeys("l", "right")),
		Top:             key.NewBinding(key.WithKeys("g", "home")),
		Bottom:          key.NewBinding(key.WithKeys("G", "end")),
		PageUp:          key.NewBinding(key.WithKeys("ctrl+u", "pgup")),
		PageDown:        key.NewBinding(key.WithKeys("ctrl+d", "pgdown")),
		Expand:          key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand")),
		ExpandAll:       key.NewBinding(key.WithKeys("E")),
		CollapseAll:     key.NewBinding(key.WithKeys("C")),
		Select:          key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "select")),
		Summary:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "summary")),
		Copy:            key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy context")),
		PickScenario:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "scenario")),
		PickPanel:       key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "panel")),
		PickRule:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rule")),
		ClearPanel:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "unlock")),
		NewChat:         key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new chat")),
		SwitchWorkspace: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "workspaces")),
	}
}
