package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Toggle      key.Binding
	Filter      key.Binding
	SmartExpand key.Binding
	CollapseAll key.Binding
	Grab        key.Binding
	Detail      key.Binding
	Refresh     key.Binding
	Back        key.Binding
	Cancel      key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+u")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+d")),
		Top:         key.NewBinding(key.WithKeys("g", "home")),
		Bottom:      key.NewBinding(key.WithKeys("G", "end")),
		Toggle:      key.NewBinding(key.WithKeys(" ", "space", "enter"), key.WithHelp("space", "expand/collapse")),
		Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		SmartExpand: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "smart expand")),
		CollapseAll: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "collapse all")),
		Grab:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move")),
		Detail:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "details")),
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Back:        key.NewBinding(key.WithKeys("b", "backspace"), key.WithHelp("b", "projects")),
		Cancel:      key.NewBinding(key.WithKeys("esc")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) treeHelp() []key.Binding {
	return []key.Binding{k.Down, k.Toggle, k.Filter, k.SmartExpand, k.CollapseAll, k.Grab, k.Detail, k.Back, k.Quit}
}
