package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	moveUp   key.Binding
	moveDown key.Binding
	add      key.Binding
	remove   key.Binding
	upload   key.Binding
	download key.Binding
	cancel   key.Binding
	focus    key.Binding
	drop     key.Binding
	back     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		moveUp:   key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("K", "move up")),
		moveDown: key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("J", "move down")),
		add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add files")),
		remove:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		upload:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "merge")),
		download: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		cancel:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel")),
		focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
		drop:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.add, k.upload, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.moveUp, k.moveDown},
		{k.add, k.remove, k.upload},
		{k.download, k.cancel, k.quit},
	}
}
