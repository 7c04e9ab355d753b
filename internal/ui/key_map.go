package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	abort key.Binding
	help  key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		abort: key.NewBinding(key.WithKeys("a", "ctrl+c"), key.WithHelp("a", "abort upload")),
		help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:  key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.abort, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.abort, k.help},
		{k.quit},
	}
}
