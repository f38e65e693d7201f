package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/joe/hosts-sync/internal/tui/shared"
)

// keyMap binds the dashboard actions.
type keyMap struct {
	Toggle    key.Binding
	Update    key.Binding
	Sync      key.Binding
	EnableAll key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle blocking"),
		),
		Update: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "check sources"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sync"),
		),
		EnableAll: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "enable all sources"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", shared.KeyCtrlC),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Sync, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Update, k.Sync, k.EnableAll},
		{k.Help, k.Quit},
	}
}
