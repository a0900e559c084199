package keys

import "github.com/charmbracelet/bubbles/key"

// WatchKeys are the bindings of the watch view
type WatchKeys struct {
	Quit    key.Binding
	Help    key.Binding
	Refresh key.Binding
	Scope   key.Binding
}

func NewWatchKeys() WatchKeys {
	return WatchKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh now"),
		),
		Scope: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "all/links/physical"),
		),
	}
}

func (k WatchKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Refresh, k.Scope, k.Quit}
}

func (k WatchKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Refresh, k.Scope},
		{k.Help, k.Quit},
	}
}
