package keys

import "github.com/charmbracelet/bubbles/key"

// Common key bindings used across TUI commands
type CommonKeys struct {
	Quit key.Binding
	Help key.Binding
}

func NewCommonKeys() CommonKeys {
	return CommonKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// MonitorKeys are the bindings of the universe monitor
type MonitorKeys struct {
	CommonKeys
	Blackout  key.Binding
	ToggleHex key.Binding
	Freeze    key.Binding
}

func NewMonitorKeys() MonitorKeys {
	return MonitorKeys{
		CommonKeys: NewCommonKeys(),
		Blackout: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "toggle blackout"),
		),
		ToggleHex: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "toggle hex"),
		),
		Freeze: key.NewBinding(
			key.WithKeys("f", " "),
			key.WithHelp("f/space", "freeze display"),
		),
	}
}

func (k MonitorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Blackout, k.ToggleHex, k.Quit}
}

func (k MonitorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Blackout, k.ToggleHex, k.Freeze},
		{k.Help, k.Quit},
	}
}
