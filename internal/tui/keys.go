package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/lox/horserace/internal/game"
)

type keyMap struct {
	Generate    key.Binding
	Start       key.Binding
	Pause       key.Binding
	Reset       key.Binding
	AutoAdvance key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "generate program"),
		),
		Start: key.NewBinding(
			key.WithKeys("s", " "),
			key.WithHelp("s/space", "start"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		AutoAdvance: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle auto-advance"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Generate, k.Start, k.Pause, k.Reset, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Generate, k.Start, k.Pause, k.Reset},
		{k.AutoAdvance, k.Help, k.Quit},
	}
}

// sync enables only the bindings whose command would do something, so the
// help line shows what is currently possible.
func (k *keyMap) sync(e *game.Engine) {
	k.Generate.SetEnabled(e.CanGenerate())
	k.Start.SetEnabled(e.CanStart() && !e.IsRacing())
	if e.IsPaused() {
		k.Start.SetHelp("s/space", "resume")
	} else {
		k.Start.SetHelp("s/space", "start")
	}
	k.Pause.SetEnabled(e.IsRacing())
}
