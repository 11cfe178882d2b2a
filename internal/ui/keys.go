package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds every binding the panel reacts to
type keyMap struct {
	Submit     key.Binding
	NextMode   key.Binding
	NextField  key.Binding
	NextStatus key.Binding
	Retry      key.Binding
	Focus      key.Binding
	Details    key.Binding
	BackendLog key.Binding
	RawJSON    key.Binding
	Help       key.Binding
	Close      key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		NextMode:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "mode")),
		NextField:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "lat/lon")),
		NextStatus: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "status")),
		Retry:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
		Focus:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "form/results")),
		Details:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		BackendLog: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "backend log")),
		RawJSON:    key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "raw json")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Close:      key.NewBinding(key.WithKeys("esc", "q", "?"), key.WithHelp("esc", "close")),
		Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// formKeys is the short help while typing
type formKeys struct{ k keyMap }

func (f formKeys) ShortHelp() []key.Binding {
	return []key.Binding{f.k.Submit, f.k.NextMode, f.k.NextStatus, f.k.Focus, f.k.BackendLog, f.k.ForceQuit}
}

func (f formKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{f.ShortHelp()}
}

// resultKeys is the short help while browsing results
type resultKeys struct{ k keyMap }

func (r resultKeys) ShortHelp() []key.Binding {
	return []key.Binding{r.k.Details, r.k.Focus, r.k.RawJSON, r.k.Help, r.k.Quit}
}

func (r resultKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{r.ShortHelp()}
}
