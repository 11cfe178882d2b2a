package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noborus/ov/oviewer"

	"permitdesk/internal/ui/views"
)

// helpSections lists the keys shown in the help popup
var helpSections = []views.HelpSection{
	{Title: "Search", Entries: []views.HelpEntry{
		{Key: "enter", Desc: "Run the search (empty query lists all permits)"},
		{Key: "tab", Desc: "Cycle mode: name, address, nearby"},
		{Key: "shift+tab", Desc: "Switch between latitude and longitude"},
		{Key: "ctrl+s", Desc: "Cycle status filter: all, approved, expired"},
		{Key: "ctrl+r", Desc: "Retry after an error (lists all permits)"},
	}},
	{Title: "Results", Entries: []views.HelpEntry{
		{Key: "esc", Desc: "Move between the form and the results"},
		{Key: "↑/↓", Desc: "Move through results"},
		{Key: "enter", Desc: "Show permit details"},
		{Key: "ctrl+o", Desc: "View the raw response in a pager"},
	}},
	{Title: "Other", Entries: []views.HelpEntry{
		{Key: "ctrl+l", Desc: "View backend output in a pager"},
		{Key: "?", Desc: "Toggle this help"},
		{Key: "q", Desc: "Quit (from results)"},
		{Key: "ctrl+c", Desc: "Quit"},
	}},
}

// Pager shows long text full screen
type Pager interface {
	Show(content string) error
}

// ovPager runs ov while the program has released the terminal
type ovPager struct {
	program *tea.Program
}

// Show releases the terminal, runs ov over content and restores the terminal
func (p *ovPager) Show(content string) error {
	if p.program == nil {
		return fmt.Errorf("program not set")
	}

	if err := p.program.ReleaseTerminal(); err != nil {
		return err
	}
	defer func() {
		// Small delay to ensure ov has fully exited before restoring terminal
		time.Sleep(100 * time.Millisecond)
		_ = p.program.RestoreTerminal()
	}()

	root, err := oviewer.NewRoot(strings.NewReader(content))
	if err != nil {
		return err
	}

	// Don't write the buffer back to the screen on exit
	config := oviewer.NewConfig()
	config.IsWriteOnExit = false
	config.IsWriteOriginal = false
	root.SetConfig(config)

	return root.Run()
}
