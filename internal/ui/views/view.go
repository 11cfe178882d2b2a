package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ViewState contains all the state needed for rendering
type ViewState struct {
	Width  int
	Height int

	Modes      []string
	ActiveMode int
	Status     string // status filter label
	Inputs     []string

	Loading     bool
	SpinnerView string
	Error       string
	Displayed   bool
	ResultCount int
	Table       string

	BackendState  string
	StatusMessage string
	FocusResults  bool
	HelpView      string

	ShowHelp    bool
	HelpContent string
	ShowDetail  bool
	Detail      string

	ReadyMarker bool
}

// Renderer handles all view rendering
type Renderer struct {
	styles      *Styles
	popupRender *PopupRenderer
}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	styles := NewStyles()
	return &Renderer{
		styles:      styles,
		popupRender: NewPopupRenderer(styles),
	}
}

// Styles exposes the renderer's styles
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Render produces the complete view
func (r *Renderer) Render(state ViewState) string {
	content := &strings.Builder{}

	content.WriteString(r.renderTitleLine(state))
	content.WriteString("\n\n")
	content.WriteString(r.renderModes(state))
	content.WriteString("\n")
	content.WriteString(r.renderForm(state))
	content.WriteString("\n\n")

	if state.Error != "" {
		content.WriteString(r.styles.ErrorBanner.Render(
			state.Error + "  " + r.styles.Dim.Render("ctrl+r retry")))
		content.WriteString("\n")
	}

	switch {
	case state.Loading:
		content.WriteString(r.styles.Spinner.Render(state.SpinnerView) + " Searching...")
	case state.Displayed && state.ResultCount == 0:
		content.WriteString(r.styles.Dim.Render("No permits found"))
	case state.Displayed:
		content.WriteString(state.Table)
		content.WriteString("\n")
		count := fmt.Sprintf("%d permits", state.ResultCount)
		if !state.FocusResults {
			count += " · esc to browse"
		}
		content.WriteString(r.styles.Dim.Render(count))
	case state.Error == "":
		content.WriteString(r.styles.Dim.Render("Enter a search and press enter. An empty search lists all permits."))
	}

	footer := r.renderFooter(state)
	currentLines := strings.Count(content.String(), "\n") + 1
	footerLines := strings.Count(footer, "\n") + 1
	availableLines := state.Height - 2
	if availableLines <= 0 {
		availableLines = 22
	}
	if pad := availableLines - currentLines - footerLines; pad > 0 {
		content.WriteString(strings.Repeat("\n", pad))
	}
	content.WriteString("\n")
	content.WriteString(footer)

	mainStyle := r.styles.Main
	if state.Height > 0 {
		mainStyle = mainStyle.MaxHeight(state.Height)
	}
	finalContent := mainStyle.Render(content.String())

	if state.ShowDetail && state.Detail != "" {
		return r.popupRender.RenderPopupOverlay(finalContent, state.Detail, state.Height, state.Width, r.styles.InfoBox)
	}
	if state.ShowHelp {
		return r.popupRender.RenderPopupOverlay(finalContent, state.HelpContent, state.Height, state.Width, r.styles.InfoBox)
	}
	return finalContent
}

// renderTitleLine puts the title on the left and the backend state on the right
func (r *Renderer) renderTitleLine(state ViewState) string {
	logo := r.styles.Title.Render("Food Facility Permits")
	right := r.styles.Dim.Render(state.BackendState)
	if state.ReadyMarker {
		right += " __READY__"
	}

	termWidth := state.Width
	if termWidth <= 0 {
		termWidth = 80
	}
	padding := termWidth - 4 - lipgloss.Width(logo) - lipgloss.Width(right)
	if padding < 2 {
		padding = 2
	}
	return logo + strings.Repeat(" ", padding) + right
}

func (r *Renderer) renderModes(state ViewState) string {
	parts := make([]string, 0, len(state.Modes)+1)
	for i, m := range state.Modes {
		if i == state.ActiveMode {
			parts = append(parts, r.styles.ModeActive.Render(m))
		} else {
			parts = append(parts, r.styles.ModeInactive.Render(m))
		}
	}
	parts = append(parts, r.styles.Filter.Render("["+state.Status+"]"))
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (r *Renderer) renderForm(state ViewState) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(state.Inputs, "   "))
}

func (r *Renderer) renderFooter(state ViewState) string {
	lines := []string{}
	if state.StatusMessage != "" {
		lines = append(lines, r.styles.Status.Render(state.StatusMessage))
	}
	if state.HelpView != "" {
		lines = append(lines, state.HelpView)
	}
	return strings.Join(lines, "\n")
}

// RenderHelpContent renders the full key reference shown by ?
func (r *Renderer) RenderHelpContent(sections []HelpSection) string {
	var help strings.Builder
	help.WriteString(r.styles.Title.Render("Permit Search Help"))
	help.WriteString("\n")

	for _, section := range sections {
		help.WriteString(r.styles.Section.Render(section.Title))
		help.WriteString("\n")
		for _, entry := range section.Entries {
			fmt.Fprintf(&help, "  %s  %s\n", r.styles.Key.Render(fmt.Sprintf("%-10s", entry.Key)), entry.Desc)
		}
	}
	return strings.TrimRight(help.String(), "\n")
}

// HelpSection is a titled group of key descriptions
type HelpSection struct {
	Title   string
	Entries []HelpEntry
}

// HelpEntry describes one key
type HelpEntry struct {
	Key  string
	Desc string
}
