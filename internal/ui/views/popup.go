package views

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PopupRenderer handles popup/modal rendering
type PopupRenderer struct {
	styles *Styles
}

// NewPopupRenderer creates a new popup renderer
func NewPopupRenderer(styles *Styles) *PopupRenderer {
	return &PopupRenderer{
		styles: styles,
	}
}

// RenderPopupOverlay centers the popup over a dimmed copy of the main content
func (pr *PopupRenderer) RenderPopupOverlay(mainContent, popupContent string, height, width int, popupStyle lipgloss.Style) string {
	styledPopup := popupStyle.Render(popupContent)
	if width <= 0 || height <= 0 {
		return styledPopup
	}

	modal := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, styledPopup)

	// Keep the dimmed background visible where the modal leaves blank rows
	base := strings.Split(desaturateANSI(mainContent), "\n")
	rows := strings.Split(modal, "\n")
	for i, row := range rows {
		if strings.TrimSpace(ansiRE.ReplaceAllString(row, "")) != "" || i >= len(base) {
			continue
		}
		rows[i] = base[i]
	}
	return strings.Join(rows, "\n")
}

// ANSI escape sequence regex to strip styles/colors
var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// desaturateANSI strips ANSI color/style codes and recolors text dim gray
func desaturateANSI(s string) string {
	lines := strings.Split(ansiRE.ReplaceAllString(s, ""), "\n")
	gray := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	for i, line := range lines {
		lines[i] = gray.Render(line)
	}
	return strings.Join(lines, "\n")
}

// StripANSI removes color codes, for tests and plain output
func StripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}
