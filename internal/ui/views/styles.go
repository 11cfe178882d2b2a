package views

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the style definitions for the UI
type Styles struct {
	Title        lipgloss.Style
	Dim          lipgloss.Style
	Label        lipgloss.Style
	ModeActive   lipgloss.Style
	ModeInactive lipgloss.Style
	Filter       lipgloss.Style
	Status       lipgloss.Style
	ErrorBanner  lipgloss.Style
	Spinner      lipgloss.Style
	InfoBox      lipgloss.Style
	Main         lipgloss.Style
	Key          lipgloss.Style
	Section      lipgloss.Style

	StatusApproved lipgloss.Style
	StatusExpired  lipgloss.Style
	StatusOther    lipgloss.Style
}

// NewStyles creates a new Styles instance with default values
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")),
		Dim:          lipgloss.NewStyle().Faint(true),
		Label:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		ModeActive:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("99")).Padding(0, 1),
		ModeInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1),
		Filter:       lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // yellow
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		ErrorBanner: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("203")).
			Foreground(lipgloss.Color("203")).
			Padding(0, 1),
		Spinner: lipgloss.NewStyle().Foreground(lipgloss.Color("99")),
		InfoBox: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(1).
			Width(64).
			BorderForeground(lipgloss.Color("241")),
		Main: lipgloss.NewStyle().
			Padding(1, 2),
		Key:     lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		Section: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginTop(1),

		StatusApproved: lipgloss.NewStyle().Foreground(lipgloss.Color("78")),  // green
		StatusExpired:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")), // red
		StatusOther:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // yellow
	}
}

// PermitStatusStyle picks the color for a permit status
func (s *Styles) PermitStatusStyle(status string) lipgloss.Style {
	switch status {
	case "APPROVED":
		return s.StatusApproved
	case "EXPIRED", "REVOKED", "SUSPEND":
		return s.StatusExpired
	default:
		return s.StatusOther
	}
}
