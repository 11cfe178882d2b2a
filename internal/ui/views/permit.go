package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"permitdesk/internal/domain"
)

// PermitColumns sizes the results table to width
func PermitColumns(width int) []table.Column {
	if width <= 0 {
		width = 100
	}
	statusW := 10
	rest := width - statusW - 10
	if rest < 30 {
		rest = 30
	}
	applicantW := rest * 45 / 100
	return []table.Column{
		{Title: "Applicant", Width: applicantW},
		{Title: "Address", Width: rest - applicantW},
		{Title: "Status", Width: statusW},
	}
}

// PermitRows converts permits into table rows
func PermitRows(permits []domain.Permit) []table.Row {
	rows := make([]table.Row, 0, len(permits))
	for _, p := range permits {
		rows = append(rows, table.Row{p.Applicant, p.Address, p.Status})
	}
	return rows
}

// RenderPermitDetail renders every known field of a permit for the detail popup
func (r *Renderer) RenderPermitDetail(p domain.Permit) string {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render(p.Applicant))
	b.WriteString("\n\n")

	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s %s\n", r.styles.Label.Render(fmt.Sprintf("%-10s", label)), value)
	}
	field("Address", p.Address)
	if p.Status != "" {
		field("Status", r.styles.PermitStatusStyle(p.Status).Render(p.Status))
	}
	field("Type", p.FacilityType)
	field("Location", p.LocationDescription)
	field("Food", p.FoodItems)
	field("Expires", p.ExpirationDate)
	if p.HasLocation() {
		field("Coords", fmt.Sprintf("%.6f, %.6f", *p.Latitude, *p.Longitude))
	}

	b.WriteString("\n")
	b.WriteString(r.styles.Dim.Render("esc to close"))
	return b.String()
}
