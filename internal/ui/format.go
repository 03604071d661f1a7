package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/erik777/runkod-cli/apiclients/runkod"
)

var (
	boldStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Bold(true).Width(12)
	faintStyle = lipgloss.NewStyle().Faint(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Separator is printed after a project summary.
var Separator = faintStyle.Render(strings.Repeat("─", 48))

// Bold renders s in bold.
func Bold(s string) string {
	return boldStyle.Render(s)
}

// ProjectName is the display name of a project, falling back to its id.
func ProjectName(p runkod.Project) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// ProjectSummary describes a project over several labelled lines.
func ProjectSummary(p runkod.Project) string {
	active := faintStyle.Render("none")
	if p.ActiveDeploymentID != "" {
		active = okStyle.Render(p.ActiveDeploymentID)
	}
	lines := []string{
		labelStyle.Render("Project") + boldStyle.Render(ProjectName(p)),
		labelStyle.Render("ID") + p.ID,
	}
	if p.Domain != "" {
		lines = append(lines, labelStyle.Render("Address")+"https://"+p.Domain)
	}
	lines = append(lines, labelStyle.Render("Active")+active)
	if !p.CreatedAt.IsZero() {
		lines = append(lines, labelStyle.Render("Created")+humanize.Time(p.CreatedAt))
	}
	return strings.Join(lines, "\n")
}

// ProjectTable renders projects as a table.
func ProjectTable(projects []runkod.Project) string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		active := p.ActiveDeploymentID
		if active == "" {
			active = "-"
		}
		rows = append(rows, []string{p.ID, ProjectName(p), p.Domain, active})
	}
	return Table([]string{"ID", "NAME", "DOMAIN", "ACTIVE"}, rows)
}

// Table renders rows under headers with a rounded border.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(faintStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return boldStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

// Bytes formats a byte count for people.
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Ago formats a time relative to now.
func Ago(t time.Time) string {
	return humanize.Time(t)
}
