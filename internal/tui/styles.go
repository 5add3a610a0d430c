package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/wolfman30/raven-widget/internal/widget"
)

type styles struct {
	header     lipgloss.Style
	status     lipgloss.Style
	statusLive lipgloss.Style
	user       lipgloss.Style
	assistant  lipgloss.Style
	errorMsg   lipgloss.Style
	away       lipgloss.Style
	warning    lipgloss.Style
	receipt    lipgloss.Style
	chip       lipgloss.Style
	chipActive lipgloss.Style
	alert      lipgloss.Style
	overlay    lipgloss.Style
	help       lipgloss.Style
	launcher   lipgloss.Style
}

func newStyles(theme widget.Theme) styles {
	primary := lipgloss.Color(theme.Primary)
	dark := lipgloss.Color(theme.PrimaryDark)
	return styles{
		header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(primary).Padding(0, 1),
		status:     lipgloss.NewStyle().Foreground(lipgloss.Color("#34C759")),
		statusLive: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF9500")),
		user:       lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(dark).Padding(0, 1),
		assistant:  lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.RoundedBorder()).BorderForeground(primary),
		errorMsg:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Padding(0, 1),
		away:       lipgloss.NewStyle().Foreground(lipgloss.Color("#92400e")).Background(lipgloss.Color("#fef3c7")).Padding(0, 1),
		warning:    lipgloss.NewStyle().Foreground(lipgloss.Color("#856404")).Background(lipgloss.Color("#FFF3CD")).Padding(0, 1),
		receipt:    lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true),
		chip:       lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.RoundedBorder()).BorderForeground(primary),
		chipActive: lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.RoundedBorder()).BorderForeground(primary).Background(primary).Foreground(lipgloss.Color("#FFFFFF")),
		alert:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#ef4444")).Padding(0, 1),
		overlay:    lipgloss.NewStyle().BorderStyle(lipgloss.DoubleBorder()).BorderForeground(primary).Padding(1, 2),
		help:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		launcher:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(primary).Padding(0, 2),
	}
}
