package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vango-dev/resize/pkg/reconcile"
)

var (
	accent = lipgloss.Color("#5A46E0")

	docStyle   = lipgloss.NewStyle().Margin(1, 2)
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(accent).
			Padding(0, 1)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Faint(true)

	badgeStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true)
)

// badgeColors maps an indicator tone to its badge background.
var badgeColors = map[reconcile.Tone]lipgloss.Color{
	reconcile.ToneDefault: lipgloss.Color("240"),
	reconcile.TonePrimary: lipgloss.Color("39"),
	reconcile.ToneWarning: lipgloss.Color("220"),
	reconcile.ToneDanger:  lipgloss.Color("196"),
}

// badge renders an indicator label. Nominal phases are green regardless of
// tone.
func badge(state reconcile.UIState) string {
	bg := badgeColors[state.Tone]
	if state.Severity == reconcile.SeverityNominal {
		bg = lipgloss.Color("46")
	}
	label := state.Label
	if label == "" {
		label = "unknown"
	}
	return badgeStyle.
		Foreground(lipgloss.Color("#000000")).
		Background(bg).
		Render(label)
}
