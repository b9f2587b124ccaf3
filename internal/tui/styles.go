package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary   = lipgloss.Color("#6C63FF")
	colorWork      = lipgloss.Color("#2ECC71")
	colorRest      = lipgloss.Color("#2EC4B6")
	colorWarning   = lipgloss.Color("#F39C12")
	colorCountdown = lipgloss.Color("#E74C3C")
	colorMuted     = lipgloss.Color("#666666")
	colorFg        = lipgloss.Color("#C0CAF5")
	colorSubtle    = lipgloss.Color("#414868")
	colorHighlight = lipgloss.Color("#7AA2F7")
)

// Styles
var (
	// Tabs
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorPrimary).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 2)

	// Panels
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Padding(1, 2)

	// Clock, one style per phase of a period
	clockIdleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Align(lipgloss.Center)

	clockWorkStyle = clockIdleStyle.Foreground(colorWork)

	clockRestStyle = clockIdleStyle.Foreground(colorRest)

	clockWarningStyle = clockIdleStyle.Foreground(colorWarning)

	clockCountdownStyle = clockIdleStyle.Foreground(colorCountdown)

	clockPausedStyle = clockIdleStyle.Foreground(colorMuted)

	// Round dots
	dotDoneStyle    = lipgloss.NewStyle().Foreground(colorWork)
	dotCurrentStyle = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
	dotPendingStyle = lipgloss.NewStyle().Foreground(colorSubtle)

	// Text
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	workStyle = lipgloss.NewStyle().
			Foreground(colorWork)

	restStyle = lipgloss.NewStyle().
			Foreground(colorRest)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorCountdown)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	highlightStyle = lipgloss.NewStyle().
			Foreground(colorHighlight)

	// Header/footer
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	// List items
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	normalItemStyle = lipgloss.NewStyle().
			Foreground(colorFg)
)
