package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/strikesense/internal/session"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewPresets
	viewHistory
	viewSettings
)

var viewNames = []string{"Timer", "Presets", "History", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

// loadSessionMsg asks the app to put cfg on the timer. presetID is nil for
// a custom session.
type loadSessionMsg struct {
	cfg      session.Config
	presetID *int64
	name     string
}

type exportDoneMsg struct {
	path string
}

// frameMsg drives the progress bar spring.
type frameMsg time.Time

// --- Helpers ---

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isError: isError}
	}
}

func errorCmd(format string, err error) tea.Cmd {
	return statusCmd(fmt.Sprintf(format, err), true)
}

// formatClock renders d as MM:SS, or H:MM:SS past an hour. Partial seconds
// round up so a countdown shows 00:01 until it actually reaches zero.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func formatMinutes(secs int64) string {
	return fmt.Sprintf("%.1fm", float64(secs)/60)
}
