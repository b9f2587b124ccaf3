package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/strikesense/internal/store"
	"github.com/sadopc/strikesense/internal/timer"
)

const (
	frameRate = 30
	// Past this many rounds the dots are replaced by a counter.
	maxRoundDots = 40
)

// dashboardModel is the timer view: the running session on top, today's
// totals and recent sessions below.
type dashboardModel struct {
	store  *store.Store
	timer  timerModel
	width  int
	height int

	todayTotal int64
	recent     []store.Session

	// banner names the last period boundary, e.g. "Round 2 · rest".
	banner string

	bar       progress.Model
	spring    harmonica.Spring
	barPos    float64
	barVel    float64
	animating bool
}

func newDashboardModel(opts Options) dashboardModel {
	return dashboardModel{
		store:  opts.Store,
		timer:  newTimerModel(opts),
		bar:    progress.New(progress.WithGradient("#2EC4B6", "#2ECC71"), progress.WithoutPercentage()),
		spring: harmonica.NewSpring(harmonica.FPS(frameRate), 6.0, 1.0),
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return tea.Batch(d.loadData(), d.timer.bridge.waitForEvent())
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
	d.bar.Width = max(10, w-12)
}

type dashboardDataMsg struct {
	todayTotal int64
	recent     []store.Session
}

func (d dashboardModel) loadData() tea.Cmd {
	if d.store == nil {
		return nil
	}
	return func() tea.Msg {
		total, _ := d.store.GetTodayTotal()
		recent, _ := d.store.ListSessions(store.SessionFilter{Limit: 5})
		return dashboardDataMsg{todayTotal: total, recent: recent}
	}
}

func frameCmd() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.todayTotal = msg.todayTotal
		d.recent = msg.recent
		return d, nil

	case engineEventsMsg:
		return d.handleEvents(msg.events)

	case frameMsg:
		return d, d.stepBar()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Toggle):
			if err := d.timer.toggle(); err != nil {
				return d, errorCmd("Timer error: %v", err)
			}
		case key.Matches(msg, keys.Stop):
			d.timer.stop()
		case key.Matches(msg, keys.Reset):
			d.timer.reset()
			d.banner = ""
		case key.Matches(msg, keys.Skip):
			d.timer.skip()
		default:
			return d, nil
		}
		return d, d.animate()
	}
	return d, nil
}

// handleEvents reads state from the engine rather than from the event
// payloads, so collapsed ticks lose nothing.
func (d dashboardModel) handleEvents(events []timer.Event) (dashboardModel, tea.Cmd) {
	d.timer.refresh()
	var cmds []tea.Cmd
	reload := false
	for _, e := range events {
		switch ev := e.(type) {
		case timer.RoundStarted:
			phase := "work"
			if !ev.Work {
				phase = "rest"
			}
			d.banner = fmt.Sprintf("Round %d · %s", ev.Round, phase)
		case timer.Completed:
			d.banner = "Session complete"
			reload = true
		case timer.Stopped:
			reload = true
		}
	}
	if reload {
		cmds = append(cmds, d.loadData())
	}
	cmds = append(cmds, d.animate())
	return d, tea.Batch(cmds...)
}

// animate starts the spring if it is at rest.
func (d *dashboardModel) animate() tea.Cmd {
	if d.animating {
		return nil
	}
	d.animating = true
	return frameCmd()
}

func (d *dashboardModel) stepBar() tea.Cmd {
	target := d.timer.snap.Progress
	d.barPos, d.barVel = d.spring.Update(d.barPos, d.barVel, target)
	if math.Abs(d.barPos-target) < 0.001 && math.Abs(d.barVel) < 0.001 {
		d.barPos, d.barVel = target, 0
		d.animating = false
		return nil
	}
	return frameCmd()
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4
	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderTimerPanel(contentWidth),
		d.renderSummaryPanel(contentWidth),
	)
}

func (d dashboardModel) clockStyle() lipgloss.Style {
	snap := d.timer.snap
	switch snap.State {
	case timer.StatePaused:
		return clockPausedStyle
	case timer.StateRunning:
		switch {
		case snap.Remaining <= 3*time.Second:
			return clockCountdownStyle
		case snap.Config.Warning > 0 && snap.Remaining <= snap.Config.Warning:
			return clockWarningStyle
		case snap.Work:
			return clockWorkStyle
		default:
			return clockRestStyle
		}
	}
	return clockIdleStyle
}

func (d dashboardModel) indicator() string {
	snap := d.timer.snap
	phase := workStyle.Render("WORK")
	if !snap.Work {
		phase = restStyle.Render("REST")
	}
	round := fmt.Sprintf("Round %d/%d", snap.Round, snap.Config.Rounds)

	switch snap.State {
	case timer.StateRunning:
		return fmt.Sprintf("●  %s  %s", phase, round)
	case timer.StatePaused:
		return warningStyle.Render("⏸  PAUSED") + "  " + round
	case timer.StateCompleted:
		return workStyle.Render("✓  COMPLETE")
	}
	if snap.Elapsed > 0 {
		return mutedStyle.Render("■  STOPPED") + "  " + round
	}
	return mutedStyle.Render("■  READY")
}

func (d dashboardModel) renderTimerPanel(w int) string {
	if d.timer.engine == nil {
		return panelStyle.Width(w).Render(mutedStyle.Render("No session loaded. Press 2 to pick a preset."))
	}
	snap := d.timer.snap

	rows := []string{
		titleStyle.Render(d.timer.title()),
		"",
		d.clockStyle().Width(w - 6).Render(formatClock(snap.Remaining)),
		lipgloss.PlaceHorizontal(w-6, lipgloss.Center, d.indicator()),
		"",
		lipgloss.PlaceHorizontal(w-6, lipgloss.Center, renderRoundDots(snap)),
		lipgloss.PlaceHorizontal(w-6, lipgloss.Center, d.bar.ViewAs(d.barPos)),
		lipgloss.PlaceHorizontal(w-6, lipgloss.Center, mutedStyle.Render(fmt.Sprintf(
			"elapsed %s  ·  left %s", formatClock(snap.Elapsed), formatClock(snap.TotalRemaining)))),
	}
	if d.banner != "" {
		rows = append(rows, lipgloss.PlaceHorizontal(w-6, lipgloss.Center, highlightStyle.Render(d.banner)))
	}
	if snap.State == timer.StateStopped || snap.State == timer.StateCompleted {
		rows = append(rows, lipgloss.PlaceHorizontal(w-6, lipgloss.Center,
			mutedStyle.Render("space: start  n: skip  r: reset")))
	}

	style := panelStyle
	if d.timer.running() {
		style = activePanelStyle
	}
	return style.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderRoundDots draws one dot per round: finished, current, pending.
func renderRoundDots(snap timer.Snapshot) string {
	total := snap.Config.Rounds
	if total > maxRoundDots {
		return mutedStyle.Render(fmt.Sprintf("%d of %d rounds", snap.Round, total))
	}
	dots := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		switch {
		case snap.State == timer.StateCompleted || i < snap.Round:
			dots = append(dots, dotDoneStyle.Render("●"))
		case i == snap.Round && (snap.State != timer.StateStopped || snap.Elapsed > 0):
			dots = append(dots, dotCurrentStyle.Render("◉"))
		default:
			dots = append(dots, dotPendingStyle.Render("○"))
		}
	}
	return strings.Join(dots, " ")
}

func (d dashboardModel) renderSummaryPanel(w int) string {
	title := titleStyle.Render("Today")
	total := highlightStyle.Render(formatSeconds(d.todayTotal))
	header := fmt.Sprintf("%s  %s", title, total)

	if len(d.recent) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			header,
			mutedStyle.Render("No sessions yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{header}
	for _, s := range d.recent {
		mark := "✓"
		switch s.Status {
		case store.StatusRunning:
			mark = "●"
		case store.StatusStopped:
			mark = "■"
		case store.StatusAbandoned:
			mark = "✗"
		}
		rows = append(rows, fmt.Sprintf("  %s %s  %-12s %2d/%-3d %s",
			mark,
			s.StartedAt.Local().Format("Jan 02 15:04"),
			sessionName(s),
			s.RoundsCompleted, s.Rounds,
			formatSeconds(s.ActiveSeconds),
		))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func sessionName(s store.Session) string {
	if s.PresetName != "" {
		return s.PresetName
	}
	return "Custom"
}
