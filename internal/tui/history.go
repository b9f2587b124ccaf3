package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/strikesense/internal/store"
)

const defaultHistoryDays = 7

type historyModel struct {
	store  *store.Store
	width  int
	height int

	days     int
	offset   int // blocks of days back from today (0 = current)
	totals   []store.DailyTotal
	sessions []store.Session

	chart barchart.Model
}

func newHistoryModel(s *store.Store) historyModel {
	return historyModel{
		store: s,
		days:  defaultHistoryDays,
		chart: barchart.New(60, 12),
	}
}

func (h *historyModel) setSize(w, ht int) {
	h.width = w
	h.height = ht
	h.buildChart()
}

type historyDataMsg struct {
	days     int
	totals   []store.DailyTotal
	sessions []store.Session
}

func (h historyModel) refresh() tea.Cmd {
	return func() tea.Msg {
		days := h.store.GetIntSetting("history_days", defaultHistoryDays)
		if days < 1 || days > 31 {
			days = defaultHistoryDays
		}
		h.days = days
		from, to := h.dateRange()
		totals, _ := h.store.GetDailyTotals(from, to)
		sessions, _ := h.store.ListSessions(store.SessionFilter{From: &from, To: &to, Limit: 10})
		return historyDataMsg{days: days, totals: totals, sessions: sessions}
	}
}

// dateRange is the [from, to) window of UTC days the view covers.
func (h historyModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, 1-h.days*h.offset)
	return end.AddDate(0, 0, -h.days), end
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		h.days = msg.days
		h.totals = msg.totals
		h.sessions = msg.sessions
		h.buildChart()
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			h.offset++
			return h, h.refresh()
		case key.Matches(msg, keys.Right):
			if h.offset > 0 {
				h.offset--
			}
			return h, h.refresh()
		}
	}
	return h, nil
}

// buildChart plots active minutes per day, split into completed and other
// sessions by share of the day's count.
func (h *historyModel) buildChart() {
	chartWidth := max(20, h.width-8)
	chartHeight := 12
	if h.height > 30 {
		chartHeight = 16
	}
	h.chart = barchart.New(chartWidth, chartHeight)

	byDate := make(map[string]store.DailyTotal, len(h.totals))
	for _, t := range h.totals {
		byDate[t.Date] = t
	}

	from, to := h.dateRange()
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		t, ok := byDate[d.Format("2006-01-02")]
		values := []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		if ok && t.ActiveSeconds > 0 {
			minutes := float64(t.ActiveSeconds) / 60
			done := minutes * float64(t.Completed) / float64(max(1, t.Sessions))
			values = []barchart.BarValue{
				{Name: "completed", Value: done, Style: workStyle},
				{Name: "other", Value: minutes - done, Style: warningStyle},
			}
		}
		bars = append(bars, barchart.BarData{Label: d.Format("Mon 02"), Values: values})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h historyModel) view() string {
	w := h.width - 4

	from, to := h.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.Add(-24*time.Hour).Format("Jan 02, 2006")))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, titleStyle.Render("History"), "  ", dateLabel)

	legend := fmt.Sprintf("  %s completed  %s stopped or abandoned  (minutes)",
		workStyle.Render("●"), warningStyle.Render("●"))
	nav := mutedStyle.Render("  ←/→: navigate")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", h.chart.View(), "", legend, "", h.renderTotals(), "", h.renderSessions(w), "", nav,
		),
	)
}

func (h historyModel) renderTotals() string {
	var sessions, completed int
	var active int64
	for _, t := range h.totals {
		sessions += t.Sessions
		completed += t.Completed
		active += t.ActiveSeconds
	}
	if sessions == 0 {
		return mutedStyle.Render("  No sessions in this period")
	}
	return fmt.Sprintf("  %s sessions  %s completed  %s active",
		highlightStyle.Render(fmt.Sprint(sessions)),
		workStyle.Render(fmt.Sprint(completed)),
		highlightStyle.Render(formatMinutes(active)),
	)
}

func (h historyModel) renderSessions(w int) string {
	if len(h.sessions) == 0 {
		return ""
	}
	rows := []string{
		mutedStyle.Render(fmt.Sprintf("  %-13s %-14s %-9s %7s %10s %-9s", "Start", "Preset", "Mode", "Rounds", "Active", "Status")),
		mutedStyle.Render("  " + strings.Repeat("─", min(w-6, 68))),
	}
	for _, s := range h.sessions {
		rows = append(rows, fmt.Sprintf("  %-13s %-14s %-9s %3d/%-3d %10s %-9s",
			s.StartedAt.Local().Format("Jan 02 15:04"),
			sessionName(s), s.Mode,
			s.RoundsCompleted, s.Rounds,
			formatSeconds(s.ActiveSeconds),
			s.Status,
		))
	}
	return strings.Join(rows, "\n")
}
