// Package tui is the Bubble Tea front end: the live timer, presets, session
// history and settings.
package tui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/strikesense/internal/export"
	"github.com/sadopc/strikesense/internal/session"
	"github.com/sadopc/strikesense/internal/store"
	"github.com/sadopc/strikesense/internal/timer"
)

// Options wires the app to the rest of the program.
type Options struct {
	Store *store.Store

	// Config is loaded on the timer at startup. PresetID and PresetName
	// link it to a stored preset.
	Config     session.Config
	PresetID   *int64
	PresetName string

	Engine timer.Options
	// Listeners are attached to every engine the timer view creates.
	Listeners []timer.Listener
	// OnEngine is called with each new engine.
	OnEngine func(*timer.Engine)

	// ExportDir receives history exports. Defaults to the home directory.
	ExportDir string
	Logger    *slog.Logger
}

var exportFormats = []string{"CSV", "JSON", "PDF"}

// App is the root Bubble Tea model.
type App struct {
	store     *store.Store
	logger    *slog.Logger
	exportDir string
	width     int
	height    int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	presets   presetsModel
	history   historyModel
	settings  settingsModel

	help   help.Model
	status string
	isErr  bool
}

// NewApp builds the app and loads opts.Config on the timer.
func NewApp(opts Options) (App, error) {
	h := help.New()
	h.ShowAll = false

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := App{
		store:      opts.Store,
		logger:     logger,
		exportDir:  opts.ExportDir,
		activeView: viewTimer,
		dashboard:  newDashboardModel(opts),
		presets:    newPresetsModel(opts.Store),
		history:    newHistoryModel(opts.Store),
		settings:   newSettingsModel(opts.Store),
		help:       h,
	}
	if err := a.dashboard.timer.load(opts.Config, opts.PresetID, opts.PresetName); err != nil {
		return App{}, fmt.Errorf("load session: %w", err)
	}
	return a, nil
}

// Close disposes the engine. Call it after the program exits.
func (a App) Close() {
	a.dashboard.timer.close()
}

func (a App) Init() tea.Cmd {
	return a.dashboard.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.presets.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTimer
			return a, a.dashboard.loadData()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewPresets
			return a, a.presets.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewHistory
			return a, a.history.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case engineEventsMsg:
		// Engine events always reach the timer, whichever view is shown.
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		cmds := []tea.Cmd{cmd, a.dashboard.timer.bridge.waitForEvent()}
		ended := false
		for _, e := range msg.events {
			switch e.(type) {
			case timer.Completed:
				a.status, a.isErr = "Session complete", false
				ended = true
			case timer.Stopped:
				ended = true
			}
		}
		if ended && a.activeView == viewHistory {
			cmds = append(cmds, a.history.refresh())
		}
		return a, tea.Batch(cmds...)

	case frameMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, cmd

	case loadSessionMsg:
		name := msg.name
		if err := a.dashboard.timer.load(msg.cfg, msg.presetID, name); err != nil {
			a.status, a.isErr = fmt.Sprintf("Load failed: %v", err), true
			return a, nil
		}
		if name == "" {
			name = "custom session"
		}
		a.dashboard.banner = ""
		a.activeView = viewTimer
		a.status, a.isErr = "Loaded "+name, false
		return a, tea.Batch(a.dashboard.loadData(), a.dashboard.animate())

	case statusMsg:
		a.status, a.isErr = msg.text, msg.isError
		return a, nil

	case exportDoneMsg:
		a.status, a.isErr = "Exported to "+msg.path, false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewPresets:
		a.presets, cmd = a.presets.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewPresets:
		return a.presets.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewTimer:
		return a.dashboard.loadData()
	case viewPresets:
		return a.presets.refresh()
	case viewHistory:
		return a.history.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.dashboard.view()
	case viewPresets:
		content = a.presets.view()
	case viewHistory:
		content = a.history.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := max(1, a.height-lipgloss.Height(header)-lipgloss.Height(footer))

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("strikesense")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.isErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Session indicator, visible from every view
	timerInfo := ""
	if t := a.dashboard.timer; t.running() {
		remaining := formatClock(t.snap.Remaining)
		switch {
		case t.paused():
			timerInfo = warningStyle.Render(" ⏸ " + remaining)
		case t.snap.Work:
			timerInfo = workStyle.Render(fmt.Sprintf(" ● R%d %s", t.snap.Round, remaining))
		default:
			timerInfo = restStyle.Render(fmt.Sprintf(" ◌ R%d %s", t.snap.Round, remaining))
		}
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	rows := []string{titleStyle.Render("Export History"), ""}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	return func() tea.Msg {
		sessions, err := a.store.ListSessions(store.SessionFilter{})
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		dir := a.exportDir
		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		base := filepath.Join(dir, "strikesense-history-"+time.Now().Format("2006-01-02"))

		var path string
		switch format {
		case 0:
			path = base + ".csv"
			err = export.ToCSV(sessions, path)
		case 1:
			path = base + ".json"
			err = export.ToJSON(sessions, path)
		default:
			path = base + ".pdf"
			err = export.ToPDF(sessions, "Training history", path)
		}
		if err != nil {
			a.logger.Error("export failed", "path", path, "err", err)
			return statusMsg{text: fmt.Sprintf("%s error: %v", exportFormats[min(format, len(exportFormats)-1)], err), isError: true}
		}
		a.logger.Info("history exported", "path", path, "sessions", len(sessions))
		return exportDoneMsg{path: path}
	}
}
