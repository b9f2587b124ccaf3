package tui

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/strikesense/internal/store"
)

// settingLabels orders and names the keys the settings view shows.
var settingLabels = []struct{ key, label string }{
	{"default_mode", "Default mode"},
	{"last_preset", "Last preset"},
	{"cues_enabled", "Cues"},
	{"cues_bell", "Terminal bell"},
	{"cues_debounce", "One cue per band"},
	{"history_days", "History window"},
}

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	settings   map[string]string
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	defaultMode  *string
	cuesEnabled  *bool
	cuesBell     *bool
	cuesDebounce *bool
	historyDays  *string
}

func newSettingsModel(s *store.Store) settingsModel {
	mode, days := "", ""
	enabled, bell, debounce := true, true, true
	return settingsModel{
		store:        s,
		settings:     map[string]string{},
		defaultMode:  &mode,
		cuesEnabled:  &enabled,
		cuesBell:     &bell,
		cuesDebounce: &debounce,
		historyDays:  &days,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = make(map[string]string, len(msg.settings))
		for _, st := range msg.settings {
			s.settings[st.Key] = st.Value
		}
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.defaultMode = s.getVal("default_mode", "round")
	*s.cuesEnabled = s.store.GetBoolSetting("cues_enabled", true)
	*s.cuesBell = s.store.GetBoolSetting("cues_bell", true)
	*s.cuesDebounce = s.store.GetBoolSetting("cues_debounce", true)
	*s.historyDays = s.getVal("history_days", strconv.Itoa(defaultHistoryDays))

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Default mode").Options(modeOptions...).Value(s.defaultMode),
			huh.NewInput().Title("History window (days)").Value(s.historyDays).Validate(validateHistoryDays),
		).Title("General"),
		huh.NewGroup(
			huh.NewConfirm().Title("Play cues").Value(s.cuesEnabled),
			huh.NewConfirm().Title("Ring the terminal bell").Value(s.cuesBell),
			huh.NewConfirm().Title("One warning and countdown cue per period").Value(s.cuesDebounce),
		).Title("Cues").Description("Cue changes apply on next launch"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		if err := s.saveSettings(); err != nil {
			return s, tea.Batch(s.refresh(), errorCmd("Saving settings failed: %v", err))
		}
		return s, tea.Batch(s.refresh(), statusCmd("Settings saved", false))
	}

	return s, cmd
}

func (s settingsModel) saveSettings() error {
	values := map[string]string{
		"default_mode":  *s.defaultMode,
		"cues_enabled":  strconv.FormatBool(*s.cuesEnabled),
		"cues_bell":     strconv.FormatBool(*s.cuesBell),
		"cues_debounce": strconv.FormatBool(*s.cuesDebounce),
		"history_days":  *s.historyDays,
	}
	for k, v := range values {
		if err := s.store.SetSetting(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.store.GetSetting(k)
	if err != nil {
		return fallback
	}
	return v
}

func validateHistoryDays(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 31 {
		return errors.New("enter 1 to 31 days")
	}
	return nil
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	rows := []string{title, ""}
	for _, l := range settingLabels {
		v, ok := s.settings[l.key]
		if !ok {
			continue
		}
		label := lipgloss.NewStyle().Width(24).Render(l.label)
		value := highlightStyle.Render(formatSettingValue(l.key, v))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case "cues_enabled", "cues_bell", "cues_debounce":
		if b, err := strconv.ParseBool(v); err == nil {
			if b {
				return "on"
			}
			return "off"
		}
	case "history_days":
		if n, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%d days", n)
		}
	case "last_preset":
		if v == "" {
			return "none"
		}
	}
	return v
}
