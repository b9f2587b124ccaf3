package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/strikesense/internal/session"
	"github.com/sadopc/strikesense/internal/store"
)

var modeOptions = []huh.Option[string]{
	huh.NewOption("Round", session.ModeRound.String()),
	huh.NewOption("Interval", session.ModeInterval.String()),
	huh.NewOption("Tabata", session.ModeTabata.String()),
}

type presetFormType int

const (
	formNewPreset presetFormType = iota
	formEditPreset
	formCustom
)

type presetsModel struct {
	store  *store.Store
	width  int
	height int

	presets []store.Preset
	cursor  int

	formActive bool
	form       *huh.Form
	formType   presetFormType
	editingID  int64

	// Form field pointers (survive value copies)
	formName    *string
	formMode    *string
	formRounds  *string
	formWork    *string
	formRest    *string
	formWarning *string
}

func newPresetsModel(s *store.Store) presetsModel {
	name, mode, rounds, work, rest, warning := "", "", "", "", "", ""
	return presetsModel{
		store:       s,
		formName:    &name,
		formMode:    &mode,
		formRounds:  &rounds,
		formWork:    &work,
		formRest:    &rest,
		formWarning: &warning,
	}
}

func (p *presetsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

type presetsDataMsg struct {
	presets []store.Preset
}

func (p presetsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		presets, _ := p.store.ListPresets()
		return presetsDataMsg{presets: presets}
	}
}

func (p presetsModel) update(msg tea.Msg) (presetsModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case presetsDataMsg:
		p.presets = msg.presets
		if p.cursor >= len(p.presets) {
			p.cursor = max(0, len(p.presets)-1)
		}
		return p, nil

	case tea.KeyMsg:
		return p.updateList(msg)
	}
	return p, nil
}

func (p presetsModel) updateList(msg tea.KeyMsg) (presetsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.presets)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(p.presets) > 0 {
			pr := p.presets[p.cursor]
			cfg, err := pr.Config()
			if err != nil {
				return p, errorCmd("Preset is invalid: %v", err)
			}
			id := pr.ID
			return p, func() tea.Msg {
				return loadSessionMsg{cfg: cfg, presetID: &id, name: pr.Name}
			}
		}
	case key.Matches(msg, keys.New):
		return p.showForm(formNewPreset, "", session.Default(p.defaultMode()))
	case key.Matches(msg, keys.Custom):
		return p.showForm(formCustom, "", session.Default(p.defaultMode()))
	case key.Matches(msg, keys.Edit):
		if len(p.presets) > 0 {
			pr := p.presets[p.cursor]
			cfg, err := pr.Config()
			if err != nil {
				// Still editable; the form starts from the mode defaults.
				cfg = session.Default(pr.Mode)
			}
			p.editingID = pr.ID
			return p.showForm(formEditPreset, pr.Name, cfg)
		}
	case key.Matches(msg, keys.Delete):
		if len(p.presets) > 0 {
			pr := p.presets[p.cursor]
			if err := p.store.DeletePreset(pr.ID); err != nil {
				return p, errorCmd("Delete failed: %v", err)
			}
			return p, tea.Batch(p.refresh(), statusCmd("Deleted "+pr.Name, false))
		}
	}
	return p, nil
}

func (p presetsModel) defaultMode() session.Mode {
	v, err := p.store.GetSetting("default_mode")
	if err != nil {
		return session.ModeRound
	}
	m, err := session.ParseMode(v)
	if err != nil {
		return session.ModeRound
	}
	return m
}

func (p presetsModel) showForm(kind presetFormType, name string, cfg session.Config) (presetsModel, tea.Cmd) {
	*p.formName = name
	*p.formMode = cfg.Mode.String()
	*p.formRounds = strconv.Itoa(cfg.Rounds)
	*p.formWork = cfg.Work.String()
	*p.formRest = cfg.Rest.String()
	*p.formWarning = cfg.Warning.String()
	p.formType = kind

	fields := []huh.Field{
		huh.NewSelect[string]().Title("Mode").Options(modeOptions...).Value(p.formMode),
		huh.NewInput().Title("Rounds").Value(p.formRounds).Validate(validateRounds),
		huh.NewInput().Title("Work").Description("e.g. 3m, 30s").Value(p.formWork).Validate(validateDuration),
		huh.NewInput().Title("Rest").Value(p.formRest).Validate(validateDuration),
		huh.NewInput().Title("Warning").Value(p.formWarning).Validate(validateDuration),
	}
	if kind != formCustom {
		fields = append([]huh.Field{
			huh.NewInput().Title("Preset Name").Value(p.formName).Validate(validateName),
		}, fields...)
	}

	p.form = huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true).WithShowErrors(true)
	p.formActive = true
	return p, p.form.Init()
}

func (p presetsModel) updateForm(msg tea.Msg) (presetsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State != huh.StateCompleted {
		return p, cmd
	}
	p.formActive = false

	cfg, err := parseSessionForm(*p.formMode, *p.formRounds, *p.formWork, *p.formRest, *p.formWarning)
	if err != nil {
		return p, errorCmd("Invalid session: %v", err)
	}
	name := strings.TrimSpace(*p.formName)

	switch p.formType {
	case formCustom:
		return p, func() tea.Msg { return loadSessionMsg{cfg: cfg} }
	case formEditPreset:
		if err := p.store.UpdatePreset(p.editingID, name, cfg); err != nil {
			return p, errorCmd("Update failed: %v", err)
		}
		return p, tea.Batch(p.refresh(), statusCmd("Saved "+name, false))
	default:
		if _, err := p.store.CreatePreset(name, cfg); err != nil {
			return p, errorCmd("Create failed: %v", err)
		}
		return p, tea.Batch(p.refresh(), statusCmd("Created "+name, false))
	}
}

// parseSessionForm turns the form strings into a validated config.
func parseSessionForm(mode, rounds, work, rest, warning string) (session.Config, error) {
	m, err := session.ParseMode(mode)
	if err != nil {
		return session.Config{}, err
	}
	r, err := strconv.Atoi(strings.TrimSpace(rounds))
	if err != nil {
		return session.Config{}, fmt.Errorf("rounds: %w", err)
	}
	var durations [3]time.Duration
	for i, s := range []string{work, rest, warning} {
		durations[i], err = time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return session.Config{}, err
		}
	}
	return session.New(m, r, durations[0], durations[1], durations[2])
}

func validateName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name is required")
	}
	return nil
}

func validateRounds(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("rounds must be a number")
	}
	if n < session.MinRounds || n > session.MaxRounds {
		return fmt.Errorf("rounds must be between %d and %d", session.MinRounds, session.MaxRounds)
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return errors.New("use a duration like 90s or 3m")
	}
	if d < 0 {
		return errors.New("duration cannot be negative")
	}
	if d%time.Millisecond != 0 {
		return errors.New("use whole milliseconds")
	}
	return nil
}

func (p presetsModel) view() string {
	w := p.width - 4
	if p.formActive && p.form != nil {
		title := "New Preset"
		switch p.formType {
		case formEditPreset:
			title = "Edit Preset"
		case formCustom:
			title = "Custom Session"
		}
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", p.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Presets")
	if len(p.presets) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No presets yet. Press a to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{title, ""}
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-20s %-9s %6s %8s %8s %8s %9s",
		"Name", "Mode", "Rounds", "Work", "Rest", "Warning", "Total")))

	for i, pr := range p.presets {
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-20s %-9s %6d %8s %8s %8s %9s",
			cursor, pr.Name, pr.Mode, pr.Rounds,
			pr.Work, pr.Rest, pr.Warning, presetTotal(pr),
		)))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: load  a: new  c: custom  e: edit  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func presetTotal(pr store.Preset) string {
	cfg, err := pr.Config()
	if err != nil {
		return "invalid"
	}
	return formatClock(cfg.TotalDuration())
}
