// strikesense is a round, interval and tabata workout timer for the
// terminal.
//
// Usage:
//
//	strikesense [flags]
//
// Flags:
//
//	-config string          Path to configuration file (default: ~/.config/strikesense/config.toml)
//	-preset string          Load a stored preset by name
//	-mode string            Session mode (round|interval|tabata)
//	-rounds int             Number of rounds
//	-work duration          Work period length
//	-rest duration          Rest period length
//	-warning duration       Warning window before a period ends
//	-headless               Print events instead of running the TUI
//	-listen string          Serve the remote display on this address
//	-import string          Import presets from a YAML file and exit
//	-export-presets string  Write stored presets to a YAML file and exit
//	-write-config           Write the effective config to -config (or the default path) and exit
//	-verbose                Enable debug logging
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/sadopc/strikesense/internal/config"
	"github.com/sadopc/strikesense/internal/cue"
	"github.com/sadopc/strikesense/internal/preset"
	"github.com/sadopc/strikesense/internal/session"
	"github.com/sadopc/strikesense/internal/store"
	"github.com/sadopc/strikesense/internal/timer"
	"github.com/sadopc/strikesense/internal/tui"
	"github.com/sadopc/strikesense/internal/ws"
)

// sessionFlags are the command line overrides for the session config.
type sessionFlags struct {
	preset  string
	mode    string
	rounds  int
	work    time.Duration
	rest    time.Duration
	warning time.Duration
	set     map[string]bool
}

func main() {
	var (
		configPath    = flag.String("config", "", "Path to configuration file")
		headless      = flag.Bool("headless", false, "Print events instead of running the TUI")
		listen        = flag.String("listen", "", "Serve the remote display on this address (e.g. 127.0.0.1:8321)")
		importPath    = flag.String("import", "", "Import presets from a YAML file and exit")
		exportPresets = flag.String("export-presets", "", "Write stored presets to a YAML file and exit")
		verbose       = flag.Bool("verbose", false, "Enable debug logging")
		writeConfig   = flag.Bool("write-config", false, "Write the effective config to -config (or the default path) and exit")
		sf            sessionFlags
	)
	flag.StringVar(&sf.preset, "preset", "", "Load a stored preset by name")
	flag.StringVar(&sf.mode, "mode", "", "Session mode (round|interval|tabata)")
	flag.IntVar(&sf.rounds, "rounds", 0, "Number of rounds")
	flag.DurationVar(&sf.work, "work", 0, "Work period length")
	flag.DurationVar(&sf.rest, "rest", 0, "Rest period length")
	flag.DurationVar(&sf.warning, "warning", 0, "Warning window before a period ends")
	flag.Parse()

	sf.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { sf.set[f.Name] = true })

	// Load configuration
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if err := cfg.Validate(); err != nil {
		fatal("%v", err)
	}
	if *writeConfig {
		path, err := writeConfigFile(cfg, *configPath)
		if err != nil {
			fatal("write config: %v", err)
		}
		fmt.Printf("wrote config to %s\n", path)
		return
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		if dbPath, err = store.DefaultDBPath(); err != nil {
			fatal("%v", err)
		}
	}

	interactive := !*headless && term.IsTerminal(int(os.Stdout.Fd()))

	logger, closeLog, err := setupLogging(cfg, dbPath, interactive, *verbose)
	if err != nil {
		fatal("failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	s, err := store.New(dbPath)
	if err != nil {
		fatal("error opening database: %v", err)
	}
	defer s.Close()

	switch {
	case *importPath != "":
		n, err := importPresets(s, *importPath)
		if err != nil {
			fatal("import presets: %v", err)
		}
		fmt.Printf("imported %d presets from %s\n", n, *importPath)
		return
	case *exportPresets != "":
		n, err := exportPresetFile(s, *exportPresets)
		if err != nil {
			fatal("export presets: %v", err)
		}
		fmt.Printf("exported %d presets to %s\n", n, *exportPresets)
		return
	}

	if n, err := s.AbandonRunning(); err != nil {
		logger.Warn("mark abandoned sessions", "err", err)
	} else if n > 0 {
		logger.Info("sessions left running by a previous run marked abandoned", "count", n)
	}

	sessCfg, presetID, presetName, err := resolveSession(s, cfg, sf)
	if err != nil {
		fatal("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listeners := []timer.Listener{}
	if m := cueMapper(s, cfg, logger); m != nil {
		listeners = append(listeners, m)
	}

	var broadcaster *ws.Broadcaster
	if cfg.Listen != "" {
		broadcaster = ws.NewBroadcaster(nil, logger)
		defer broadcaster.Close()
		listeners = append(listeners, broadcaster)

		mux := http.NewServeMux()
		ws.NewServer(broadcaster, logger).SetupRoutes(mux)
		go func() {
			if err := ws.ListenAndServe(ctx, cfg.Listen, mux, logger); err != nil {
				logger.Error("remote display server failed", "addr", cfg.Listen, "err", err)
			}
		}()
	}
	onEngine := func(e *timer.Engine) {
		if broadcaster != nil {
			broadcaster.SetSource(e)
		}
	}
	engineOpts := timer.Options{TickInterval: cfg.TickInterval.Duration, Logger: logger}

	if !interactive {
		err = runHeadless(ctx, headlessOptions{
			store:      s,
			config:     sessCfg,
			presetID:   presetID,
			presetName: presetName,
			engine:     engineOpts,
			listeners:  listeners,
			onEngine:   onEngine,
			out:        os.Stdout,
			logger:     logger,
		})
		if err != nil {
			fatal("%v", err)
		}
		return
	}

	app, err := tui.NewApp(tui.Options{
		Store:      s,
		Config:     sessCfg,
		PresetID:   presetID,
		PresetName: presetName,
		Engine:     engineOpts,
		Listeners:  listeners,
		OnEngine:   onEngine,
		Logger:     logger,
	})
	if err != nil {
		fatal("%v", err)
	}
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fatal("error: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setupLogging logs to stderr in headless mode. The TUI owns the terminal,
// so there logs go to a file next to the database unless log_file says
// otherwise.
func setupLogging(cfg *config.Config, dbPath string, interactive, verbose bool) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if !interactive {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}, nil
	}

	path := cfg.LogFile
	if path == "" {
		path = filepath.Join(filepath.Dir(dbPath), "strikesense.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewTextHandler(f, opts)), func() { f.Close() }, nil
}

// resolveSession picks the startup config. In order: -preset, explicit
// session flags over the mode defaults, the last loaded preset, then the
// defaults of the configured mode.
func resolveSession(s *store.Store, cfg *config.Config, sf sessionFlags) (session.Config, *int64, string, error) {
	if sf.preset != "" {
		p, err := s.GetPresetByName(sf.preset)
		if err != nil {
			return session.Config{}, nil, "", fmt.Errorf("preset %q not found", sf.preset)
		}
		c, err := p.Config()
		if err != nil {
			return session.Config{}, nil, "", fmt.Errorf("preset %q: %w", p.Name, err)
		}
		return c, &p.ID, p.Name, nil
	}

	mode := defaultMode(s, cfg)
	if sf.set["mode"] {
		m, err := session.ParseMode(sf.mode)
		if err != nil {
			return session.Config{}, nil, "", err
		}
		mode = m
	}

	custom := false
	for _, name := range []string{"mode", "rounds", "work", "rest", "warning"} {
		custom = custom || sf.set[name]
	}
	if !custom {
		if name, err := s.GetSetting("last_preset"); err == nil && name != "" {
			if p, err := s.GetPresetByName(name); err == nil {
				if c, err := p.Config(); err == nil {
					return c, &p.ID, p.Name, nil
				}
			}
		}
		return session.Default(mode), nil, "", nil
	}

	base := session.Default(mode)
	rounds, work, rest, warning := base.Rounds, base.Work, base.Rest, base.Warning
	if sf.set["rounds"] {
		rounds = sf.rounds
	}
	if sf.set["work"] {
		work = sf.work
	}
	if sf.set["rest"] {
		rest = sf.rest
	}
	if sf.set["warning"] {
		warning = sf.warning
	}
	c, err := session.New(mode, rounds, work, rest, warning)
	if err != nil {
		return session.Config{}, nil, "", err
	}
	return c, nil, "", nil
}

func defaultMode(s *store.Store, cfg *config.Config) session.Mode {
	if v, err := s.GetSetting("default_mode"); err == nil {
		if m, err := session.ParseMode(v); err == nil {
			return m
		}
	}
	return cfg.Mode()
}

// cueMapper builds the cue listener. Stored settings win over the config
// file, which only supplies the defaults.
func cueMapper(s *store.Store, cfg *config.Config, logger *slog.Logger) *cue.Mapper {
	if !s.GetBoolSetting("cues_enabled", cfg.Cues.Enabled) {
		return nil
	}
	players := cue.Multi{cue.NewLogPlayer(logger)}
	if s.GetBoolSetting("cues_bell", cfg.Cues.Bell) {
		// stderr shares the terminal without racing the TUI renderer on stdout.
		players = append(players, cue.NewBellPlayer(os.Stderr))
	}
	return cue.New(players, s.GetBoolSetting("cues_debounce", cfg.Cues.Debounce), logger)
}

// writeConfigFile saves cfg to path, or to the default config location when
// path is empty.
func writeConfigFile(cfg *config.Config, path string) (string, error) {
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.Save(cfg, path); err != nil {
		return "", err
	}
	return path, nil
}

func importPresets(s *store.Store, path string) (int, error) {
	presets, err := preset.ImportFile(path)
	if err != nil {
		return 0, err
	}
	for _, p := range presets {
		if _, err := s.SavePreset(p.Name, p.Config); err != nil {
			return 0, fmt.Errorf("save %q: %w", p.Name, err)
		}
	}
	return len(presets), nil
}

func exportPresetFile(s *store.Store, path string) (int, error) {
	stored, err := s.ListPresets()
	if err != nil {
		return 0, err
	}
	out := make([]preset.Preset, 0, len(stored))
	for _, p := range stored {
		c, err := p.Config()
		if err != nil {
			slog.Warn("skipping invalid preset", "name", p.Name, "err", err)
			continue
		}
		out = append(out, preset.Preset{Name: p.Name, Config: c})
	}
	if err := preset.ExportFile(path, out); err != nil {
		return 0, err
	}
	return len(out), nil
}
