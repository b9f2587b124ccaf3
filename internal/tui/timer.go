package tui

import (
	"fmt"
	"log/slog"

	"github.com/sadopc/strikesense/internal/session"
	"github.com/sadopc/strikesense/internal/store"
	"github.com/sadopc/strikesense/internal/timer"
)

// timerModel owns the engine behind the timer view, separate from display.
// Loading another configuration replaces the engine; the bridge, the
// recorder and the caller's listeners are attached to each new one.
type timerModel struct {
	store     *store.Store
	options   timer.Options
	listeners []timer.Listener
	onEngine  func(*timer.Engine)
	logger    *slog.Logger

	bridge   *eventBridge
	engine   *timer.Engine
	recorder *store.Recorder

	presetID   *int64
	presetName string

	// snap is the engine state as of the last event or control call.
	snap timer.Snapshot
}

func newTimerModel(opts Options) timerModel {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return timerModel{
		store:     opts.Store,
		options:   opts.Engine,
		listeners: opts.Listeners,
		onEngine:  opts.OnEngine,
		logger:    logger,
		bridge:    newEventBridge(),
	}
}

// load disposes the current engine, which closes its history row, and binds
// a fresh one to cfg.
func (t *timerModel) load(cfg session.Config, presetID *int64, name string) error {
	e, err := timer.New(cfg, t.options)
	if err != nil {
		return err
	}
	if t.engine != nil {
		t.engine.Dispose()
	}

	e.AddEventListener(t.bridge)
	if t.store != nil {
		t.recorder = store.NewRecorder(t.store, e, t.logger)
		t.recorder.SetPreset(presetID)
		e.AddEventListener(t.recorder)
	}
	for _, l := range t.listeners {
		e.AddEventListener(l)
	}
	if t.onEngine != nil {
		t.onEngine(e)
	}

	t.engine = e
	t.presetID = presetID
	t.presetName = name
	t.snap = e.Snapshot()

	if t.store != nil && name != "" {
		if err := t.store.SetSetting("last_preset", name); err != nil {
			t.logger.Warn("remember preset", "name", name, "err", err)
		}
	}
	t.logger.Info("session loaded", "preset", name, "config", cfg.String())
	return nil
}

// toggle starts, pauses or resumes depending on the engine state. A
// completed session starts over.
func (t *timerModel) toggle() error {
	if t.engine == nil {
		return timer.ErrNotInitialized
	}
	var err error
	switch t.engine.State() {
	case timer.StateRunning:
		t.engine.Pause()
	case timer.StatePaused:
		err = t.engine.Resume()
	case timer.StateCompleted:
		t.engine.Reset()
		err = t.engine.Start()
	default:
		err = t.engine.Start()
	}
	t.refresh()
	return err
}

func (t *timerModel) stop() {
	if t.engine == nil {
		return
	}
	t.engine.Stop()
	t.refresh()
}

func (t *timerModel) reset() {
	if t.engine == nil {
		return
	}
	t.engine.Reset()
	t.refresh()
}

func (t *timerModel) skip() {
	if t.engine == nil {
		return
	}
	t.engine.Skip()
	t.refresh()
}

func (t *timerModel) refresh() {
	if t.engine != nil {
		t.snap = t.engine.Snapshot()
	}
}

// close releases the engine and unblocks a pending waitForEvent.
func (t *timerModel) close() {
	if t.engine != nil {
		t.engine.Dispose()
	}
	t.bridge.close()
}

// running reports whether a session is in progress, paused or not.
func (t timerModel) running() bool {
	return t.snap.State == timer.StateRunning || t.snap.State == timer.StatePaused
}

func (t timerModel) paused() bool {
	return t.snap.State == timer.StatePaused
}

func (t timerModel) title() string {
	cfg := t.snap.Config
	if t.presetName != "" {
		return fmt.Sprintf("%s  %s", t.presetName, cfg.String())
	}
	return fmt.Sprintf("Custom  %s", cfg.String())
}
