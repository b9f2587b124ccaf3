package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/strikesense/internal/session"
	"github.com/sadopc/strikesense/internal/store"
	"github.com/sadopc/strikesense/internal/timer"
)

type headlessOptions struct {
	store      *store.Store
	config     session.Config
	presetID   *int64
	presetName string
	engine     timer.Options
	listeners  []timer.Listener
	onEngine   func(*timer.Engine)
	out        io.Writer
	logger     *slog.Logger
}

// runHeadless runs one session to completion, printing events as lines.
// Cancelling ctx stops the session.
func runHeadless(ctx context.Context, opts headlessOptions) error {
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	e, err := timer.New(opts.config, opts.engine)
	if err != nil {
		return err
	}
	defer e.Dispose()

	if opts.store != nil {
		rec := store.NewRecorder(opts.store, e, logger)
		rec.SetPreset(opts.presetID)
		e.AddEventListener(rec)
	}
	for _, l := range opts.listeners {
		e.AddEventListener(l)
	}
	if opts.onEngine != nil {
		opts.onEngine(e)
	}

	e.AddEventListener(newLinePrinter(opts.out))

	done := make(chan struct{})
	var once sync.Once
	e.AddEventListener(timer.ListenerFunc(func(ev timer.Event) error {
		if _, ok := ev.(timer.Completed); ok {
			once.Do(func() { close(done) })
		}
		return nil
	}))

	name := opts.presetName
	if name == "" {
		name = "custom"
	}
	fmt.Fprintf(opts.out, "%s: %s, %s total\n", name, opts.config.String(), clock(opts.config.TotalDuration()))

	if err := e.Start(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	logger.Info("headless session started", "preset", opts.presetName, "config", opts.config.String())

	select {
	case <-done:
	case <-ctx.Done():
		e.Stop()
		logger.Info("headless session interrupted", "elapsed", e.ElapsedTime())
	}
	return nil
}

// linePrinter writes one line per event. Ticks are dropped, and the level
// triggered warning and countdown events print once per run of the same kind.
type linePrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last timer.Kind
}

func newLinePrinter(out io.Writer) *linePrinter {
	return &linePrinter{out: out}
}

func (p *linePrinter) HandleEvent(e timer.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	kind := e.Kind()
	if kind == timer.KindTick {
		return nil
	}
	repeat := kind == p.last
	p.last = kind

	var line string
	switch ev := e.(type) {
	case timer.RoundStarted:
		line = fmt.Sprintf("round %d %s %s", ev.Round, periodName(ev.Work), clock(ev.Duration))
	case timer.RoundEnded:
		line = fmt.Sprintf("round %d %s done", ev.Round, periodName(ev.Work))
	case timer.WarningReached:
		if repeat {
			return nil
		}
		line = fmt.Sprintf("warning %s left", clock(ev.Remaining))
	case timer.CountdownStarted:
		if repeat {
			return nil
		}
		line = "countdown"
	default:
		line = string(kind)
	}
	_, err := fmt.Fprintf(p.out, "%s %s\n", e.Time().Format("15:04:05"), line)
	return err
}

func periodName(work bool) string {
	if work {
		return "work"
	}
	return "rest"
}

// clock renders d as M:SS, rounding partial seconds up.
func clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
