package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/strikesense/internal/session"
	"github.com/sadopc/strikesense/internal/timer"
)

// SessionSource is the part of the engine the recorder reads from.
type SessionSource interface {
	Config() session.Config
	ElapsedTime() time.Duration
}

// Recorder is a timer.Listener that writes one history row per run.
// A run opens on Started and closes on Completed or Stopped; Start after
// Stop opens a fresh row covering only the time run since.
type Recorder struct {
	store  *Store
	source SessionSource
	logger *slog.Logger

	mu         sync.Mutex
	presetID   *int64
	current    int64
	rounds     int
	elapsedAt0 time.Duration
}

func NewRecorder(s *Store, source SessionSource, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, source: source, logger: logger}
}

// SetPreset links the next recorded runs to a preset. nil clears the link.
func (r *Recorder) SetPreset(id *int64) {
	r.mu.Lock()
	r.presetID = id
	r.mu.Unlock()
}

// Current returns the id of the open row, or 0.
func (r *Recorder) Current() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Recorder) HandleEvent(e timer.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev := e.(type) {
	case timer.Started:
		if r.current != 0 {
			return nil
		}
		sess, err := r.store.StartSession(r.presetID, r.source.Config(), eventTime(e))
		if err != nil {
			return fmt.Errorf("record session start: %w", err)
		}
		r.current = sess.ID
		r.rounds = 0
		r.elapsedAt0 = r.source.ElapsedTime()
		r.logger.Debug("session recording", "id", sess.ID)
	case timer.RoundEnded:
		if r.current != 0 && ev.Work {
			r.rounds++
		}
	case timer.Completed:
		return r.finishLocked(StatusCompleted, eventTime(e))
	case timer.Stopped:
		return r.finishLocked(StatusStopped, eventTime(e))
	}
	return nil
}

func (r *Recorder) finishLocked(status string, at time.Time) error {
	if r.current == 0 {
		return nil
	}
	id := r.current
	r.current = 0
	active := r.source.ElapsedTime() - r.elapsedAt0
	if active < 0 {
		active = 0
	}
	if err := r.store.FinishSession(id, status, r.rounds, active, at); err != nil {
		return fmt.Errorf("record session end: %w", err)
	}
	r.logger.Debug("session recorded", "id", id, "status", status, "rounds", r.rounds, "active", active)
	return nil
}

func eventTime(e timer.Event) time.Time {
	if t := e.Time(); !t.IsZero() {
		return t
	}
	return time.Now()
}
