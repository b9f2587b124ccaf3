package cue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/strikesense/internal/timer"
)

// DefaultTimeout bounds a single Play call.
const DefaultTimeout = 2 * time.Second

// Cues returns the cues an event maps to, in play order.
func Cues(e timer.Event) []Cue {
	switch ev := e.(type) {
	case timer.RoundStarted:
		if ev.Work {
			return []Cue{RoundStart, WorkStart}
		}
		return []Cue{RestStart}
	case timer.RoundEnded:
		if ev.Work {
			return []Cue{RoundEnd}
		}
	case timer.Completed:
		return []Cue{TimerComplete}
	case timer.Paused:
		return []Cue{Pause}
	case timer.Resumed:
		return []Cue{Resume}
	case timer.WarningReached:
		return []Cue{Warning}
	case timer.CountdownStarted:
		return []Cue{Countdown}
	}
	return nil
}

// Mapper is a timer.Listener that plays the cues for each event.
//
// The engine reports warning and countdown on every tick inside their
// bands. With debounce on, Mapper plays each of them once per period.
type Mapper struct {
	player   Player
	logger   *slog.Logger
	debounce bool
	timeout  time.Duration

	mu        sync.Mutex
	warned    bool
	countdown bool
}

func New(player Player, debounce bool, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		player:   player,
		logger:   logger,
		debounce: debounce,
		timeout:  DefaultTimeout,
	}
}

// HandleEvent never fails: player errors are logged and dropped so a broken
// speaker cannot disturb the session.
func (m *Mapper) HandleEvent(e timer.Event) error {
	for _, c := range m.filter(e) {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		err := m.player.Play(ctx, c)
		cancel()
		if err != nil {
			m.logger.Warn("cue playback failed", "cue", string(c), "err", err)
		}
	}
	return nil
}

func (m *Mapper) filter(e timer.Event) []Cue {
	cues := Cues(e)
	if !m.debounce {
		return cues
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := e.(timer.Started); ok || timer.IsBoundary(e) {
		m.warned = false
		m.countdown = false
		return cues
	}
	switch e.(type) {
	case timer.WarningReached:
		if m.warned {
			return nil
		}
		m.warned = true
	case timer.CountdownStarted:
		if m.countdown {
			return nil
		}
		m.countdown = true
	}
	return cues
}
