// Package cue turns engine events into named audio cues and hands them to a
// Player. Rendering the sound is the player's business.
package cue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Cue names one sound in the cue set.
type Cue string

const (
	RoundStart    Cue = "round_start"
	RoundEnd      Cue = "round_end"
	TimerComplete Cue = "timer_complete"
	WorkStart     Cue = "work_start"
	RestStart     Cue = "rest_start"
	Pause         Cue = "pause"
	Resume        Cue = "resume"
	Warning       Cue = "warning"
	Countdown     Cue = "countdown"
)

// All returns every cue in a stable order.
func All() []Cue {
	return []Cue{RoundStart, RoundEnd, TimerComplete, WorkStart, RestStart, Pause, Resume, Warning, Countdown}
}

// Player renders a cue.
//
//go:generate mockgen -source=player.go -destination=mock_player_test.go -package=cue
type Player interface {
	Play(ctx context.Context, c Cue) error
}

// BellPlayer rings the terminal bell for the cues that matter mid-round.
type BellPlayer struct {
	mu sync.Mutex
	w  io.Writer
}

var bellCues = map[Cue]int{
	RoundStart:    1,
	RoundEnd:      2,
	TimerComplete: 3,
	Warning:       1,
	Countdown:     1,
}

func NewBellPlayer(w io.Writer) *BellPlayer {
	return &BellPlayer{w: w}
}

func (p *BellPlayer) Play(ctx context.Context, c Cue) error {
	n := bellCues[c]
	if n == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		if _, err := io.WriteString(p.w, "\a"); err != nil {
			return fmt.Errorf("ring bell for %s: %w", c, err)
		}
	}
	return nil
}

// LogPlayer records cues in the log. Handy in headless mode.
type LogPlayer struct {
	logger *slog.Logger
}

func NewLogPlayer(logger *slog.Logger) *LogPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPlayer{logger: logger}
}

func (p *LogPlayer) Play(ctx context.Context, c Cue) error {
	p.logger.InfoContext(ctx, "cue", "name", string(c))
	return nil
}

// Multi plays a cue on every player, in order. All players are tried even
// when one fails.
type Multi []Player

func (m Multi) Play(ctx context.Context, c Cue) error {
	var errs []error
	for _, p := range m {
		if err := p.Play(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
