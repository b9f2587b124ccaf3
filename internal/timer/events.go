package timer

import "time"

// Kind names an event variant. Values are stable and used on the wire.
type Kind string

const (
	KindStarted          Kind = "started"
	KindPaused           Kind = "paused"
	KindResumed          Kind = "resumed"
	KindStopped          Kind = "stopped"
	KindCompleted        Kind = "completed"
	KindTick             Kind = "tick"
	KindRoundStarted     Kind = "round_started"
	KindRoundEnded       Kind = "round_ended"
	KindWarningReached   Kind = "warning_reached"
	KindCountdownStarted Kind = "countdown_started"
)

// Event is one of the concrete event types below. The set is closed.
type Event interface {
	Kind() Kind
	Time() time.Time
	isEvent()
}

type base struct {
	At time.Time `json:"at"`
}

func (b base) Time() time.Time { return b.At }
func (base) isEvent()          {}

type Started struct{ base }
type Paused struct{ base }
type Resumed struct{ base }
type Stopped struct{ base }
type Completed struct{ base }

func (Started) Kind() Kind   { return KindStarted }
func (Paused) Kind() Kind    { return KindPaused }
func (Resumed) Kind() Kind   { return KindResumed }
func (Stopped) Kind() Kind   { return KindStopped }
func (Completed) Kind() Kind { return KindCompleted }

// Tick is emitted on every recomputation step while running.
type Tick struct {
	base
	Remaining time.Duration `json:"remaining"`
	Elapsed   time.Duration `json:"elapsed"`
	Round     int           `json:"round"`
	Work      bool          `json:"work"`
	Progress  float64       `json:"progress"`
}

func (Tick) Kind() Kind { return KindTick }

// RoundStarted marks the beginning of a work or rest period.
type RoundStarted struct {
	base
	Round    int           `json:"round"`
	Work     bool          `json:"work"`
	Duration time.Duration `json:"duration"`
}

func (RoundStarted) Kind() Kind { return KindRoundStarted }

// RoundEnded marks the end of the period that was running.
type RoundEnded struct {
	base
	Round int  `json:"round"`
	Work  bool `json:"work"`
}

func (RoundEnded) Kind() Kind { return KindRoundEnded }

// WarningReached fires on every tick whose remaining time lies in
// (9s, warning].
type WarningReached struct {
	base
	Remaining time.Duration `json:"remaining"`
}

func (WarningReached) Kind() Kind { return KindWarningReached }

// CountdownStarted fires on every tick whose remaining time lies in (2s, 3s].
type CountdownStarted struct {
	base
	Remaining time.Duration `json:"remaining"`
}

func (CountdownStarted) Kind() Kind { return KindCountdownStarted }

// IsBoundary reports whether e marks a period or session boundary.
func IsBoundary(e Event) bool {
	switch e.(type) {
	case RoundStarted, RoundEnded, Completed:
		return true
	}
	return false
}
