// Package session describes a training session: how many rounds, how long
// each work and rest period lasts, and when the "time running low" window
// opens. A Config is a value; once built it never changes.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode is informational. It selects defaults, never engine behavior.
type Mode int

const (
	ModeRound Mode = iota
	ModeInterval
	ModeTabata
)

var modeNames = map[Mode]string{
	ModeRound:    "round",
	ModeInterval: "interval",
	ModeTabata:   "tabata",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts the names produced by Mode.String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Bounds.
const (
	MinRounds     = 1
	MaxRounds     = 100
	MaxWork       = time.Hour
	MaxRest       = time.Hour
	MaxWarning    = time.Minute
	DefaultWarnAt = 10 * time.Second
)

// ErrInvalidConfig is matched by every *ValidationError.
var ErrInvalidConfig = errors.New("invalid session config")

// ValidationError lists every bound a config violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid session config: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

type Config struct {
	Mode    Mode
	Rounds  int
	Work    time.Duration
	Rest    time.Duration
	Warning time.Duration
}

// New builds a config and rejects it if any bound is violated.
func New(mode Mode, rounds int, work, rest, warning time.Duration) (Config, error) {
	c := Config{
		Mode:    mode,
		Rounds:  rounds,
		Work:    work,
		Rest:    rest,
		Warning: warning,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// NewRound returns the boxing-style default: 5 rounds of 3 min work, 1 min rest.
func NewRound() Config {
	return Config{Mode: ModeRound, Rounds: 5, Work: 3 * time.Minute, Rest: time.Minute, Warning: DefaultWarnAt}
}

// NewInterval returns 8 rounds of 30s work, 15s rest.
func NewInterval() Config {
	return Config{Mode: ModeInterval, Rounds: 8, Work: 30 * time.Second, Rest: 15 * time.Second, Warning: DefaultWarnAt}
}

// NewTabata returns the fixed Tabata protocol: 8 rounds of 20s work, 10s rest.
func NewTabata() Config {
	return Config{Mode: ModeTabata, Rounds: 8, Work: 20 * time.Second, Rest: 10 * time.Second, Warning: DefaultWarnAt}
}

// Default returns the default config for a mode.
func Default(mode Mode) Config {
	switch mode {
	case ModeInterval:
		return NewInterval()
	case ModeTabata:
		return NewTabata()
	default:
		return NewRound()
	}
}

// ValidationErrors returns one message per violated bound, or nil.
func (c Config) ValidationErrors() []string {
	var problems []string
	if _, ok := modeNames[c.Mode]; !ok {
		problems = append(problems, fmt.Sprintf("unknown mode %d", int(c.Mode)))
	}
	if c.Rounds < MinRounds || c.Rounds > MaxRounds {
		problems = append(problems, fmt.Sprintf("rounds must be between %d and %d, got %d", MinRounds, MaxRounds, c.Rounds))
	}
	if c.Work <= 0 || c.Work > MaxWork {
		problems = append(problems, fmt.Sprintf("work duration must be in (0s, %s], got %s", MaxWork, c.Work))
	}
	if c.Rest < 0 || c.Rest > MaxRest {
		problems = append(problems, fmt.Sprintf("rest duration must be in [0s, %s], got %s", MaxRest, c.Rest))
	}
	if c.Warning < 0 || c.Warning > MaxWarning {
		problems = append(problems, fmt.Sprintf("warning duration must be in [0s, %s], got %s", MaxWarning, c.Warning))
	}
	return problems
}

func (c Config) Validate() error {
	if problems := c.ValidationErrors(); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (c Config) IsValid() bool {
	return len(c.ValidationErrors()) == 0
}

// TotalDuration is work for every round plus rest between rounds. There is
// no rest after the final round.
func (c Config) TotalDuration() time.Duration {
	if c.Rounds < 1 {
		return 0
	}
	return c.Work*time.Duration(c.Rounds) + c.Rest*time.Duration(c.Rounds-1)
}

// RoundDuration is one full work+rest cycle.
func (c Config) RoundDuration() time.Duration {
	return c.Work + c.Rest
}

func (c Config) PeriodDuration(work bool) time.Duration {
	if work {
		return c.Work
	}
	return c.Rest
}

// PeriodStart is the offset from session start at which the given period
// begins.
func (c Config) PeriodStart(round int, work bool) time.Duration {
	if round < 1 {
		round = 1
	}
	offset := time.Duration(round-1) * c.RoundDuration()
	if !work {
		offset += c.Work
	}
	return offset
}

// IsFinalRound reports whether round is the last one.
func (c Config) IsFinalRound(round int) bool {
	return round >= c.Rounds
}

func (c Config) String() string {
	return fmt.Sprintf("%s %d×(%s/%s)", c.Mode, c.Rounds, c.Work, c.Rest)
}
