package store

import (
	"time"

	"github.com/sadopc/strikesense/internal/session"
)

type Preset struct {
	ID        int64
	Name      string
	Mode      session.Mode
	Rounds    int
	Work      time.Duration
	Rest      time.Duration
	Warning   time.Duration
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Config rebuilds the session config the preset describes.
func (p Preset) Config() (session.Config, error) {
	return session.New(p.Mode, p.Rounds, p.Work, p.Rest, p.Warning)
}

// Session statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
	StatusAbandoned = "abandoned" // still running when the app last exited
)

// Session is one recorded run of the timer.
type Session struct {
	ID              int64
	PresetID        *int64
	PresetName      string
	Mode            session.Mode
	Rounds          int
	Work            time.Duration
	Rest            time.Duration
	RoundsCompleted int
	ActiveSeconds   int64
	Status          string
	StartedAt       time.Time
	EndedAt         *time.Time
}

type Setting struct {
	Key   string
	Value string
}

// SessionFilter is used to filter sessions in queries.
type SessionFilter struct {
	PresetID *int64
	Status   string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// DailyTotal aggregates finished sessions per day.
type DailyTotal struct {
	Date          string
	Sessions      int
	Completed     int
	ActiveSeconds int64
}
