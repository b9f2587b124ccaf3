package ws

import (
	"time"

	"github.com/sadopc/strikesense/internal/timer"
)

// MsgSnapshot carries the full engine state. Every other message type is
// the Kind of the engine event it reports.
const MsgSnapshot = "snapshot"

type WSMessage struct {
	Type    string      `json:"type"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload"`
}

type SnapshotPayload struct {
	State            string  `json:"state"`
	Mode             string  `json:"mode"`
	Rounds           int     `json:"rounds"`
	Round            int     `json:"round"`
	Work             bool    `json:"work"`
	RemainingMs      int64   `json:"remainingMs"`
	ElapsedMs        int64   `json:"elapsedMs"`
	TotalRemainingMs int64   `json:"totalRemainingMs"`
	Progress         float64 `json:"progress"`
}

type TickPayload struct {
	RemainingMs int64   `json:"remainingMs"`
	ElapsedMs   int64   `json:"elapsedMs"`
	Round       int     `json:"round"`
	Work        bool    `json:"work"`
	Progress    float64 `json:"progress"`
}

type PeriodPayload struct {
	Round      int   `json:"round"`
	Work       bool  `json:"work"`
	DurationMs int64 `json:"durationMs,omitempty"`
}

type RemainingPayload struct {
	RemainingMs int64 `json:"remainingMs"`
}

type emptyPayload struct{}

func snapshotMessage(s timer.Snapshot) WSMessage {
	return WSMessage{
		Type: MsgSnapshot,
		At:   time.Now(),
		Payload: SnapshotPayload{
			State:            s.State.String(),
			Mode:             s.Config.Mode.String(),
			Rounds:           s.Config.Rounds,
			Round:            s.Round,
			Work:             s.Work,
			RemainingMs:      s.Remaining.Milliseconds(),
			ElapsedMs:        s.Elapsed.Milliseconds(),
			TotalRemainingMs: s.TotalRemaining.Milliseconds(),
			Progress:         s.Progress,
		},
	}
}

func eventMessage(e timer.Event) WSMessage {
	msg := WSMessage{Type: string(e.Kind()), At: e.Time(), Payload: emptyPayload{}}
	switch ev := e.(type) {
	case timer.Tick:
		msg.Payload = TickPayload{
			RemainingMs: ev.Remaining.Milliseconds(),
			ElapsedMs:   ev.Elapsed.Milliseconds(),
			Round:       ev.Round,
			Work:        ev.Work,
			Progress:    ev.Progress,
		}
	case timer.RoundStarted:
		msg.Payload = PeriodPayload{Round: ev.Round, Work: ev.Work, DurationMs: ev.Duration.Milliseconds()}
	case timer.RoundEnded:
		msg.Payload = PeriodPayload{Round: ev.Round, Work: ev.Work}
	case timer.WarningReached:
		msg.Payload = RemainingPayload{RemainingMs: ev.Remaining.Milliseconds()}
	case timer.CountdownStarted:
		msg.Payload = RemainingPayload{RemainingMs: ev.Remaining.Milliseconds()}
	}
	return msg
}
