package cue

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/sadopc/strikesense/internal/timer"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ============================================================
// Event mapping
// ============================================================

func TestCues(t *testing.T) {
	tests := []struct {
		name  string
		event timer.Event
		want  []Cue
	}{
		{"work starts", timer.RoundStarted{Round: 2, Work: true}, []Cue{RoundStart, WorkStart}},
		{"rest starts", timer.RoundStarted{Round: 2, Work: false}, []Cue{RestStart}},
		{"work ends", timer.RoundEnded{Round: 1, Work: true}, []Cue{RoundEnd}},
		{"rest ends", timer.RoundEnded{Round: 1, Work: false}, nil},
		{"completed", timer.Completed{}, []Cue{TimerComplete}},
		{"paused", timer.Paused{}, []Cue{Pause}},
		{"resumed", timer.Resumed{}, []Cue{Resume}},
		{"warning", timer.WarningReached{Remaining: 9500 * time.Millisecond}, []Cue{Warning}},
		{"countdown", timer.CountdownStarted{Remaining: 3 * time.Second}, []Cue{Countdown}},
		{"tick", timer.Tick{}, nil},
		{"started", timer.Started{}, nil},
		{"stopped", timer.Stopped{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cues(tt.event)
			if len(got) != len(tt.want) {
				t.Fatalf("Cues = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Cues = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestAllCoversEveryMappedCue(t *testing.T) {
	known := make(map[Cue]bool)
	for _, c := range All() {
		known[c] = true
	}
	if len(known) != 9 {
		t.Fatalf("expected 9 distinct cues, got %d", len(known))
	}
}

// ============================================================
// Mapper
// ============================================================

func TestMapperPlaysInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	player := NewMockPlayer(ctrl)

	gomock.InOrder(
		player.EXPECT().Play(gomock.Any(), RoundStart).Return(nil),
		player.EXPECT().Play(gomock.Any(), WorkStart).Return(nil),
		player.EXPECT().Play(gomock.Any(), RoundEnd).Return(nil),
		player.EXPECT().Play(gomock.Any(), TimerComplete).Return(nil),
	)

	m := New(player, true, quietLogger())
	m.HandleEvent(timer.Started{})
	m.HandleEvent(timer.RoundStarted{Round: 1, Work: true})
	m.HandleEvent(timer.Tick{})
	m.HandleEvent(timer.RoundEnded{Round: 1, Work: true})
	m.HandleEvent(timer.Completed{})
}

func TestMapperDebouncesBands(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	player := NewMockPlayer(ctrl)

	player.EXPECT().Play(gomock.Any(), Warning).Return(nil).Times(2)
	player.EXPECT().Play(gomock.Any(), Countdown).Return(nil).Times(1)
	player.EXPECT().Play(gomock.Any(), RestStart).Return(nil).Times(1)

	m := New(player, true, quietLogger())
	for i := 0; i < 5; i++ {
		m.HandleEvent(timer.WarningReached{Remaining: 10*time.Second - time.Duration(i)*100*time.Millisecond})
	}
	for i := 0; i < 5; i++ {
		m.HandleEvent(timer.CountdownStarted{Remaining: 3*time.Second - time.Duration(i)*100*time.Millisecond})
	}

	// A new period re-arms the warning band.
	m.HandleEvent(timer.RoundStarted{Round: 1, Work: false})
	m.HandleEvent(timer.WarningReached{Remaining: 10 * time.Second})
	m.HandleEvent(timer.WarningReached{Remaining: 9900 * time.Millisecond})
}

func TestMapperBoundaryRearmsBands(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	player := NewMockPlayer(ctrl)
	gomock.InOrder(
		player.EXPECT().Play(gomock.Any(), Warning).Return(nil),
		player.EXPECT().Play(gomock.Any(), RoundEnd).Return(nil),
		player.EXPECT().Play(gomock.Any(), Warning).Return(nil),
	)

	m := New(player, true, quietLogger())
	m.HandleEvent(timer.WarningReached{Remaining: 9800 * time.Millisecond})
	m.HandleEvent(timer.RoundEnded{Round: 1, Work: true})
	m.HandleEvent(timer.WarningReached{Remaining: 9800 * time.Millisecond})
}

func TestMapperWithoutDebounce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	player := NewMockPlayer(ctrl)
	player.EXPECT().Play(gomock.Any(), Warning).Return(nil).Times(3)

	m := New(player, false, quietLogger())
	for i := 0; i < 3; i++ {
		m.HandleEvent(timer.WarningReached{Remaining: 9500 * time.Millisecond})
	}
}

func TestMapperPauseDoesNotRearm(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	player := NewMockPlayer(ctrl)
	gomock.InOrder(
		player.EXPECT().Play(gomock.Any(), Warning).Return(nil),
		player.EXPECT().Play(gomock.Any(), Pause).Return(nil),
		player.EXPECT().Play(gomock.Any(), Resume).Return(nil),
	)

	m := New(player, true, quietLogger())
	m.HandleEvent(timer.WarningReached{Remaining: 9800 * time.Millisecond})
	m.HandleEvent(timer.Paused{})
	m.HandleEvent(timer.Resumed{})
	m.HandleEvent(timer.WarningReached{Remaining: 9700 * time.Millisecond})
}

func TestMapperSwallowsPlayerErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	player := NewMockPlayer(ctrl)
	player.EXPECT().Play(gomock.Any(), RoundStart).Return(errors.New("device busy"))
	player.EXPECT().Play(gomock.Any(), WorkStart).Return(nil)

	var buf bytes.Buffer
	m := New(player, true, slog.New(slog.NewTextHandler(&buf, nil)))
	if err := m.HandleEvent(timer.RoundStarted{Round: 1, Work: true}); err != nil {
		t.Fatalf("HandleEvent returned %v", err)
	}
	if !strings.Contains(buf.String(), "device busy") {
		t.Fatalf("player error not logged:\n%s", buf.String())
	}
}

func TestMapperPassesDeadline(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	player := NewMockPlayer(ctrl)
	player.EXPECT().Play(gomock.Any(), Pause).DoAndReturn(func(ctx context.Context, c Cue) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("play context has no deadline")
		}
		return nil
	})

	New(player, true, quietLogger()).HandleEvent(timer.Paused{})
}

// ============================================================
// Players
// ============================================================

func TestBellPlayer(t *testing.T) {
	var buf bytes.Buffer
	p := NewBellPlayer(&buf)
	ctx := context.Background()

	p.Play(ctx, RoundEnd)
	p.Play(ctx, Pause)
	p.Play(ctx, TimerComplete)
	if got := strings.Count(buf.String(), "\a"); got != 5 {
		t.Fatalf("bells = %d, want 5", got)
	}
}

func TestBellPlayerCancelled(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewBellPlayer(&buf).Play(ctx, Warning); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("cancelled play still rang")
	}
}

func TestLogPlayer(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPlayer(slog.New(slog.NewTextHandler(&buf, nil)))
	p.Play(context.Background(), Countdown)
	if !strings.Contains(buf.String(), "name=countdown") {
		t.Fatalf("log = %q", buf.String())
	}
}

func TestMultiTriesEveryPlayer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	first := NewMockPlayer(ctrl)
	second := NewMockPlayer(ctrl)
	first.EXPECT().Play(gomock.Any(), Resume).Return(errors.New("first failed"))
	second.EXPECT().Play(gomock.Any(), Resume).Return(nil)

	err := Multi{first, second}.Play(context.Background(), Resume)
	if err == nil || !strings.Contains(err.Error(), "first failed") {
		t.Fatalf("expected joined error, got %v", err)
	}
}
