package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/strikesense/internal/timer"
)

// engineEventsMsg carries every event queued since the last delivery.
type engineEventsMsg struct {
	events []timer.Event
}

// eventBridge moves engine events into the Bubble Tea loop. HandleEvent
// never blocks the engine. Consecutive ticks collapse into the newest one
// when the UI falls behind; every other event is kept.
type eventBridge struct {
	mu      sync.Mutex
	pending []timer.Event
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newEventBridge() *eventBridge {
	return &eventBridge{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (b *eventBridge) HandleEvent(e timer.Event) error {
	b.mu.Lock()
	if _, ok := e.(timer.Tick); ok && len(b.pending) > 0 {
		if _, last := b.pending[len(b.pending)-1].(timer.Tick); last {
			b.pending[len(b.pending)-1] = e
			b.mu.Unlock()
			return nil
		}
	}
	b.pending = append(b.pending, e)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// take returns and clears the queued events.
func (b *eventBridge) take() []timer.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.pending
	b.pending = nil
	return events
}

// waitForEvent blocks until events are queued or the bridge is closed.
func (b *eventBridge) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case <-b.notify:
			case <-b.done:
				return nil
			}
			if events := b.take(); len(events) > 0 {
				return engineEventsMsg{events: events}
			}
		}
	}
}

func (b *eventBridge) close() {
	b.once.Do(func() { close(b.done) })
}
