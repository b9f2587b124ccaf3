package timer

import (
	"fmt"
	"log/slog"
	"sync"
)

// Listener receives engine events. A returned error is logged by the
// dispatcher and otherwise ignored.
type Listener interface {
	HandleEvent(Event) error
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(Event) error

func (f ListenerFunc) HandleEvent(e Event) error { return f(e) }

// Subscription identifies a registered listener. Functions are not
// comparable in Go, so removal goes through this handle.
type Subscription uint64

type registration struct {
	id       Subscription
	listener Listener
}

// Dispatcher delivers events synchronously, in registration order, to
// every registered listener. A failing listener never stops delivery to the
// ones after it.
type Dispatcher struct {
	mu        sync.Mutex
	listeners []registration
	nextID    Subscription
	logger    *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) Subscribe(l Listener) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.listeners = append(d.listeners, registration{id: d.nextID, listener: l})
	return d.nextID
}

// Unsubscribe is a no-op for unknown or already removed subscriptions.
func (d *Dispatcher) Unsubscribe(id Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, r := range d.listeners {
		if r.id == id {
			d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
			return
		}
	}
}

func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.listeners = nil
	d.mu.Unlock()
}

// Emit delivers e to a snapshot of the current listeners, so listeners may
// subscribe or unsubscribe from inside HandleEvent.
func (d *Dispatcher) Emit(e Event) {
	d.mu.Lock()
	listeners := append([]registration(nil), d.listeners...)
	d.mu.Unlock()

	for _, r := range listeners {
		if err := d.deliver(r, e); err != nil {
			d.logger.Error("event listener failed",
				"listener", uint64(r.id),
				"event", string(e.Kind()),
				"err", err,
			)
		}
	}
}

func (d *Dispatcher) deliver(r registration, e Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("listener panic: %v", p)
		}
	}()
	return r.listener.HandleEvent(e)
}
