package timer

import (
	"sync"
	"time"
)

// manualClock only moves when told to. Its tickers never fire on their own;
// tests drive recomputation through step.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	return &manualTicker{ch: make(chan time.Time)}
}

type manualTicker struct {
	ch chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               {}

// step runs one recomputation as the ticker goroutine would.
func step(e *Engine) {
	e.mu.Lock()
	generation := e.generation
	e.mu.Unlock()
	e.tick(generation)
}

// advance moves the clock forward and runs one recomputation.
func advance(c *manualClock, e *Engine, d time.Duration) {
	c.Advance(d)
	step(e)
}
