// Package timer runs a training session: it owns the work/rest state
// machine, derives every time quantity from wall-clock anchors, and reports
// what happens through typed events.
package timer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/strikesense/internal/session"
)

// State is the engine lifecycle state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StatePaused
	StateCompleted
)

var stateNames = map[State]string{
	StateStopped:   "stopped",
	StateRunning:   "running",
	StatePaused:    "paused",
	StateCompleted: "completed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrNotInitialized = errors.New("timer engine has no session config")
	ErrDisposed       = errors.New("timer engine disposed")
)

// DefaultTickInterval is the recomputation cadence. It bounds how stale the
// derived values can be, not how accurate they are.
const DefaultTickInterval = 100 * time.Millisecond

// Threshold bands, evaluated against the remaining time of the current
// period on every tick.
const (
	warningFloor   = 9 * time.Second
	countdownFloor = 2 * time.Second
	countdownCeil  = 3 * time.Second
)

// Options contains runtime options for the engine.
type Options struct {
	TickInterval time.Duration
	Clock        Clock
	Logger       *slog.Logger
}

// Snapshot is a consistent view of every query at one instant.
type Snapshot struct {
	State          State
	Config         session.Config
	Round          int
	Work           bool
	Remaining      time.Duration
	Elapsed        time.Duration
	TotalRemaining time.Duration
	Progress       float64
}

// Engine is the session state machine. Control calls may arrive from any
// goroutine; the ticker runs on its own.
type Engine struct {
	mu         sync.Mutex
	cfg        session.Config
	options    Options
	clock      Clock
	logger     *slog.Logger
	dispatcher *Dispatcher

	initialized bool
	disposed    bool

	state     State
	round     int
	work      bool
	elapsed   time.Duration
	remaining time.Duration

	startTime        time.Time
	pauseTime        time.Time
	accumulatedPause time.Duration

	done       chan struct{}
	generation uint64

	queue    []Event
	draining bool
	idle     *sync.Cond // broadcast when a drain finishes
}

// New binds an engine to cfg. An invalid cfg is rejected.
func New(cfg session.Config, options Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new timer engine: %w", err)
	}
	if options.TickInterval <= 0 {
		options.TickInterval = DefaultTickInterval
	}
	if options.Clock == nil {
		options.Clock = RealClock{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	e := &Engine{
		cfg:         cfg,
		options:     options,
		clock:       options.Clock,
		logger:      options.Logger,
		dispatcher:  NewDispatcher(options.Logger),
		initialized: true,
	}
	e.idle = sync.NewCond(&e.mu)
	e.resetCountersLocked()
	return e, nil
}

// AddEventListener registers l. Events are delivered in production order.
// An engine not built by New has nowhere to deliver to and returns 0.
func (e *Engine) AddEventListener(l Listener) Subscription {
	if e == nil || e.dispatcher == nil {
		return 0
	}
	return e.dispatcher.Subscribe(l)
}

func (e *Engine) RemoveEventListener(id Subscription) {
	if e == nil || e.dispatcher == nil {
		return
	}
	e.dispatcher.Unsubscribe(id)
}

// Start begins a stopped session or resumes a paused one. It is a no-op
// while running or completed.
func (e *Engine) Start() error {
	if e == nil {
		return ErrNotInitialized
	}
	e.mu.Lock()
	if err := e.usableLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	switch e.state {
	case StatePaused:
		e.resumeLocked()
	case StateStopped:
		e.beginLocked()
	}
	e.mu.Unlock()
	e.drain()
	return nil
}

// Resume continues a paused session. It is a no-op in any other state.
func (e *Engine) Resume() error {
	if e == nil {
		return ErrNotInitialized
	}
	e.mu.Lock()
	if err := e.usableLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.state == StatePaused {
		e.resumeLocked()
	}
	e.mu.Unlock()
	e.drain()
	return nil
}

func (e *Engine) Pause() {
	e.mu.Lock()
	if e.state != StateRunning || e.disposed {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	e.stopTickingLocked()
	e.elapsed = e.runningElapsedLocked(now)
	e.remaining = e.periodRemainingLocked()
	e.pauseTime = now
	e.state = StatePaused
	e.logger.Debug("timer paused", "elapsed", e.elapsed, "round", e.round)
	e.enqueueLocked(Paused{base{At: now}})
	e.mu.Unlock()
	e.drain()
}

// Stop halts the session. Round, period and elapsed time are kept; Reset
// clears them.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopLocked()
	e.mu.Unlock()
	e.drain()
}

// Reset stops the session and rewinds it to round 1, work period.
func (e *Engine) Reset() {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return
	}
	e.stopLocked()
	e.resetCountersLocked()
	e.logger.Debug("timer reset")
	e.mu.Unlock()
	e.drain()
}

// Skip ends the current period immediately. The anchors move with it, so
// the next tick derives the period that Skip moved to.
func (e *Engine) Skip() {
	e.mu.Lock()
	if e.disposed || (e.state != StateRunning && e.state != StatePaused) {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	ref := now
	if e.state == StatePaused {
		ref = e.pauseTime
	}

	completed := e.finishPeriodLocked(now)
	if !completed {
		e.elapsed = e.cfg.PeriodStart(e.round, e.work)
		e.startTime = ref.Add(-e.accumulatedPause - e.elapsed)
	}
	e.logger.Debug("period skipped", "round", e.round, "work", e.work, "completed", completed)
	e.mu.Unlock()
	e.drain()
}

// Dispose halts the engine and drops every listener. Events already
// queued, including the Stopped it emits, reach the listeners before
// Dispose returns, even while another goroutine is delivering. It is safe
// to call more than once, but not from inside a listener.
func (e *Engine) Dispose() {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.stopLocked()
	e.disposed = true
	e.mu.Unlock()
	e.drain()

	e.mu.Lock()
	for e.idle != nil && (e.draining || len(e.queue) > 0) {
		e.idle.Wait()
	}
	e.mu.Unlock()
	if e.dispatcher != nil {
		e.dispatcher.Clear()
	}
}

func (e *Engine) Config() session.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) CurrentRound() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.round
}

func (e *Engine) IsWorkPeriod() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.work
}

// CurrentPeriodRemaining is the value derived by the last recomputation.
func (e *Engine) CurrentPeriodRemaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// ElapsedTime is the time spent running since the last reset. While
// running it is derived from the anchors at call time.
func (e *Engine) ElapsedTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentElapsedLocked()
}

func (e *Engine) TotalRemainingTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalRemainingLocked(e.currentElapsedLocked())
}

// Progress is the elapsed fraction of the whole session, in [0, 1].
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progressLocked(e.currentElapsedLocked())
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	elapsed := e.currentElapsedLocked()
	return Snapshot{
		State:          e.state,
		Config:         e.cfg,
		Round:          e.round,
		Work:           e.work,
		Remaining:      e.remaining,
		Elapsed:        elapsed,
		TotalRemaining: e.totalRemainingLocked(elapsed),
		Progress:       e.progressLocked(elapsed),
	}
}

func (e *Engine) usableLocked() error {
	if e.disposed {
		return ErrDisposed
	}
	if !e.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (e *Engine) beginLocked() {
	now := e.clock.Now()
	// Restarting after Stop continues from the kept elapsed time so the
	// anchors agree with the kept round and period.
	e.startTime = now.Add(-e.elapsed)
	e.pauseTime = time.Time{}
	e.accumulatedPause = 0
	e.state = StateRunning
	e.logger.Debug("timer started", "session", e.cfg.String(), "elapsed", e.elapsed)
	e.enqueueLocked(Started{base{At: now}})
	if e.elapsed == e.cfg.PeriodStart(e.round, e.work) {
		e.enqueueLocked(RoundStarted{
			base:     base{At: now},
			Round:    e.round,
			Work:     e.work,
			Duration: e.cfg.PeriodDuration(e.work),
		})
	}
	e.startTickingLocked()
}

func (e *Engine) resumeLocked() {
	now := e.clock.Now()
	e.accumulatedPause += now.Sub(e.pauseTime)
	e.pauseTime = time.Time{}
	e.state = StateRunning
	e.logger.Debug("timer resumed", "paused_total", e.accumulatedPause)
	e.enqueueLocked(Resumed{base{At: now}})
	e.startTickingLocked()
}

func (e *Engine) stopLocked() {
	if e.disposed || (e.state != StateRunning && e.state != StatePaused) {
		return
	}
	now := e.clock.Now()
	e.stopTickingLocked()
	if e.state == StateRunning {
		e.elapsed = e.runningElapsedLocked(now)
		e.remaining = e.periodRemainingLocked()
	}
	e.pauseTime = time.Time{}
	e.state = StateStopped
	e.logger.Debug("timer stopped", "elapsed", e.elapsed, "round", e.round)
	e.enqueueLocked(Stopped{base{At: now}})
}

func (e *Engine) resetCountersLocked() {
	e.state = StateStopped
	e.round = 1
	e.work = true
	e.remaining = e.cfg.Work
	e.elapsed = 0
	e.startTime = time.Time{}
	e.pauseTime = time.Time{}
	e.accumulatedPause = 0
}

func (e *Engine) startTickingLocked() {
	e.generation++
	done := make(chan struct{})
	e.done = done
	go e.run(e.clock.NewTicker(e.options.TickInterval), done, e.generation)
}

func (e *Engine) stopTickingLocked() {
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
	e.generation++
}

func (e *Engine) run(ticker Ticker, done <-chan struct{}, generation uint64) {
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C():
			e.tick(generation)
		}
	}
}

// tick performs one recomputation step unless the ticker that produced it
// has been halted since.
func (e *Engine) tick(generation uint64) {
	e.mu.Lock()
	if e.state != StateRunning || generation != e.generation {
		e.mu.Unlock()
		return
	}
	e.stepLocked(e.clock.Now())
	e.mu.Unlock()
	e.drain()
}

// stepLocked re-derives everything from the anchors. Tick is queued before
// any boundary event of the same step.
func (e *Engine) stepLocked(now time.Time) {
	e.elapsed = e.runningElapsedLocked(now)
	e.remaining = e.periodRemainingLocked()

	e.enqueueLocked(Tick{
		base:      base{At: now},
		Remaining: e.remaining,
		Elapsed:   e.elapsed,
		Round:     e.round,
		Work:      e.work,
		Progress:  e.progressLocked(e.elapsed),
	})

	// More than one boundary may have passed if the scheduler stalled.
	for e.remaining <= 0 {
		if e.finishPeriodLocked(now) {
			return
		}
		e.remaining = e.periodRemainingLocked()
	}

	if e.remaining > warningFloor && e.remaining <= e.cfg.Warning {
		e.enqueueLocked(WarningReached{base: base{At: now}, Remaining: e.remaining})
	}
	if e.remaining > countdownFloor && e.remaining <= countdownCeil {
		e.enqueueLocked(CountdownStarted{base: base{At: now}, Remaining: e.remaining})
	}

	if e.elapsed >= e.cfg.TotalDuration() {
		e.completeLocked(now)
	}
}

// finishPeriodLocked ends the current period and reports whether that
// completed the session.
func (e *Engine) finishPeriodLocked(now time.Time) bool {
	e.enqueueLocked(RoundEnded{base: base{At: now}, Round: e.round, Work: e.work})

	if e.work && e.cfg.IsFinalRound(e.round) {
		e.completeLocked(now)
		return true
	}
	if e.work && e.cfg.Rest > 0 {
		e.work = false
	} else {
		e.round++
		e.work = true
	}
	e.remaining = e.cfg.PeriodDuration(e.work)
	e.enqueueLocked(RoundStarted{
		base:     base{At: now},
		Round:    e.round,
		Work:     e.work,
		Duration: e.remaining,
	})
	return false
}

func (e *Engine) completeLocked(now time.Time) {
	e.stopTickingLocked()
	e.pauseTime = time.Time{}
	e.elapsed = e.cfg.TotalDuration()
	e.remaining = 0
	e.state = StateCompleted
	e.logger.Debug("session completed", "session", e.cfg.String())
	e.enqueueLocked(Completed{base{At: now}})
}

func (e *Engine) runningElapsedLocked(now time.Time) time.Duration {
	return now.Sub(e.startTime) - e.accumulatedPause
}

func (e *Engine) currentElapsedLocked() time.Duration {
	switch e.state {
	case StateRunning:
		return e.runningElapsedLocked(e.clock.Now())
	case StatePaused:
		return e.pauseTime.Sub(e.startTime) - e.accumulatedPause
	}
	return e.elapsed
}

func (e *Engine) periodRemainingLocked() time.Duration {
	periodElapsed := e.elapsed - e.cfg.PeriodStart(e.round, e.work)
	remaining := e.cfg.PeriodDuration(e.work) - periodElapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (e *Engine) totalRemainingLocked(elapsed time.Duration) time.Duration {
	remaining := e.cfg.TotalDuration() - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (e *Engine) progressLocked(elapsed time.Duration) float64 {
	total := e.cfg.TotalDuration()
	if total <= 0 {
		return 0
	}
	progress := float64(elapsed) / float64(total)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

func (e *Engine) enqueueLocked(ev Event) {
	e.queue = append(e.queue, ev)
}

// drain delivers queued events outside the lock. Only one goroutine drains
// at a time, which keeps delivery in production order and lets listeners
// call back into the engine.
func (e *Engine) drain() {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	for len(e.queue) > 0 {
		ev := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()
		e.dispatcher.Emit(ev)
		e.mu.Lock()
	}
	e.queue = nil
	e.draining = false
	if e.idle != nil {
		e.idle.Broadcast()
	}
	e.mu.Unlock()
}
