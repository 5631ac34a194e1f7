// Package undo holds at most one pending destructive action and either
// reverses it on request or finalizes it once its grace period runs out.
package undo

import (
	"log/slog"
	"sync"
	"time"
)

// ActionUndo is the only action a toast offers.
const ActionUndo = "undo"

// Timer is a cancellable countdown.
type Timer interface {
	Stop() bool
}

// Scheduler starts countdowns. The default uses time.AfterFunc; tests inject
// a manual one.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// State of the single undo slot.
type State int

const (
	StateNone State = iota
	StatePending
)

func (s State) String() string {
	if s == StatePending {
		return "pending"
	}
	return "none"
}

// Toast is what the presentation layer shows while an action can be undone.
type Toast struct {
	Message   string    `json:"message"`
	Action    string    `json:"action"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type pendingAction struct {
	gen      uint64
	message  string
	undo     func()
	finalize func()
	deadline time.Time
	timer    Timer
}

// Controller is the one-slot undo state machine. Scheduling a new action
// replaces the pending one; the replaced action is neither undone nor
// finalized.
type Controller struct {
	mu      sync.Mutex
	sched   Scheduler
	now     func() time.Time
	log     *slog.Logger
	gen     uint64
	pending *pendingAction
}

type Option func(*Controller)

func WithScheduler(s Scheduler) Option { return func(c *Controller) { c.sched = s } }

func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.log = l } }

func NewController(opts ...Option) *Controller {
	c := &Controller{
		sched: realScheduler{},
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schedule records a reversible action. undoFn runs on Undo; finalizeFn runs
// when grace elapses without an undo. Either may be nil.
func (c *Controller) Schedule(message string, undoFn, finalizeFn func(), grace time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		c.pending.timer.Stop()
		c.log.Debug("undo: pending action replaced", "message", c.pending.message)
	}

	c.gen++
	gen := c.gen
	p := &pendingAction{
		gen:      gen,
		message:  message,
		undo:     undoFn,
		finalize: finalizeFn,
		deadline: c.now().Add(grace),
	}
	c.pending = p
	p.timer = c.sched.AfterFunc(grace, func() { c.expire(gen) })
}

func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	p := c.pending
	if p == nil || p.gen != gen {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.mu.Unlock()

	if p.finalize != nil {
		p.finalize()
	}
}

// take clears the slot and returns what was pending.
func (c *Controller) take() *pendingAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pending
	if p == nil {
		return nil
	}
	p.timer.Stop()
	c.pending = nil
	return p
}

// Undo reverses the pending action. It reports false when nothing was
// pending.
func (c *Controller) Undo() bool {
	p := c.take()
	if p == nil {
		return false
	}
	if p.undo != nil {
		p.undo()
	}
	return true
}

// Cancel drops the pending action without undoing or finalizing it.
func (c *Controller) Cancel() bool {
	return c.take() != nil
}

// Flush finalizes the pending action immediately.
func (c *Controller) Flush() bool {
	p := c.take()
	if p == nil {
		return false
	}
	if p.finalize != nil {
		p.finalize()
	}
	return true
}

// State reports whether an action is pending.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return StateNone
	}
	return StatePending
}

// Pending returns the toast for the pending action, if any.
func (c *Controller) Pending() (Toast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Toast{}, false
	}
	return Toast{Message: c.pending.message, Action: ActionUndo, ExpiresAt: c.pending.deadline}, true
}
