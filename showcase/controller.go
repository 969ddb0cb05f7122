package showcase

import (
	"fmt"
	"time"

	"github.com/sarchlab/showcase/hooking"
	"github.com/sarchlab/showcase/timing"
)

// Showcase is the item-type independent surface of a Controller. Hosts that
// do not care about the item payload program against it.
type Showcase interface {
	hooking.Hookable

	ID() string
	ActiveIndex() int
	Len() int
	Interval() time.Duration
	Paused() bool
	TimerPending() bool
	Disposed() bool
	State() State

	Select(index int) error
	InteractionStart()
	InteractionEnd()
	Tick()
	Dispose()
}

// A Controller rotates through a fixed list of items.
type Controller[T any] struct {
	*hooking.HookableBase

	id        string
	items     []T
	interval  time.Duration
	scheduler timing.Scheduler

	countInteractions bool
	interactions      int

	active   int
	paused   bool
	disposed bool

	timer      timing.Timer
	generation uint64

	seq uint64
}

// ID returns the identifier given to the controller at construction.
func (c *Controller[T]) ID() string {
	return c.id
}

// ActiveIndex returns the index of the item that should be displayed.
func (c *Controller[T]) ActiveIndex() int {
	return c.active
}

// Active returns the item that should be displayed.
func (c *Controller[T]) Active() T {
	return c.items[c.active]
}

// Item returns the item at index i. It panics if i is out of range.
func (c *Controller[T]) Item(i int) T {
	return c.items[i]
}

// Items returns a copy of the items.
func (c *Controller[T]) Items() []T {
	items := make([]T, len(c.items))
	copy(items, c.items)

	return items
}

// Len returns the number of items.
func (c *Controller[T]) Len() int {
	return len(c.items)
}

// Interval returns the time between two automatic advances.
func (c *Controller[T]) Interval() time.Duration {
	return c.interval
}

// Paused reports whether automatic advancing is suppressed.
func (c *Controller[T]) Paused() bool {
	return c.paused
}

// TimerPending reports whether a tick is scheduled.
func (c *Controller[T]) TimerPending() bool {
	return c.timer != nil
}

// Disposed reports whether Dispose has been called.
func (c *Controller[T]) Disposed() bool {
	return c.disposed
}

// State returns a snapshot of the controller.
func (c *Controller[T]) State() State {
	return State{
		ID:           c.id,
		ActiveIndex:  c.active,
		Len:          len(c.items),
		Paused:       c.paused,
		TimerPending: c.timer != nil,
		Disposed:     c.disposed,
		Active:       c.items[c.active],
	}
}

// Select makes the item at index active and pauses the rotation until the
// interaction that triggered the selection ends. The pending tick, if any, is
// left alone.
func (c *Controller[T]) Select(index int) error {
	if c.disposed {
		return ErrDisposed
	}

	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: index %d with %d items",
			ErrOutOfRange, index, len(c.items))
	}

	from := c.active
	c.active = index
	c.paused = true
	c.emit(ReasonSelect, from)

	return nil
}

// InteractionStart pauses the rotation. A tick that is already scheduled
// still fires but does not advance while paused.
func (c *Controller[T]) InteractionStart() {
	if c.disposed {
		return
	}

	if c.countInteractions {
		c.interactions++
	}

	c.paused = true
	c.emit(ReasonInteractionStart, c.active)
}

// InteractionEnd resumes the rotation and schedules a tick unless one is
// already pending. With counted interactions, the rotation resumes only when
// the last interaction source has ended.
func (c *Controller[T]) InteractionEnd() {
	if c.disposed {
		return
	}

	if c.countInteractions && c.interactions > 0 {
		c.interactions--
		if c.interactions > 0 {
			return
		}
	}

	c.paused = false
	c.scheduleTick()
	c.emit(ReasonInteractionEnd, c.active)
}

// Tick applies the interval-elapsed rule immediately. A pending tick is
// cancelled first so the controller never owns two timers.
func (c *Controller[T]) Tick() {
	if c.disposed {
		return
	}

	c.cancelTimer()
	c.tick()
}

// Dispose cancels the pending tick and turns every later operation into a
// no-op. It is safe to call more than once.
func (c *Controller[T]) Dispose() {
	if c.disposed {
		return
	}

	c.cancelTimer()
	c.disposed = true
	c.emit(ReasonDispose, c.active)
}

func (c *Controller[T]) start() {
	c.scheduleTick()
	c.emit(ReasonStart, c.active)
}

func (c *Controller[T]) tick() {
	from := c.active

	if c.paused {
		// The next InteractionEnd re-arms the timer.
		c.emit(ReasonTickSuppressed, from)
		return
	}

	c.active = (c.active + 1) % len(c.items)
	c.scheduleTick()
	c.emit(ReasonTick, from)
}

func (c *Controller[T]) scheduleTick() {
	if c.timer != nil {
		return
	}

	c.generation++
	generation := c.generation
	c.timer = c.scheduler.AfterFunc(c.interval, func() {
		c.fire(generation)
	})
}

// fire runs when a scheduled tick elapses. Callbacks from timers that were
// cancelled or replaced are ignored.
func (c *Controller[T]) fire(generation uint64) {
	if c.disposed || c.timer == nil || generation != c.generation {
		return
	}

	c.timer = nil
	c.tick()
}

func (c *Controller[T]) cancelTimer() {
	if c.timer == nil {
		return
	}

	c.timer.Stop()
	c.timer = nil
	c.generation++
}

func (c *Controller[T]) emit(reason Reason, from int) {
	c.seq++

	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTransition,
		Item: Transition{
			ControllerID: c.id,
			Seq:          c.seq,
			Reason:       reason,
			From:         from,
			To:           c.active,
			Paused:       c.paused,
			TimerPending: c.timer != nil,
		},
	})
}

var _ Showcase = (*Controller[int])(nil)
