package timing

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/sarchlab/showcase/hooking"
)

// SerialEngine processes scheduled events one after another on a virtual
// clock. Time only moves when the engine runs an event or is advanced, so
// runs are deterministic.
type SerialEngine struct {
	*hooking.HookableBase

	timeLock sync.RWMutex
	now      time.Duration

	queue *futureEventQueue

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewSerialEngine creates a SerialEngine whose clock starts at zero.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		HookableBase: hooking.NewHookableBase(),
		queue:        newFutureEventQueue(),
	}
}

// Schedule registers an event to be handled in the future. Scheduling an
// event earlier than the current time panics.
func (e *SerialEngine) Schedule(evt ScheduledEvent) Timer {
	now := e.readNow()
	if evt.Time < now {
		panic(fmt.Sprintf(
			"timing: cannot schedule event in the past, evt %s @ %s, now %s",
			reflect.TypeOf(evt.Event), evt.Time, now,
		))
	}

	return &queuedTimer{queue: e.queue, evt: e.queue.Push(evt)}
}

// AfterFunc schedules f to run d after the current virtual time.
func (e *SerialEngine) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}

	return e.Schedule(ScheduledEvent{
		Event:   &FuncEvent{F: f},
		Time:    e.readNow() + d,
		Handler: funcHandler{},
	})
}

func (e *SerialEngine) readNow() time.Duration {
	e.timeLock.RLock()
	t := e.now
	e.timeLock.RUnlock()

	return t
}

func (e *SerialEngine) writeNow(t time.Duration) {
	e.timeLock.Lock()
	e.now = t
	e.timeLock.Unlock()
}

// Run processes all scheduled events until the queue is empty. Note that a
// running showcase re-arms itself forever; use RunUntil or Advance to drive
// one.
func (e *SerialEngine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		evt := e.queue.Peek()
		if evt == nil {
			return nil
		}

		if err := e.runNext(); err != nil {
			return err
		}
	}
}

// RunUntil processes every event scheduled at or before t and then moves the
// clock to t.
func (e *SerialEngine) RunUntil(t time.Duration) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		evt := e.queue.Peek()
		if evt == nil || evt.Time > t {
			break
		}

		if err := e.runNext(); err != nil {
			return err
		}
	}

	if t > e.readNow() {
		e.writeNow(t)
	}

	return nil
}

// Advance moves the clock forward by d, running every event that falls due.
func (e *SerialEngine) Advance(d time.Duration) error {
	return e.RunUntil(e.readNow() + d)
}

func (e *SerialEngine) runNext() error {
	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	evt := e.queue.Pop()
	if evt == nil {
		return nil
	}

	now := e.readNow()
	if evt.Time < now {
		panic(fmt.Sprintf(
			"timing: cannot run event in the past, evt %s @ %s, now %s",
			reflect.TypeOf(evt.Event), evt.Time, now,
		))
	}

	e.writeNow(evt.Time)

	hookCtx := hooking.HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt.ScheduledEvent,
	}
	e.InvokeHook(hookCtx)

	var err error
	if evt.Handler != nil {
		err = evt.Handler.Handle(evt.Event)
	}

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)

	if err != nil {
		return fmt.Errorf("timing: handling %T @ %s: %w",
			evt.Event, evt.Time, err)
	}

	return nil
}

// Pending returns the number of events waiting in the queue.
func (e *SerialEngine) Pending() int {
	return e.queue.Len()
}

// Pause prevents the engine from dispatching more events until Continue is
// called.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue resumes event processing after a Pause.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// CurrentTime returns the virtual time of the most recently executed event,
// or the time the engine was last advanced to.
func (e *SerialEngine) CurrentTime() time.Duration {
	return e.readNow()
}

type queuedTimer struct {
	queue *futureEventQueue
	evt   *futureEvent
}

func (t *queuedTimer) Stop() bool {
	return t.queue.Remove(t.evt)
}

var (
	_ EventScheduler = (*SerialEngine)(nil)
	_ Scheduler      = (*SerialEngine)(nil)
)
