// Package timing provides the event loops that drive showcase controllers: a
// virtual-clock SerialEngine for deterministic runs and a wall-clock
// RealTimeEngine for live hosts.
package timing

import (
	"time"

	"github.com/sarchlab/showcase/hooking"
)

// Handler processes events of various types. Events are plain data; handlers
// use type switching to tell them apart.
type Handler interface {
	Handle(event any) error
}

// TimeTeller exposes the current time of an event loop, measured from the
// moment the loop was created.
type TimeTeller interface {
	CurrentTime() time.Duration
}

// EventScheduler schedules events in the timeline of an engine.
type EventScheduler interface {
	TimeTeller
	Schedule(evt ScheduledEvent) Timer
}

// Scheduler runs a callback once after a delay and returns a handle that can
// cancel it. It is the only environmental capability a showcase controller
// depends on.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable handle for one scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// ScheduledEvent is the engine-facing wrapper for user-defined events.
type ScheduledEvent struct {
	// Event is the data payload delivered to the handler.
	Event any

	// Time is when the event should be processed.
	Time time.Duration

	// Handler is the component that will process this event.
	Handler Handler
}

// FuncEvent is the payload AfterFunc schedules.
type FuncEvent struct {
	F func()
}

type funcHandler struct{}

func (funcHandler) Handle(event any) error {
	evt, ok := event.(*FuncEvent)
	if !ok {
		return &UnknownEventError{Event: event}
	}

	evt.F()

	return nil
}

// HookPosBeforeEvent is a hook position that triggers before handling an
// event.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}
