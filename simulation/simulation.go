// Package simulation replays renderer actions against a showcase on a
// virtual clock, so that a rotation schedule can be checked without waiting
// for it.
package simulation

import (
	"fmt"
	"time"

	"github.com/sarchlab/showcase/config"
	"github.com/sarchlab/showcase/datarecording"
	"github.com/sarchlab/showcase/hooking"
	"github.com/sarchlab/showcase/showcase"
	"github.com/sarchlab/showcase/timing"
	"github.com/sarchlab/showcase/tracing"
)

// Entry is a transition together with the virtual time it happened at.
type Entry struct {
	At time.Duration
	showcase.Transition
}

// timeline collects every transition of a simulated showcase.
type timeline struct {
	clock   timing.TimeTeller
	entries []Entry
}

func (t *timeline) Func(ctx hooking.HookCtx) {
	if ctx.Pos != showcase.HookPosTransition {
		return
	}

	tr, ok := ctx.Item.(showcase.Transition)
	if !ok {
		return
	}

	t.entries = append(t.entries, Entry{At: t.clock.CurrentTime(), Transition: tr})
}

// A Simulation is a showcase running on a virtual clock with a script of
// renderer actions.
type Simulation struct {
	id     string
	engine *timing.SerialEngine
	ctrl   *showcase.Controller[config.Item]
	script Script

	counter      *tracing.CountTracer
	timeline     timeline
	dataRecorder datarecording.DataRecorder
	outputFile   string
}

// ID returns the identifier of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the virtual-clock engine.
func (s *Simulation) GetEngine() *timing.SerialEngine {
	return s.engine
}

// GetShowcase returns the simulated showcase.
func (s *Simulation) GetShowcase() *showcase.Controller[config.Item] {
	return s.ctrl
}

// GetCounter returns the tracer that counts transitions.
func (s *Simulation) GetCounter() *tracing.CountTracer {
	return s.counter
}

// GetDataRecorder returns the recorder, or nil if recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// OutputFile returns the SQLite file transitions are recorded into, or an
// empty string if recording is off.
func (s *Simulation) OutputFile() string {
	return s.outputFile
}

// Timeline returns the transitions seen so far.
func (s *Simulation) Timeline() []Entry {
	entries := make([]Entry, len(s.timeline.entries))
	copy(entries, s.timeline.entries)

	return entries
}

// Run advances the virtual clock by d, applying script steps and ticks in
// time order. A step that falls on the same instant as a tick runs first.
func (s *Simulation) Run(d time.Duration) error {
	return s.engine.Advance(d)
}

// Handle applies a script step to the showcase.
func (s *Simulation) Handle(event any) error {
	step, ok := event.(Step)
	if !ok {
		return &timing.UnknownEventError{Event: event}
	}

	switch step.Action {
	case ActionInteractionStart:
		s.ctrl.InteractionStart()
	case ActionInteractionEnd:
		s.ctrl.InteractionEnd()
	case ActionTick:
		s.ctrl.Tick()
	case ActionDispose:
		s.ctrl.Dispose()
	case ActionSelect:
		if err := s.ctrl.Select(step.Index); err != nil {
			return fmt.Errorf("step %s: %w", step, err)
		}
	}

	return nil
}

func (s *Simulation) scheduleScript() {
	for _, step := range s.script {
		s.engine.Schedule(timing.ScheduledEvent{
			Event:   step,
			Time:    step.At,
			Handler: s,
		})
	}
}

// Terminate disposes the showcase and closes the recorder.
func (s *Simulation) Terminate() error {
	if s.ctrl != nil {
		s.ctrl.Dispose()
	}

	if s.dataRecorder != nil {
		return s.dataRecorder.Close()
	}

	return nil
}
