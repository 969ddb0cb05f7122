package timing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sarchlab/showcase/hooking"
	"vawter.tech/stopper"
)

const stopGracePeriod = 100 * time.Millisecond

// RealTimeEngine is a wall-clock event loop. Timer callbacks and host events
// posted from any goroutine run one at a time, in delivery order, on the
// goroutine started by Run.
type RealTimeEngine struct {
	*hooking.HookableBase

	start  time.Time
	logger *log.Logger

	mu      sync.Mutex
	pending []func()
	timers  map[*realTimer]struct{}
	notify  chan struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRealTimeEngine creates a RealTimeEngine. Its clock starts now.
func NewRealTimeEngine() *RealTimeEngine {
	return &RealTimeEngine{
		HookableBase: hooking.NewHookableBase(),
		start:        time.Now(),
		logger:       log.Default(),
		timers:       make(map[*realTimer]struct{}),
		notify:       make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
	}
}

// WithLogger sets where handler errors are reported.
func (e *RealTimeEngine) WithLogger(logger *log.Logger) *RealTimeEngine {
	e.logger = logger
	return e
}

// CurrentTime returns the wall time elapsed since the engine was created.
func (e *RealTimeEngine) CurrentTime() time.Duration {
	return time.Since(e.start)
}

// Schedule runs evt.Handler with evt.Event once the wall clock reaches
// evt.Time. Times in the past fire immediately.
func (e *RealTimeEngine) Schedule(evt ScheduledEvent) Timer {
	return e.afterFunc(evt.Time-e.CurrentTime(), evt)
}

// AfterFunc runs f on the loop goroutine once d has elapsed.
func (e *RealTimeEngine) AfterFunc(d time.Duration, f func()) Timer {
	return e.afterFunc(d, ScheduledEvent{
		Event:   &FuncEvent{F: f},
		Time:    e.CurrentTime() + d,
		Handler: funcHandler{},
	})
}

func (e *RealTimeEngine) afterFunc(d time.Duration, evt ScheduledEvent) Timer {
	if d < 0 {
		d = 0
	}

	t := &realTimer{engine: e}

	e.mu.Lock()
	e.timers[t] = struct{}{}
	e.mu.Unlock()

	t.mu.Lock()
	t.timer = time.AfterFunc(d, func() {
		e.Post(func() {
			if !t.claim() {
				return
			}

			e.dispatch(evt)
		})
	})
	t.mu.Unlock()

	return t
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (e *RealTimeEngine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.timers)
}

// Post queues f to run on the loop goroutine. It returns false if the engine
// has been stopped.
func (e *RealTimeEngine) Post(f func()) bool {
	select {
	case <-e.stopCh:
		return false
	default:
	}

	e.mu.Lock()
	e.pending = append(e.pending, f)
	e.mu.Unlock()

	select {
	case e.notify <- struct{}{}:
	default:
	}

	return true
}

// Do runs f on the loop goroutine and waits for it to finish.
func (e *RealTimeEngine) Do(ctx context.Context, f func()) error {
	done := make(chan struct{})

	ok := e.Post(func() {
		defer close(done)
		f()
	})
	if !ok {
		return ErrEngineStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopCh:
		return ErrEngineStopped
	}
}

// Run processes posted work until ctx is cancelled or Stop is called.
func (e *RealTimeEngine) Run(ctx context.Context) error {
	sctx := stopper.WithContext(ctx)
	sctx.Defer(e.stopAllTimers)

	sctx.Go(func(sctx *stopper.Context) error {
		for {
			select {
			case <-sctx.Stopping():
				return nil
			case <-e.notify:
				e.drain()
			}
		}
	})

	select {
	case <-ctx.Done():
		e.Stop()
	case <-e.stopCh:
	}

	sctx.Stop(stopGracePeriod)

	return sctx.Wait()
}

// Stop ends Run and cancels every outstanding timer. It is safe to call more
// than once.
func (e *RealTimeEngine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
}

func (e *RealTimeEngine) drain() {
	for {
		e.mu.Lock()
		if len(e.pending) == 0 {
			e.mu.Unlock()
			return
		}

		f := e.pending[0]
		e.pending[0] = nil
		e.pending = e.pending[1:]
		e.mu.Unlock()

		f()
	}
}

func (e *RealTimeEngine) dispatch(evt ScheduledEvent) {
	hookCtx := hooking.HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(hookCtx)

	var err error
	if evt.Handler != nil {
		err = evt.Handler.Handle(evt.Event)
	}

	// The loop keeps going; the error is logged and passed to the
	// after-event hooks as Detail.
	if err != nil {
		err = fmt.Errorf("timing: handling %T @ %s: %w", evt.Event, evt.Time, err)
		e.logger.Error("event handler failed", "err", err)
		hookCtx.Detail = err
	}

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)
}

func (e *RealTimeEngine) forget(t *realTimer) {
	e.mu.Lock()
	delete(e.timers, t)
	e.mu.Unlock()
}

func (e *RealTimeEngine) stopAllTimers() {
	e.mu.Lock()
	timers := make([]*realTimer, 0, len(e.timers))
	for t := range e.timers {
		timers = append(timers, t)
	}
	e.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
}

// realTimer can be stopped after the wall-clock timer fired but before the
// loop ran the callback; claim makes that late callback a no-op.
type realTimer struct {
	engine *RealTimeEngine
	timer  *time.Timer

	mu      sync.Mutex
	fired   bool
	stopped bool
}

func (t *realTimer) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return false
	}

	t.fired = true
	t.engine.forget(t)

	return true
}

func (t *realTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}

	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.engine.forget(t)

	return true
}

var (
	_ EventScheduler = (*RealTimeEngine)(nil)
	_ Scheduler      = (*RealTimeEngine)(nil)
)
