// Package host runs a showcase on a wall-clock event loop together with the
// tracers, recorder, publisher and monitor configured for it.
package host

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/sarchlab/showcase/config"
	"github.com/sarchlab/showcase/datarecording"
	"github.com/sarchlab/showcase/idgen"
	"github.com/sarchlab/showcase/monitoring"
	"github.com/sarchlab/showcase/showcase"
	"github.com/sarchlab/showcase/timing"
	"github.com/sarchlab/showcase/tracing"
	"vawter.tech/stopper"
)

const shutdownGracePeriod = time.Second

// Showcase is the controller type a host runs.
type Showcase = showcase.Controller[config.Item]

// A Host owns one showcase at a time and the loop it runs on.
type Host struct {
	id          string
	engine      *timing.RealTimeEngine
	logger      *log.Logger
	idGenerator idgen.Generator
	configPath  string

	counter      *tracing.CountTracer
	dataRecorder datarecording.DataRecorder
	dbTracer     *tracing.DBTracer
	publisher    *tracing.RedisPublisher
	redisClient  *redis.Client
	monitor      *monitoring.Monitor

	running atomic.Bool
	runMu   sync.Mutex
	runDone chan struct{}

	// Only touched on the engine loop once Run has started.
	ctrl *Showcase
	cfg  *config.Config
}

// ID returns the identifier of the host.
func (h *Host) ID() string {
	return h.id
}

// GetEngine returns the loop the showcase runs on.
func (h *Host) GetEngine() *timing.RealTimeEngine {
	return h.engine
}

// GetDataRecorder returns the transition recorder, or nil if recording is off.
func (h *Host) GetDataRecorder() datarecording.DataRecorder {
	return h.dataRecorder
}

// GetMonitor returns the monitor, or nil if monitoring is off.
func (h *Host) GetMonitor() *monitoring.Monitor {
	return h.monitor
}

// GetCounter returns the tracer that counts transitions.
func (h *Host) GetCounter() *tracing.CountTracer {
	return h.counter
}

// Do runs f with the current showcase on the engine loop.
func (h *Host) Do(ctx context.Context, f func(s *Showcase)) error {
	return h.engine.Do(ctx, func() { f(h.ctrl) })
}

// State returns a snapshot of the current showcase.
func (h *Host) State(ctx context.Context) (showcase.State, error) {
	var state showcase.State
	err := h.Do(ctx, func(s *Showcase) { state = s.State() })

	return state, err
}

// Run serves the showcase until ctx is cancelled or Terminate is called.
func (h *Host) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	h.runMu.Lock()
	h.runDone = done
	h.runMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if h.monitor != nil {
		if _, err := h.monitor.StartServer(); err != nil {
			return err
		}
	}

	h.logger.Info("showcase running", "host", h.id, "items", len(h.cfg.Items),
		"interval", h.cfg.Interval())

	h.running.Store(true)
	defer h.running.Store(false)

	sctx := stopper.WithContext(runCtx)

	if h.publisher != nil {
		sctx.Go(func(*stopper.Context) error {
			h.publisher.Run(runCtx)
			return nil
		})
	}

	if h.configPath != "" {
		sctx.Go(func(*stopper.Context) error {
			return h.watchConfig(runCtx)
		})
	}

	err := h.engine.Run(runCtx)

	cancel()
	sctx.Stop(shutdownGracePeriod)
	err = errors.Join(err, sctx.Wait())

	if h.monitor != nil {
		shutdownCtx, done := context.WithTimeout(
			context.Background(), shutdownGracePeriod)
		err = errors.Join(err, h.monitor.Shutdown(shutdownCtx))
		done()
	}

	return err
}

// Reload replaces the showcase with one built from cfg. The old showcase is
// disposed first, so at no point do two showcases own a timer.
func (h *Host) Reload(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var installErr error
	err := h.engine.Do(ctx, func() {
		installErr = h.install(cfg)
	})

	return errors.Join(err, installErr)
}

// Terminate disposes the showcase, stops the loop and flushes every backend.
// If Run is active, Terminate waits for it to return before touching the
// showcase or the backends from the calling goroutine.
func (h *Host) Terminate() error {
	disposed := false

	if h.running.Load() {
		ctx, cancel := context.WithTimeout(context.Background(),
			shutdownGracePeriod)
		disposed = h.Do(ctx, func(s *Showcase) { s.Dispose() }) == nil
		cancel()
	}

	h.engine.Stop()

	h.runMu.Lock()
	done := h.runDone
	h.runMu.Unlock()

	if done != nil {
		<-done
	}

	if !disposed && h.ctrl != nil {
		h.ctrl.Dispose()
	}

	return h.closeBackends()
}

func (h *Host) install(cfg *config.Config) error {
	b := showcase.MakeBuilder[config.Item]().
		WithItems(cfg.Items).
		WithInterval(cfg.Interval()).
		WithScheduler(h.engine).
		WithIDGenerator(h.idGenerator).
		WithHook(h.counter)

	if cfg.CountedInteractions {
		b = b.WithCountedInteractions()
	}

	items := cfg.Items
	b = b.WithHook(tracing.NewLogTracer(h.logger).WithLabel(func(i int) string {
		return items[i].Title
	}))

	if h.dbTracer != nil {
		b = b.WithHook(h.dbTracer)
	}

	if h.publisher != nil {
		b = b.WithHook(h.publisher)
	}

	if h.ctrl != nil {
		h.ctrl.Dispose()
	}

	ctrl, err := b.Build()
	if err != nil {
		return err
	}

	h.ctrl = ctrl
	h.cfg = cfg

	if h.monitor != nil {
		h.monitor.RegisterShowcase(ctrl, cfg.Titles())
	}

	return nil
}

func (h *Host) watchConfig(ctx context.Context) error {
	return config.Watch(ctx, h.configPath, func(cfg *config.Config, err error) {
		if err != nil {
			h.logger.Warn("ignoring configuration change", "err", err)
			return
		}

		if err := h.Reload(ctx, cfg); err != nil {
			h.logger.Error("reloading configuration", "err", err)
			return
		}

		h.logger.Info("configuration reloaded", "path", h.configPath,
			"items", len(cfg.Items))
	})
}

func (h *Host) closeBackends() error {
	var err error

	if h.dataRecorder != nil {
		err = errors.Join(err, h.dataRecorder.Close())
	}

	if h.redisClient != nil {
		err = errors.Join(err, h.redisClient.Close())
	}

	return err
}
