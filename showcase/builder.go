package showcase

import (
	"time"

	"github.com/sarchlab/showcase/hooking"
	"github.com/sarchlab/showcase/idgen"
	"github.com/sarchlab/showcase/timing"
)

// DefaultInterval is the time between two automatic advances unless the
// builder is told otherwise.
const DefaultInterval = 5 * time.Second

// Builder can build showcase controllers.
type Builder[T any] struct {
	interval          time.Duration
	items             []T
	scheduler         timing.Scheduler
	countInteractions bool
	idGenerator       idgen.Generator
	hooks             []hooking.Hook
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder[T any]() Builder[T] {
	return Builder[T]{
		interval: DefaultInterval,
	}
}

// WithInterval sets the time between two automatic advances.
func (b Builder[T]) WithInterval(d time.Duration) Builder[T] {
	b.interval = d
	return b
}

// WithItems sets the items to rotate through. The slice is copied when the
// controller is built.
func (b Builder[T]) WithItems(items []T) Builder[T] {
	b.items = items
	return b
}

// WithScheduler sets the facility that delivers ticks.
func (b Builder[T]) WithScheduler(s timing.Scheduler) Builder[T] {
	b.scheduler = s
	return b
}

// WithCountedInteractions makes the controller count interaction sources, so
// that it resumes only after every source that started an interaction has
// ended it. By default a single end resumes the rotation.
func (b Builder[T]) WithCountedInteractions() Builder[T] {
	b.countInteractions = true
	return b
}

// WithIDGenerator sets where controller IDs come from.
func (b Builder[T]) WithIDGenerator(g idgen.Generator) Builder[T] {
	b.idGenerator = g
	return b
}

// WithHook registers a hook before the controller starts, so that the hook
// also sees the start transition.
func (b Builder[T]) WithHook(h hooking.Hook) Builder[T] {
	hooks := make([]hooking.Hook, len(b.hooks), len(b.hooks)+1)
	copy(hooks, b.hooks)
	b.hooks = append(hooks, h)

	return b
}

func (b Builder[T]) parametersMustBeValid() error {
	if len(b.items) == 0 {
		return ErrNoItems
	}

	if b.interval <= 0 {
		return ErrInvalidInterval
	}

	if b.scheduler == nil {
		return ErrNoScheduler
	}

	return nil
}

// Build creates the controller and schedules its first tick.
func (b Builder[T]) Build() (*Controller[T], error) {
	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	gen := b.idGenerator
	if gen == nil {
		gen = idgen.Default()
	}

	c := &Controller[T]{
		HookableBase:      hooking.NewHookableBase(),
		id:                gen.Generate(),
		items:             make([]T, len(b.items)),
		interval:          b.interval,
		scheduler:         b.scheduler,
		countInteractions: b.countInteractions,
	}
	copy(c.items, b.items)

	for _, h := range b.hooks {
		c.AcceptHook(h)
	}

	c.start()

	return c, nil
}
