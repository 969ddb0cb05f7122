package showcase

import "errors"

var (
	// ErrOutOfRange is returned by Select when the index does not address an
	// item.
	ErrOutOfRange = errors.New("showcase: index out of range")

	// ErrDisposed is returned by Select after the controller was disposed.
	// Every other operation silently does nothing in that state.
	ErrDisposed = errors.New("showcase: controller disposed")

	// ErrNoItems is returned when building a controller without items.
	ErrNoItems = errors.New("showcase: at least one item is required")

	// ErrInvalidInterval is returned when the tick interval is not positive.
	ErrInvalidInterval = errors.New("showcase: interval must be positive")

	// ErrNoScheduler is returned when building a controller without a
	// scheduler.
	ErrNoScheduler = errors.New("showcase: scheduler is required")
)
