package timing

import (
	"errors"
	"fmt"
)

// ErrEngineStopped is returned when work is posted to an engine that no
// longer runs.
var ErrEngineStopped = errors.New("timing: engine stopped")

// UnknownEventError reports an event payload that a handler cannot process.
type UnknownEventError struct {
	Event any
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("timing: unknown event type %T", e.Event)
}
