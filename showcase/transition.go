package showcase

import (
	"fmt"

	"github.com/sarchlab/showcase/hooking"
)

// HookPosTransition fires after every operation that the controller acted
// on. The hook item is a Transition.
var HookPosTransition = &hooking.HookPos{Name: "ShowcaseTransition"}

// Reason tells why a transition happened.
type Reason int

// Reasons reported in transitions.
const (
	ReasonStart Reason = iota
	ReasonTick
	ReasonTickSuppressed
	ReasonSelect
	ReasonInteractionStart
	ReasonInteractionEnd
	ReasonDispose
)

var reasonNames = map[Reason]string{
	ReasonStart:            "start",
	ReasonTick:             "tick",
	ReasonTickSuppressed:   "tick_suppressed",
	ReasonSelect:           "select",
	ReasonInteractionStart: "interaction_start",
	ReasonInteractionEnd:   "interaction_end",
	ReasonDispose:          "dispose",
}

func (r Reason) String() string {
	name, ok := reasonNames[r]
	if !ok {
		return fmt.Sprintf("reason(%d)", int(r))
	}

	return name
}

// ParseReason converts the String form of a reason back.
func ParseReason(s string) (Reason, error) {
	for r, name := range reasonNames {
		if name == s {
			return r, nil
		}
	}

	return 0, fmt.Errorf("showcase: unknown reason %q", s)
}

// Transition describes one change, or attempted change, of a controller.
type Transition struct {
	ControllerID string
	Seq          uint64
	Reason       Reason
	From         int
	To           int
	Paused       bool
	TimerPending bool
}

// Moved reports whether the active index changed.
func (t Transition) Moved() bool {
	return t.From != t.To
}

// State is a point-in-time view of a controller, suitable for renderers that
// poll.
type State struct {
	ID           string `json:"id"`
	ActiveIndex  int    `json:"active_index"`
	Len          int    `json:"len"`
	Paused       bool   `json:"paused"`
	TimerPending bool   `json:"timer_pending"`
	Disposed     bool   `json:"disposed"`
	Active       any    `json:"active"`
}
