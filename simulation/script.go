package simulation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Action is something a renderer can do to a showcase.
type Action int

// Actions a script can contain.
const (
	ActionInteractionStart Action = iota
	ActionInteractionEnd
	ActionSelect
	ActionTick
	ActionDispose
)

var actionNames = map[Action]string{
	ActionInteractionStart: "start",
	ActionInteractionEnd:   "end",
	ActionSelect:           "select",
	ActionTick:             "tick",
	ActionDispose:          "dispose",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}

	return fmt.Sprintf("action(%d)", int(a))
}

// Step is one action at a point in virtual time.
type Step struct {
	At     time.Duration
	Action Action
	Index  int
}

func (s Step) String() string {
	if s.Action == ActionSelect {
		return fmt.Sprintf("%s:%s=%d", s.At, s.Action, s.Index)
	}

	return fmt.Sprintf("%s:%s", s.At, s.Action)
}

// Script is a list of steps ordered by time. Steps at the same time keep
// their written order.
type Script []Step

// ParseScript reads a comma separated list of "<duration>:<action>" entries,
// for example "7s:start,12s:end,20s:select=0".
func ParseScript(s string) (Script, error) {
	var script Script

	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		step, err := parseStep(entry)
		if err != nil {
			return nil, err
		}

		script = append(script, step)
	}

	sort.SliceStable(script, func(i, j int) bool {
		return script[i].At < script[j].At
	})

	return script, nil
}

func parseStep(entry string) (Step, error) {
	at, action, ok := strings.Cut(entry, ":")
	if !ok {
		return Step{}, fmt.Errorf("simulation: step %q has no action", entry)
	}

	d, err := time.ParseDuration(at)
	if err != nil {
		return Step{}, fmt.Errorf("simulation: step %q: %w", entry, err)
	}

	if d < 0 {
		return Step{}, fmt.Errorf("simulation: step %q is before the start", entry)
	}

	step := Step{At: d}

	name, arg, hasArg := strings.Cut(action, "=")
	switch name {
	case "start":
		step.Action = ActionInteractionStart
	case "end":
		step.Action = ActionInteractionEnd
	case "tick":
		step.Action = ActionTick
	case "dispose":
		step.Action = ActionDispose
	case "select":
		if !hasArg {
			return Step{}, fmt.Errorf("simulation: step %q needs an index", entry)
		}

		step.Action = ActionSelect
		step.Index, err = strconv.Atoi(arg)
		if err != nil {
			return Step{}, fmt.Errorf("simulation: step %q: %w", entry, err)
		}

		return step, nil
	default:
		return Step{}, fmt.Errorf("simulation: unknown action %q", name)
	}

	if hasArg {
		return Step{}, fmt.Errorf("simulation: action %q takes no argument", name)
	}

	return step, nil
}
