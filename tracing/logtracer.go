package tracing

import (
	"github.com/charmbracelet/log"
	"github.com/sarchlab/showcase/hooking"
	"github.com/sarchlab/showcase/showcase"
)

// LogTracer writes every transition to a logger. Suppressed ticks and
// transitions that do not move the index are logged at debug level.
type LogTracer struct {
	logger *log.Logger
	filter TransitionFilter
	label  func(index int) string
}

// NewLogTracer creates a LogTracer that logs through logger.
func NewLogTracer(logger *log.Logger) *LogTracer {
	return &LogTracer{
		logger: logger,
		filter: All,
	}
}

// WithFilter limits the transitions that are logged.
func (t *LogTracer) WithFilter(f TransitionFilter) *LogTracer {
	t.filter = f
	return t
}

// WithLabel makes the tracer log a human readable name for the indexes.
func (t *LogTracer) WithLabel(label func(index int) string) *LogTracer {
	t.label = label
	return t
}

// Func logs the transition carried by ctx.
func (t *LogTracer) Func(ctx hooking.HookCtx) {
	tr, ok := transitionFromCtx(ctx)
	if !ok || !t.filter(tr) {
		return
	}

	kv := []any{
		"showcase", tr.ControllerID,
		"reason", tr.Reason.String(),
		"from", tr.From,
		"to", tr.To,
		"paused", tr.Paused,
		"timer", tr.TimerPending,
	}

	if t.label != nil {
		kv = append(kv, "item", t.label(tr.To))
	}

	if tr.Moved() || tr.Reason == showcase.ReasonStart ||
		tr.Reason == showcase.ReasonDispose {
		t.logger.Info("showcase transition", kv...)
		return
	}

	t.logger.Debug("showcase transition", kv...)
}
