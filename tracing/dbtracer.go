package tracing

import (
	"github.com/sarchlab/showcase/datarecording"
	"github.com/sarchlab/showcase/hooking"
	"github.com/sarchlab/showcase/timing"
)

// TransitionTable is the table DBTracer writes to.
const TransitionTable = "showcase_transitions"

// TransitionEntry is one row of the transition table.
type TransitionEntry struct {
	ControllerID string
	Seq          uint64
	Time         float64
	Reason       string
	FromIndex    int
	ToIndex      int
	Paused       bool
	TimerPending bool
}

// DBTracer stores transitions in a data recorder.
type DBTracer struct {
	timeTeller timing.TimeTeller
	backend    datarecording.DataRecorder
	filter     TransitionFilter
}

// NewDBTracer creates a DBTracer and the transition table. The time teller
// may be nil, in which case every row has time zero.
func NewDBTracer(
	timeTeller timing.TimeTeller,
	backend datarecording.DataRecorder,
) (*DBTracer, error) {
	if err := backend.CreateTable(TransitionTable, TransitionEntry{}); err != nil {
		return nil, err
	}

	return &DBTracer{
		timeTeller: timeTeller,
		backend:    backend,
		filter:     All,
	}, nil
}

// WithFilter limits the transitions that are stored.
func (t *DBTracer) WithFilter(f TransitionFilter) *DBTracer {
	t.filter = f
	return t
}

// Func buffers the transition carried by ctx.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	tr, ok := transitionFromCtx(ctx)
	if !ok || !t.filter(tr) {
		return
	}

	var now float64
	if t.timeTeller != nil {
		now = t.timeTeller.CurrentTime().Seconds()
	}

	t.backend.InsertData(TransitionTable, TransitionEntry{
		ControllerID: tr.ControllerID,
		Seq:          tr.Seq,
		Time:         now,
		Reason:       tr.Reason.String(),
		FromIndex:    tr.From,
		ToIndex:      tr.To,
		Paused:       tr.Paused,
		TimerPending: tr.TimerPending,
	})
}

// Flush writes buffered transitions.
func (t *DBTracer) Flush() error {
	return t.backend.Flush()
}
