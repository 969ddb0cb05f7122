package tracing

import (
	"sync"

	"github.com/sarchlab/showcase/hooking"
	"github.com/sarchlab/showcase/showcase"
)

// CountTracer counts transitions per reason. It may be read from other
// goroutines while the controller runs.
type CountTracer struct {
	lock   sync.Mutex
	filter TransitionFilter
	counts map[showcase.Reason]uint64
	moves  uint64
}

// NewCountTracer creates a CountTracer that counts the transitions accepted
// by filter.
func NewCountTracer(filter TransitionFilter) *CountTracer {
	if filter == nil {
		filter = All
	}

	return &CountTracer{
		filter: filter,
		counts: make(map[showcase.Reason]uint64),
	}
}

// Func counts the transition carried by ctx.
func (t *CountTracer) Func(ctx hooking.HookCtx) {
	tr, ok := transitionFromCtx(ctx)
	if !ok || !t.filter(tr) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.counts[tr.Reason]++
	if tr.Moved() {
		t.moves++
	}
}

// Count returns how many transitions had the given reason.
func (t *CountTracer) Count(reason showcase.Reason) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[reason]
}

// Moves returns how many transitions changed the active index.
func (t *CountTracer) Moves() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.moves
}

// Counts returns a copy of the counters keyed by reason name.
func (t *CountTracer) Counts() map[string]uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	counts := make(map[string]uint64, len(t.counts))
	for reason, n := range t.counts {
		counts[reason.String()] = n
	}

	return counts
}
