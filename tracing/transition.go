package tracing

import (
	"github.com/sarchlab/showcase/hooking"
	"github.com/sarchlab/showcase/showcase"
)

// TransitionFilter decides whether a tracer cares about a transition.
type TransitionFilter func(tr showcase.Transition) bool

// All accepts every transition.
func All(showcase.Transition) bool { return true }

// OnlyMoves accepts transitions that changed the active index.
func OnlyMoves(tr showcase.Transition) bool { return tr.Moved() }

func transitionFromCtx(ctx hooking.HookCtx) (showcase.Transition, bool) {
	if ctx.Pos != showcase.HookPosTransition {
		return showcase.Transition{}, false
	}

	tr, ok := ctx.Item.(showcase.Transition)

	return tr, ok
}
