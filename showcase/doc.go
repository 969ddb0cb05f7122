// Package showcase implements the controller behind an auto-advancing,
// pausable showcase: a fixed list of items rotates on a timer, pauses while
// the user interacts with it and can be overridden by selecting an item.
//
// The controller only decides which item is active and why. It owns at most
// one pending timer at a time and never touches wall-clock time itself; the
// timer comes from an injected timing.Scheduler, so the same controller runs
// on a live event loop or on a virtual clock in tests.
//
// A Controller is not safe for concurrent use. All of its methods, and the
// callbacks its scheduler delivers, must run on a single event loop.
//
//	engine := timing.NewSerialEngine()
//	ctrl, err := showcase.MakeBuilder[string]().
//		WithItems([]string{"fluent", "mapper", "template"}).
//		WithInterval(5 * time.Second).
//		WithScheduler(engine).
//		Build()
package showcase
