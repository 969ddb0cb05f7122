// Package tracing provides hooks that observe showcase transitions: logging
// them, counting them, storing them in a data recorder and publishing them to
// Redis for remote renderers.
//
// Every tracer is a hooking.Hook and is attached with AcceptHook on a
// controller, or through the controller builder's WithHook so that the start
// transition is seen too.
package tracing
