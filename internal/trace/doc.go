// Package trace records what the layout passes did and how long it took.
//
// Tracers receive Events: span begin/end pairs around driver steps and passes,
// and point events for per-function decisions (a plan, a spill, a promotion).
// Verbosity is a Level; each Scope is emitted only at or above a level:
//
//	phase   driver and pass spans
//	detail  per-job spans
//	debug   per-function points
//
// StreamTracer writes text or NDJSON as events arrive, RingTracer keeps the
// most recent events for dumping after a failure, and MultiTracer fans out to
// both. The tracer travels in a context.Context (WithTracer/FromContext).
package trace
