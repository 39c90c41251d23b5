// Package core defines the value types shared across the Vex SDK: the
// execution event and its sub-records, the verification result and threshold
// configuration, the trace context builder, and the error taxonomy.
//
// Types in this package are plain data. An ExecutionEvent is immutable once
// built from a TraceContext; transports and sessions never mutate one after
// the fact. The only stateful type is TraceContext, which accumulates one
// execution's facts behind a mutex and freezes them via BuildEvent.
package core
