// Package decoder coordinates JPEG 2000 decoding on top of an engine.Engine.
// It is structured into small files by concern:
//
//   - coordinator.go: Coordinator type, constructor, getters, handle ownership.
//   - state.go: lifecycle states and the transition table.
//   - config.go: Config, defaults and input size limits.
//   - errors.go: ErrorKind codes and the error taxonomy (IsCancelled,
//     IsIllegalState, IsInvalidArgument, IsEngineError, IsTransport).
//   - worker.go: the single serial worker every engine call runs on.
//   - lifecycle.go: InitAsync, Release, Close.
//   - ops.go: admission, validation and the decode/size/precache/usage calls.
//   - result.go: translation of engine results into values or errors.
//   - blocking.go: context-aware blocking forms of every callback operation.
//   - callback.go, events.go, status_report.go: delivery, events, status.
//
// Every operation exists in two forms. The XxxAsync form takes a Callback that
// receives exactly one outcome; the plain form blocks until that outcome or
// until its context ends. Ending the context only abandons the wait: the
// engine call runs to completion unless Release interrupts it.
//
// Once Release starts, every outcome, including one racing with it, is
// ErrCancelled, never a stale success.
package decoder
