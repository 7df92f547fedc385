// Package engine defines the execution engine the decoder coordinator drives
// and a WebAssembly implementation of it on top of wazero.
//
//   - engine.go: Engine, Connection and Handle contracts.
//   - request.go: engine method names and the JSON request envelope.
//   - future.go: Future, the pending result of one Evaluate call.
//   - shared.go: process-wide connection registry (built once, never torn down).
//   - wasm.go: WasmEngine, one wazero runtime per compiled guest module.
//   - wasm_handle.go: a guest instance and the malloc/evaluate/free call ABI.
//   - logger.go: zap logger used for guest console output and engine events.
//
// The guest ABI is small: the module exports its linear memory as "memory"
// plus three functions.
//
//	malloc(size i32) -> ptr i32
//	free(ptr i32)
//	evaluate(ptr i32, len i32) -> i64   // (resultPtr << 32) | resultLen
//
// The request bytes are a JSON Request; the result bytes are the method's
// JSON (or plain text) result. getMemoryUsage is answered by the host from the
// guest's memory size.
package engine
