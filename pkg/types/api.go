package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: Input data is too short
	Error string `json:"error" example:"Input data is too short"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Error kind reported by the decoder (e.g., input_too_small, cancelled).
	// example: input_too_small
	Kind string `json:"kind,omitempty" example:"input_too_small"`
	// Numeric decoder error code when the failure carries one.
	// example: -2
	DecoderCode *int `json:"decoder_code,omitempty" example:"-2"`
}

// InitResponse is returned by POST /init.
type InitResponse struct {
	// Coordinator state after the call.
	// example: initialized
	State string `json:"state" example:"initialized"`
}

// SizeResponse is returned by /size.
type SizeResponse struct {
	// Image width in pixels.
	// example: 640
	Width int `json:"width" example:"640"`
	// Image height in pixels.
	// example: 480
	Height int `json:"height" example:"480"`
}

// UsageResponse is returned by GET /usage. Only the engine heap size is
// always present.
type UsageResponse struct {
	// Current size of the engine's linear memory in bytes.
	// example: 16777216
	WasmHeapSizeBytes int64 `json:"wasm_heap_size_bytes" example:"16777216"`
	// Host heap limit, when the engine reports one.
	JSHeapSizeLimit *int64 `json:"js_heap_size_limit,omitempty"`
	// Host heap total, when the engine reports one.
	TotalJSHeapSize *int64 `json:"total_js_heap_size,omitempty"`
	// Host heap used, when the engine reports one.
	UsedJSHeapSize *int64 `json:"used_js_heap_size,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Coordinator identifier (appears in logs and events).
	// example: 6f1c2a4e-3b7d-4d8a-9a57-0c0b8a6b1f11
	ID string `json:"id" example:"6f1c2a4e-3b7d-4d8a-9a57-0c0b8a6b1f11"`
	// Lifecycle state (uninitialized, initializing, initialized, processing, releasing, released).
	// example: initialized
	State string `json:"state" example:"initialized"`
	// Operations admitted but not yet started.
	// example: 0
	Queued int `json:"queued" example:"0"`
	// Operations currently running on the engine (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Operations that completed successfully.
	// example: 42
	Completed uint64 `json:"completed_total" example:"42"`
	// Operations that failed.
	// example: 3
	Failed uint64 `json:"failed_total" example:"3"`
	// Operations that ended in cancellation.
	// example: 0
	Cancelled uint64 `json:"cancelled_total" example:"0"`
	// Last error observed by the coordinator (if any).
	LastError string `json:"last_error,omitempty"`
	// Configured limits.
	Limits DecoderLimits `json:"limits"`
	// Uptime of the coordinator in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
