package engine

import "context"

// Engine produces connections to an execution runtime.
type Engine interface {
	// Connect returns a ready connection. Implementations backed by Shared
	// return the same connection to every caller.
	Connect(ctx context.Context) (Connection, error)
}

// Connection creates isolated execution handles.
type Connection interface {
	NewHandle(ctx context.Context, opts HandleOptions) (Handle, error)
}

// Handle is one isolated execution context. A Handle is driven by a single
// caller at a time; Close may be called concurrently with Evaluate and makes
// the in-flight call fail.
type Handle interface {
	Evaluate(ctx context.Context, req Request) Future
	Close(ctx context.Context) error
}

// HandleOptions tunes a new Handle.
type HandleOptions struct {
	// Name identifies the handle in logs. It must be unique per connection.
	Name string
	// InitialMemoryBytes grows guest memory up front. Zero keeps the module's
	// declared minimum; memory is never shrunk.
	InitialMemoryBytes int64
	// MaxResultBytes caps the size of one result. Zero means unlimited.
	MaxResultBytes int
}
