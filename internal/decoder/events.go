package decoder

// Event is a coordinator lifecycle or operation event: a name, the
// coordinator's ID, the operation (empty for lifecycle events) and optional
// fields such as "dur_ms" or "error".
type Event struct {
	Name        string
	Coordinator string
	Op          OpKind
	Fields      map[string]any
}

// Event names.
const (
	EventInitStart    = "init_start"
	EventInitReady    = "init_ready"
	EventInitFailed   = "init_failed"
	EventOpStart      = "op_start"
	EventOpDone       = "op_done"
	EventOpFailed     = "op_failed"
	EventOpCancelled  = "op_cancelled"
	EventOpRejected   = "op_rejected"
	EventReleaseStart = "release_start"
	EventReleaseDone  = "release_done"
)

// EventPublisher receives events from the coordinator. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
