package decoder

import (
	"time"

	"jp2kd/pkg/types"
)

// Snapshot is a point-in-time view of a coordinator.
type Snapshot struct {
	State    State
	Queued   int
	Inflight int
	Err      string
}

// Snapshot returns a read-only view of the coordinator state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		State:    c.state.load(),
		Queued:   c.worker.queued(),
		Inflight: c.worker.inflight(),
		Err:      c.lastErr,
	}
}

// Status builds the response for /status.
func (c *Coordinator) Status() types.StatusResponse {
	snap := c.Snapshot()
	now := time.Now()
	return types.StatusResponse{
		ID:             c.id,
		State:          snap.State.String(),
		Queued:         snap.Queued,
		Inflight:       snap.Inflight,
		Completed:      c.completed.Load(),
		Failed:         c.failed.Load(),
		Cancelled:      c.cancelled.Load(),
		LastError:      snap.Err,
		Limits:         c.cfg.limits(),
		UptimeSeconds:  int64(now.Sub(c.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}
