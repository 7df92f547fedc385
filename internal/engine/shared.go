package engine

import (
	"context"
	"sync"
)

// sharedEntry is one connection under construction or built.
type sharedEntry struct {
	done chan struct{}
	conn Connection
	err  error
}

var (
	sharedMu    sync.Mutex
	sharedConns = map[string]*sharedEntry{}
)

// Shared returns the process-wide connection stored under key, calling build
// the first time. Callers for the same key wait for the build in progress and
// give up when ctx ends; other keys are not held up. A failed build is not
// remembered, so the next caller retries. Connections obtained here live for
// the rest of the process; no coordinator closes them.
func Shared(ctx context.Context, key string, build func(context.Context) (Connection, error)) (Connection, error) {
	for {
		sharedMu.Lock()
		e, ok := sharedConns[key]
		if !ok {
			e = &sharedEntry{done: make(chan struct{})}
			sharedConns[key] = e
		}
		sharedMu.Unlock()

		if !ok {
			e.conn, e.err = build(ctx)
			if e.err != nil {
				sharedMu.Lock()
				if sharedConns[key] == e {
					delete(sharedConns, key)
				}
				sharedMu.Unlock()
			}
			close(e.done)
			return e.conn, e.err
		}

		select {
		case <-e.done:
			if e.err == nil {
				return e.conn, nil
			}
			// The builder failed under its own context; try again under ours.
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// resetShared forgets every shared connection.
func resetShared() {
	sharedMu.Lock()
	sharedConns = map[string]*sharedEntry{}
	sharedMu.Unlock()
}
