package engine

import "context"

// Future is the pending result of one Evaluate call.
type Future interface {
	// Done is closed once the result is available.
	Done() <-chan struct{}
	// Await blocks until the result is available or ctx is done. Giving up on
	// ctx does not stop the underlying call.
	Await(ctx context.Context) (string, error)
}

type future struct {
	done chan struct{}
	val  string
	err  error
}

func (f *future) Done() <-chan struct{} { return f.done }

func (f *future) Await(ctx context.Context) (string, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Go runs fn on its own goroutine and returns its eventual result.
func Go(fn func() (string, error)) Future {
	f := &future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Resolved returns a Future that is already complete.
func Resolved(val string, err error) Future {
	f := &future{done: make(chan struct{}), val: val, err: err}
	close(f.done)
	return f
}
