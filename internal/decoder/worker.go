package decoder

import (
	"sync"
	"sync/atomic"
)

// serialWorker runs jobs one at a time, in submission order, on a single
// goroutine. The queue is unbounded.
type serialWorker struct {
	mu      sync.Mutex
	pending []func()
	stopped bool

	wake     chan struct{}
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	busy     atomic.Bool
}

func newSerialWorker() *serialWorker {
	w := &serialWorker{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// submit queues job. It returns false once stop was called; the job is then
// not run.
func (w *serialWorker) submit(job func()) bool {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return false
	}
	w.pending = append(w.pending, job)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

func (w *serialWorker) next() (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil, false
	}
	job := w.pending[0]
	w.pending[0] = nil
	w.pending = w.pending[1:]
	return job, true
}

func (w *serialWorker) loop() {
	defer close(w.done)
	for {
		w.drain()
		select {
		case <-w.wake:
		case <-w.quit:
			// Jobs accepted before stop still run so each reports an outcome.
			w.drain()
			return
		}
	}
}

func (w *serialWorker) drain() {
	for {
		job, ok := w.next()
		if !ok {
			return
		}
		w.busy.Store(true)
		job()
		w.busy.Store(false)
	}
}

// stop refuses further jobs and lets the loop exit after the queue empties.
// It does not wait; use done for that.
func (w *serialWorker) stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()
		close(w.quit)
	})
}

func (w *serialWorker) queued() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *serialWorker) inflight() int {
	if w.busy.Load() {
		return 1
	}
	return 0
}
