package decoder

import (
	"context"
	"sync"
	"testing"
	"time"

	"jp2kd/internal/engine"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

// validInput is long enough to pass local validation.
var validInput = []byte("\x00\x00\x00\x0cjP  \r\n\x87\n\x00\x00\x00\x14ftypjp2 ")

// fakeEngine is an in-memory engine that records every call. It doubles as
// its own Connection.
type fakeEngine struct {
	mu          sync.Mutex
	connectErr  error
	handleErr   error
	respond     func(engine.Request) (string, error)
	gate        chan struct{}
	gateMethod  string
	entered     chan string
	calls       []engine.Request
	handles     []engine.HandleOptions
	closes      int
	inflight    int
	maxInflight int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{respond: defaultResponse, entered: make(chan string, 64)}
}

func defaultResponse(req engine.Request) (string, error) {
	switch req.Method {
	case engine.MethodBootstrap, engine.MethodSetData:
		return "1", nil
	case engine.MethodGetSize, engine.MethodGetSizeWithCache:
		return `{"width":640,"height":480}`, nil
	case engine.MethodGetMemoryUsage:
		return `{"wasmHeapSizeBytes":16777216}`, nil
	}
	return `{"bmp":"AQID","width":640,"height":480,"timePreProcess":1.5,"timeWasm":10,"timePostProcess":0.5}`, nil
}

// block makes calls to method (any method when empty) wait until unblock.
func (f *fakeEngine) block(method string) {
	f.mu.Lock()
	f.gate = make(chan struct{})
	f.gateMethod = method
	f.mu.Unlock()
}

func (f *fakeEngine) unblock() {
	f.mu.Lock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
	f.mu.Unlock()
}

func (f *fakeEngine) setResponse(fn func(engine.Request) (string, error)) {
	f.mu.Lock()
	f.respond = fn
	f.mu.Unlock()
}

func (f *fakeEngine) Connect(context.Context) (engine.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f, nil
}

func (f *fakeEngine) NewHandle(_ context.Context, opts engine.HandleOptions) (engine.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handleErr != nil {
		return nil, f.handleErr
	}
	f.handles = append(f.handles, opts)
	return &fakeHandle{f: f}, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeEngine) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, r := range f.calls {
		out[i] = r.Method
	}
	return out
}

func (f *fakeEngine) lastCall() engine.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeEngine) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeEngine) peakInflight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInflight
}

// waitEntered waits until a call to method has started.
func (f *fakeEngine) waitEntered(t *testing.T, method string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case m := <-f.entered:
			if m == method {
				return
			}
		case <-timeout:
			t.Fatalf("engine call %q never started", method)
		}
	}
}

type fakeHandle struct{ f *fakeEngine }

func (h *fakeHandle) Evaluate(ctx context.Context, req engine.Request) engine.Future {
	f := h.f
	return engine.Go(func() (string, error) {
		f.mu.Lock()
		f.calls = append(f.calls, req)
		f.inflight++
		if f.inflight > f.maxInflight {
			f.maxInflight = f.inflight
		}
		gate, gm, respond := f.gate, f.gateMethod, f.respond
		f.mu.Unlock()
		defer func() {
			f.mu.Lock()
			f.inflight--
			f.mu.Unlock()
		}()
		select {
		case f.entered <- req.Method:
		default:
		}
		if gate != nil && (gm == "" || gm == req.Method) {
			select {
			case <-gate:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return respond(req)
	})
}

func (h *fakeHandle) Close(context.Context) error {
	h.f.mu.Lock()
	h.f.closes++
	h.f.mu.Unlock()
	return nil
}

func newInitialized(t *testing.T, f *fakeEngine, cfg Config) *Coordinator {
	t.Helper()
	c := New(f, cfg)
	t.Cleanup(func() { _ = c.Release() })
	if err := c.Init(testCtx(t)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return c
}

// recorder collects callback outcomes.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
	errs   []error
	done   chan struct{}
}

func newRecorder[T any]() *recorder[T] { return &recorder[T]{done: make(chan struct{}, 64)} }

func (r *recorder[T]) OnSuccess(v T) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recorder[T]) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recorder[T]) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("callback never fired")
	}
}

func (r *recorder[T]) outcomes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values) + len(r.errs)
}

func (r *recorder[T]) firstErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[0]
}
