package decoder

import (
	"sync"
	"testing"
	"time"

	"jp2kd/internal/engine"
)

func TestRelease_IdempotentClosesHandleOnce(t *testing.T) {
	f := newFakeEngine()
	c := newInitialized(t, f, Config{})

	for i := 0; i < 5; i++ {
		if err := c.Release(); err != nil {
			t.Fatalf("Release #%d: %v", i, err)
		}
	}
	if n := f.closeCount(); n != 1 {
		t.Fatalf("handle closed %d times", n)
	}
	if c.State() != StateReleased {
		t.Fatalf("state %s", c.State())
	}
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not exit")
	}
}

func TestRelease_ConcurrentCallers(t *testing.T) {
	f := newFakeEngine()
	c := newInitialized(t, f, Config{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Release()
		}()
	}
	wg.Wait()
	if n := f.closeCount(); n != 1 {
		t.Fatalf("handle closed %d times", n)
	}
}

func TestRelease_BeforeInit(t *testing.T) {
	f := newFakeEngine()
	c := New(f, Config{})
	if err := c.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if c.State() != StateReleased || f.closeCount() != 0 {
		t.Fatalf("state %s closes %d", c.State(), f.closeCount())
	}
	if err := c.Init(testCtx(t)); !IsCancelled(err) {
		t.Fatalf("Init after release: %v", err)
	}
	if len(f.handles) != 0 {
		t.Fatalf("handle created after release")
	}
}

func TestScenario_DecodeReleaseThenCancelled(t *testing.T) {
	f := newFakeEngine()
	c := New(f, Config{})
	ctx := testCtx(t)
	if err := c.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	img, err := c.Decode(ctx, validInput, DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Width != 640 || img.Height != 480 {
		t.Fatalf("got %dx%d", img.Width, img.Height)
	}
	if err := c.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	calls := f.callCount()

	_, err = c.Decode(ctx, validInput, DecodeOptions{})
	if !IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if IsIllegalState(err) {
		t.Fatalf("cancellation must be distinct from illegal state")
	}
	if _, err := c.Size(ctx); !IsCancelled(err) {
		t.Fatalf("Size after release: %v", err)
	}
	if err := c.Precache(ctx, validInput); !IsCancelled(err) {
		t.Fatalf("Precache after release: %v", err)
	}
	if _, err := c.ResourceUsage(ctx); !IsCancelled(err) {
		t.Fatalf("ResourceUsage after release: %v", err)
	}
	// Argument errors lose to the release as well.
	if _, err := c.Decode(ctx, nil, DecodeOptions{}); !IsCancelled(err) {
		t.Fatalf("invalid Decode after release: %v", err)
	}
	if f.callCount() != calls {
		t.Fatalf("engine called after release")
	}
}

func TestRelease_RacesInflightDecode(t *testing.T) {
	f := newFakeEngine()
	c := newInitialized(t, f, Config{})
	f.block(engine.MethodDecode)

	r := newRecorder[*Image]()
	c.DecodeAsync(validInput, DecodeOptions{}, r)
	f.waitEntered(t, engine.MethodDecode)

	if err := c.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	r.wait(t)
	if err := r.firstErr(); !IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if r.outcomes() != 1 {
		t.Fatalf("got %d outcomes", r.outcomes())
	}
	if f.closeCount() != 1 {
		t.Fatalf("handle closed %d times", f.closeCount())
	}
}

func TestRelease_EngineSuccessAfterReleaseIsCancelled(t *testing.T) {
	f := newFakeEngine()
	c := newInitialized(t, f, Config{})
	entered := make(chan struct{})
	proceed := make(chan struct{})
	// The engine ignores cancellation and reports success after release.
	f.setResponse(func(req engine.Request) (string, error) {
		if req.Method == engine.MethodGetSize {
			close(entered)
			<-proceed
		}
		return defaultResponse(req)
	})

	r := newRecorder[Size]()
	c.SizeOfAsync(validInput, r)
	<-entered
	done := make(chan struct{})
	go func() {
		_ = c.Release()
		close(done)
	}()
	<-done
	close(proceed)
	r.wait(t)
	if err := r.firstErr(); !IsCancelled(err) {
		t.Fatalf("stale success delivered: %v", err)
	}
}

func TestRelease_QueuedOperationsCancelled(t *testing.T) {
	f := newFakeEngine()
	c := newInitialized(t, f, Config{})
	f.block(engine.MethodDecode)

	recs := []*recorder[*Image]{newRecorder[*Image](), newRecorder[*Image](), newRecorder[*Image]()}
	for _, r := range recs {
		c.DecodeAsync(validInput, DecodeOptions{}, r)
	}
	f.waitEntered(t, engine.MethodDecode)
	_ = c.Release()

	for i, r := range recs {
		r.wait(t)
		if err := r.firstErr(); !IsCancelled(err) {
			t.Fatalf("op %d: expected cancellation, got %v", i, err)
		}
	}
	decodes := 0
	for _, m := range f.methods() {
		if m == engine.MethodDecode {
			decodes++
		}
	}
	if decodes != 1 {
		t.Fatalf("queued operations reached the engine: %d decodes", decodes)
	}
	if st := c.Status(); st.Cancelled != 3 {
		t.Fatalf("cancelled counter %d", st.Cancelled)
	}
}

func TestRelease_RacesInflightInit(t *testing.T) {
	f := newFakeEngine()
	f.block(engine.MethodBootstrap)
	c := New(f, Config{})

	r := newRecorder[struct{}]()
	c.InitAsync(r)
	f.waitEntered(t, engine.MethodBootstrap)
	if err := c.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	r.wait(t)
	if err := r.firstErr(); !IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if f.closeCount() != 1 {
		t.Fatalf("partially created handle closed %d times", f.closeCount())
	}
	if c.State() != StateReleased {
		t.Fatalf("state %s", c.State())
	}
}

func TestRelease_FromCallback(t *testing.T) {
	f := newFakeEngine()
	c := newInitialized(t, f, Config{})
	released := make(chan error, 1)
	c.DecodeAsync(validInput, DecodeOptions{}, CallbackFuncs[*Image]{
		Success: func(*Image) { released <- c.Release() },
		Failure: func(err error) { released <- err },
	})
	select {
	case err := <-released:
		if err != nil {
			t.Fatalf("Release from callback: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Release from callback deadlocked")
	}
	if c.State() != StateReleased {
		t.Fatalf("state %s", c.State())
	}
}

func TestRelease_EveryAdmittedOperationGetsOneOutcome(t *testing.T) {
	f := newFakeEngine()
	c := newInitialized(t, f, Config{})

	const n = 50
	recs := make([]*recorder[Size], n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		recs[i] = newRecorder[Size]()
		wg.Add(1)
		go func(r *recorder[Size]) {
			defer wg.Done()
			c.SizeOfAsync(validInput, r)
		}(recs[i])
		if i == n/2 {
			_ = c.Release()
		}
	}
	wg.Wait()
	for i, r := range recs {
		r.wait(t)
		if r.outcomes() != 1 {
			t.Fatalf("op %d got %d outcomes", i, r.outcomes())
		}
	}
}
