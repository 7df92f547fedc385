package decoder

import (
	"time"

	"jp2kd/internal/engine"
)

// InitAsync prepares the engine handle. It succeeds immediately when the
// coordinator is already initialized, fails with an IllegalStateError while
// another init is running and with ErrCancelled after Release.
func (c *Coordinator) InitAsync(cb Callback[struct{}]) {
	done := once(cb)
	for {
		s := c.state.load()
		switch {
		case s == StateInitialized || s == StateProcessing:
			done.OnSuccess(struct{}{})
			return
		case s.shuttingDown():
			c.reject(OpInit, ErrCancelled)
			done.OnError(ErrCancelled)
			return
		case s != StateUninitialized:
			err := IllegalStateError{Op: OpInit, State: s}
			c.reject(OpInit, err)
			done.OnError(err)
			return
		}
		if c.state.swap(StateUninitialized, StateInitializing) {
			break
		}
	}
	if !c.worker.submit(func() { c.runInit(done) }) {
		// Release stopped the worker after we moved to Initializing.
		done.OnError(ErrCancelled)
	}
}

func (c *Coordinator) runInit(done *onceCallback[struct{}]) {
	start := time.Now()
	l := c.logger()
	c.publish(Event{Name: EventInitStart, Op: OpInit})
	l.Debug().Str("event", EventInitStart).Msg("decoder init")

	err := c.bringUp()
	if err != nil {
		c.closeHandle(c.takeHandle())
		if !c.state.swap(StateInitializing, StateUninitialized) && c.state.load().shuttingDown() {
			err = ErrCancelled
		}
	} else if !c.state.swap(StateInitializing, StateInitialized) {
		// Release won the race; it owns teardown of the adopted handle.
		err = ErrCancelled
	}

	dur := time.Since(start)
	if err != nil {
		c.setLastError(err)
		c.publish(Event{Name: EventInitFailed, Op: OpInit, Fields: map[string]any{"error": err.Error(), "dur_ms": dur.Milliseconds()}})
		l.Warn().Str("event", EventInitFailed).Err(err).Dur("dur", dur).Msg("decoder init failed")
		done.OnError(err)
		return
	}
	c.publish(Event{Name: EventInitReady, Op: OpInit, Fields: map[string]any{"dur_ms": dur.Milliseconds()}})
	l.Info().Str("event", EventInitReady).Dur("dur", dur).Msg("decoder ready")
	done.OnSuccess(struct{}{})
}

// bringUp connects to the shared engine, creates this coordinator's handle
// and bootstraps it.
func (c *Coordinator) bringUp() error {
	if c.state.load().shuttingDown() {
		return ErrCancelled
	}
	conn, err := c.engine.Connect(c.ctx)
	if err != nil {
		return &TransportError{Op: OpInit, Err: err}
	}
	h, err := conn.NewHandle(c.ctx, c.handleOptions())
	if err != nil {
		return &TransportError{Op: OpInit, Err: err}
	}
	if !c.adopt(h) {
		return ErrCancelled
	}
	raw, err := h.Evaluate(c.ctx, engine.NewRequest(engine.MethodBootstrap)).Await(c.ctx)
	if err != nil {
		return &TransportError{Op: OpInit, Err: err}
	}
	if _, err := checkAck(OpInit)(raw); err != nil {
		return &Error{Kind: KindUnknown, Message: "engine bootstrap failed", Cause: err}
	}
	return nil
}

// Release tears the coordinator down. The first call moves to Releasing,
// interrupts any in-flight engine call, closes the handle, stops the worker
// and ends in Released; later calls return nil at once. Operations still
// queued or in flight complete with ErrCancelled.
//
// Release does not wait for the worker to drain, so it may be called from a
// Callback.
func (c *Coordinator) Release() error {
	prev, ok := c.state.beginRelease()
	if !ok {
		return nil
	}
	start := time.Now()
	l := c.logger()
	c.publish(Event{Name: EventReleaseStart, Op: OpRelease, Fields: map[string]any{"from": prev.String()}})

	c.cancel()
	err := c.closeHandle(c.takeHandle())
	c.worker.stop()
	c.state.swap(StateReleasing, StateReleased)

	dur := time.Since(start)
	c.publish(Event{Name: EventReleaseDone, Op: OpRelease, Fields: map[string]any{"dur_ms": dur.Milliseconds()}})
	l.Info().Str("event", EventReleaseDone).Str("from", prev.String()).Dur("dur", dur).Msg("decoder released")
	return err
}

// Close is Release, for use with io.Closer.
func (c *Coordinator) Close() error { return c.Release() }

// Done is closed once the worker goroutine has exited after Release.
func (c *Coordinator) Done() <-chan struct{} { return c.worker.done }
