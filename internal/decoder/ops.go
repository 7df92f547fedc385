package decoder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"jp2kd/internal/engine"
)

// operation is one engine call and the translation of its result.
type operation[T any] struct {
	kind     OpKind
	validate func() error
	request  func() engine.Request
	parse    func(raw string) (T, error)
}

// dispatch admits op, validates it and queues it on the worker. Every path
// delivers exactly one outcome to cb.
func dispatch[T any](c *Coordinator, op operation[T], cb Callback[T]) {
	done := once(cb)
	if err := c.admit(op.kind); err != nil {
		c.reject(op.kind, err)
		done.OnError(err)
		return
	}
	if op.validate != nil {
		if err := op.validate(); err != nil {
			c.reject(op.kind, err)
			done.OnError(err)
			return
		}
	}
	id := uuid.NewString()
	if !c.worker.submit(func() { execute(c, id, op, done) }) {
		c.reject(op.kind, ErrCancelled)
		done.OnError(ErrCancelled)
	}
}

// admit is the pre-admission state check.
func (c *Coordinator) admit(op OpKind) error {
	s := c.state.load()
	if s.shuttingDown() {
		return ErrCancelled
	}
	if s != StateInitialized && s != StateProcessing {
		return IllegalStateError{Op: op, State: s}
	}
	return nil
}

// enter re-checks the state on the worker and moves to Processing.
func (c *Coordinator) enter(op OpKind) error {
	for {
		s := c.state.load()
		switch {
		case s.shuttingDown():
			return ErrCancelled
		case s != StateInitialized:
			return IllegalStateError{Op: op, State: s, Queued: true}
		}
		if c.state.swap(StateInitialized, StateProcessing) {
			return nil
		}
	}
}

func execute[T any](c *Coordinator, id string, op operation[T], done *onceCallback[T]) {
	if err := c.enter(op.kind); err != nil {
		c.finish(op.kind, id, 0, err)
		done.OnError(err)
		return
	}
	start := time.Now()
	c.publish(Event{Name: EventOpStart, Op: op.kind, Fields: map[string]any{"op_id": id}})

	v, err := call(c, op)

	// Processing -> Initialized fails only when a release got in first.
	c.state.swap(StateProcessing, StateInitialized)
	if c.state.load().shuttingDown() {
		var zero T
		v, err = zero, ErrCancelled
	}
	c.finish(op.kind, id, time.Since(start), err)
	done.deliver(v, err)
}

func call[T any](c *Coordinator, op operation[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindUnknown, Message: fmt.Sprintf("%s panicked: %v", op.kind, r)}
		}
	}()
	h := c.currentHandle()
	if h == nil {
		return v, ErrCancelled
	}
	raw, err := h.Evaluate(c.ctx, op.request()).Await(c.ctx)
	if err != nil {
		return v, &TransportError{Op: op.kind, Err: err}
	}
	return op.parse(raw)
}

// reject accounts for an operation refused before reaching the worker.
func (c *Coordinator) reject(op OpKind, err error) {
	c.count(err)
	c.publish(Event{Name: EventOpRejected, Op: op, Fields: map[string]any{"error": err.Error()}})
	l := c.logger()
	l.Debug().Str("event", EventOpRejected).Str("op", string(op)).Err(err).Msg("operation rejected")
}

func (c *Coordinator) finish(op OpKind, id string, dur time.Duration, err error) {
	c.count(err)
	l := c.logger()
	fields := map[string]any{"op_id": id, "dur_ms": dur.Milliseconds()}
	switch {
	case err == nil:
		c.publish(Event{Name: EventOpDone, Op: op, Fields: fields})
		l.Debug().Str("event", EventOpDone).Str("op", string(op)).Str("op_id", id).Dur("dur", dur).Msg("operation done")
	case IsCancelled(err):
		c.publish(Event{Name: EventOpCancelled, Op: op, Fields: fields})
		l.Debug().Str("event", EventOpCancelled).Str("op", string(op)).Str("op_id", id).Msg("operation cancelled")
	default:
		fields["error"] = err.Error()
		fields["kind"] = KindOf(err).String()
		c.publish(Event{Name: EventOpFailed, Op: op, Fields: fields})
		l.Warn().Str("event", EventOpFailed).Str("op", string(op)).Str("op_id", id).Err(err).Dur("dur", dur).Msg("operation failed")
	}
}

func (c *Coordinator) count(err error) {
	switch {
	case err == nil:
		c.completed.Add(1)
	case IsCancelled(err):
		c.cancelled.Add(1)
	default:
		c.failed.Add(1)
		c.setLastError(err)
	}
}

func (c *Coordinator) setLastError(err error) {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}

func validateInput(data []byte) error {
	switch {
	case len(data) < MinInputSize:
		return localError(KindInputTooSmall, msgInputTooSmall)
	case len(data) > MaxInputSize:
		return localError(KindInputTooLarge, msgInputTooLarge)
	}
	return nil
}

// PrecacheAsync hands data to the engine for later cached calls.
func (c *Coordinator) PrecacheAsync(data []byte, cb Callback[struct{}]) {
	dispatch(c, operation[struct{}]{
		kind:     OpPrecache,
		validate: func() error { return validateInput(data) },
		request:  func() engine.Request { return engine.NewRequest(engine.MethodSetData).WithData(data) },
		parse:    checkAck(OpPrecache),
	}, cb)
}

// SizeAsync reports the dimensions of the precached image.
func (c *Coordinator) SizeAsync(cb Callback[Size]) {
	dispatch(c, operation[Size]{
		kind:    OpSize,
		request: func() engine.Request { return engine.NewRequest(engine.MethodGetSizeWithCache) },
		parse:   parseSize,
	}, cb)
}

// SizeOfAsync reports the dimensions of data without caching it.
func (c *Coordinator) SizeOfAsync(data []byte, cb Callback[Size]) {
	dispatch(c, operation[Size]{
		kind:     OpSize,
		validate: func() error { return validateInput(data) },
		request:  func() engine.Request { return engine.NewRequest(engine.MethodGetSize).WithData(data) },
		parse:    parseSize,
	}, cb)
}

// DecodeAsync decodes data.
func (c *Coordinator) DecodeAsync(data []byte, opts DecodeOptions, cb Callback[*Image]) {
	dispatch(c, c.decodeOp(data, false, opts), cb)
}

// DecodeCachedAsync decodes the precached image.
func (c *Coordinator) DecodeCachedAsync(opts DecodeOptions, cb Callback[*Image]) {
	dispatch(c, c.decodeOp(nil, true, opts), cb)
}

func (c *Coordinator) decodeOp(data []byte, cached bool, opts DecodeOptions) operation[*Image] {
	return operation[*Image]{
		kind: OpDecode,
		validate: func() error {
			if !cached {
				if err := validateInput(data); err != nil {
					return err
				}
			}
			if err := opts.Format.validate(); err != nil {
				return err
			}
			return opts.Region.validate()
		},
		request: func() engine.Request { return c.decodeRequest(data, cached, opts) },
		parse: func(raw string) (*Image, error) {
			p, err := parsePayload(raw)
			if err != nil {
				return nil, err
			}
			if c.measureTimes() {
				l := c.logger()
				l.Info().
					Float64("pre_ms", p.TimePreProcess).
					Float64("wasm_ms", p.TimeWasm).
					Float64("post_ms", p.TimePostProcess).
					Str("region", opts.Region.String()).
					Msg("decode timings")
			}
			return p.image(opts.Format, c.cfg.MaxOutputPixels)
		},
	}
}

func (c *Coordinator) decodeRequest(data []byte, cached bool, opts DecodeOptions) engine.Request {
	r := opts.Region
	var method string
	switch r.kind {
	case regionPixels:
		method = pick(cached, engine.MethodDecodeRegionWithCache, engine.MethodDecodeRegion)
	case regionRatio:
		method = pick(cached, engine.MethodDecodeRatioWithCache, engine.MethodDecodeRatio)
	default:
		method = pick(cached, engine.MethodDecodeWithCache, engine.MethodDecode)
	}
	req := engine.NewRequest(method).
		With("colorFormat", opts.Format.ID()).
		With("maxPixels", c.cfg.MaxOutputPixels).
		With("maxHeapBytes", c.cfg.MaxEngineMemoryBytes).
		With("measureTimes", c.measureTimes())
	switch r.kind {
	case regionPixels:
		req = req.With("left", r.left).With("top", r.top).With("right", r.right).With("bottom", r.bottom)
	case regionRatio:
		req = req.With("left", r.l).With("top", r.t).With("right", r.r).With("bottom", r.b)
	}
	if !cached {
		req = req.WithData(data)
	}
	return req
}

func pick(cached bool, withCache, plain string) string {
	if cached {
		return withCache
	}
	return plain
}

// ResourceUsageAsync reports engine memory usage.
func (c *Coordinator) ResourceUsageAsync(cb Callback[ResourceUsage]) {
	dispatch(c, operation[ResourceUsage]{
		kind:    OpResourceUsage,
		request: func() engine.Request { return engine.NewRequest(engine.MethodGetMemoryUsage) },
		parse:   parseUsage,
	}, cb)
}
