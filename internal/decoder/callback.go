package decoder

import "sync/atomic"

// Callback receives the outcome of one admitted operation: exactly one of
// OnSuccess or OnError is called, exactly once. Rejections found at admission
// are delivered on the caller's goroutine; everything else on the
// coordinator's worker goroutine.
type Callback[T any] interface {
	OnSuccess(T)
	OnError(error)
}

// CallbackFuncs adapts a pair of functions to Callback. Nil funcs are skipped.
type CallbackFuncs[T any] struct {
	Success func(T)
	Failure func(error)
}

func (c CallbackFuncs[T]) OnSuccess(v T) {
	if c.Success != nil {
		c.Success(v)
	}
}

func (c CallbackFuncs[T]) OnError(err error) {
	if c.Failure != nil {
		c.Failure(err)
	}
}

// onceCallback drops every delivery after the first.
type onceCallback[T any] struct {
	cb   Callback[T]
	done atomic.Bool
}

func once[T any](cb Callback[T]) *onceCallback[T] {
	if o, ok := cb.(*onceCallback[T]); ok {
		return o
	}
	return &onceCallback[T]{cb: cb}
}

func (o *onceCallback[T]) OnSuccess(v T) {
	if o.done.CompareAndSwap(false, true) && o.cb != nil {
		o.cb.OnSuccess(v)
	}
}

func (o *onceCallback[T]) OnError(err error) {
	if o.done.CompareAndSwap(false, true) && o.cb != nil {
		o.cb.OnError(err)
	}
}

func (o *onceCallback[T]) deliver(v T, err error) {
	if err != nil {
		o.OnError(err)
		return
	}
	o.OnSuccess(v)
}
