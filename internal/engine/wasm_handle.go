package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// ErrHandleClosed is returned by Evaluate after Close.
var ErrHandleClosed = errors.New("engine handle closed")

type wasmHandle struct {
	name      string
	mod       api.Module
	memory    api.Memory
	malloc    api.Function
	free      api.Function
	evaluate  api.Function
	maxResult int
	consoles  []*consoleWriter

	mu     sync.Mutex // one guest call at a time
	closed atomic.Bool
}

func (h *wasmHandle) Evaluate(ctx context.Context, req Request) Future {
	if h.closed.Load() {
		return Resolved("", ErrHandleClosed)
	}
	return Go(func() (string, error) { return h.call(ctx, req) })
}

func (h *wasmHandle) call(ctx context.Context, req Request) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() {
		return "", ErrHandleClosed
	}
	if req.Method == MethodGetMemoryUsage {
		b, err := json.Marshal(map[string]int64{"wasmHeapSizeBytes": int64(h.memory.Size())})
		return string(b), err
	}
	body, err := req.Encode()
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	res, err := h.malloc.Call(ctx, uint64(len(body)))
	if err != nil {
		return "", h.callErr("malloc", err)
	}
	ptr := uint32(res[0])
	if ptr == 0 {
		return "", fmt.Errorf("guest malloc(%d) failed", len(body))
	}
	defer h.release(ctx, ptr)
	if !h.memory.Write(ptr, body) {
		return "", fmt.Errorf("request of %d bytes out of guest memory range", len(body))
	}
	out, err := h.evaluate.Call(ctx, uint64(ptr), uint64(len(body)))
	if err != nil {
		return "", h.callErr(req.Method, err)
	}
	rptr, rlen := uint32(out[0]>>32), uint32(out[0])
	if rptr != 0 && rptr != ptr {
		defer h.release(ctx, rptr)
	}
	if h.maxResult > 0 && int(rlen) > h.maxResult {
		return "", fmt.Errorf("%s result of %d bytes exceeds limit %d", req.Method, rlen, h.maxResult)
	}
	view, ok := h.memory.Read(rptr, rlen)
	if !ok {
		return "", fmt.Errorf("%s result out of guest memory range", req.Method)
	}
	// view aliases guest memory; copy before the guest reuses it.
	return string(view), nil
}

func (h *wasmHandle) release(ctx context.Context, ptr uint32) {
	if h.closed.Load() {
		return
	}
	if _, err := h.free.Call(ctx, uint64(ptr)); err != nil {
		Logger().Debug("guest free failed", zap.String("handle", h.name), zap.Error(err))
	}
}

func (h *wasmHandle) callErr(fn string, err error) error {
	if h.closed.Load() {
		return fmt.Errorf("%s: %w", fn, ErrHandleClosed)
	}
	return fmt.Errorf("guest %s: %w", fn, err)
}

// Close tears down the guest. Calls in flight fail; repeated calls are no-ops.
func (h *wasmHandle) Close(ctx context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, c := range h.consoles {
		c.Flush()
	}
	Logger().Debug("guest closed", zap.String("handle", h.name))
	return h.mod.Close(ctx)
}
