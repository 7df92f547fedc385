package decoder

import "context"

type outcome[T any] struct {
	v   T
	err error
}

// await runs a callback-style operation and waits for its outcome. When ctx
// ends first the caller gets ctx.Err(); the operation itself keeps running
// and its late outcome is dropped. Only Release stops engine work.
func await[T any](ctx context.Context, start func(Callback[T])) (T, error) {
	ch := make(chan outcome[T], 1)
	start(CallbackFuncs[T]{
		Success: func(v T) { ch <- outcome[T]{v: v} },
		Failure: func(err error) { ch <- outcome[T]{err: err} },
	})
	select {
	case o := <-ch:
		return o.v, o.err
	default:
	}
	select {
	case o := <-ch:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Init is the blocking form of InitAsync.
func (c *Coordinator) Init(ctx context.Context) error {
	_, err := await(ctx, c.InitAsync)
	return err
}

// InitWithData initializes the coordinator and precaches data.
func (c *Coordinator) InitWithData(ctx context.Context, data []byte) error {
	if err := c.Init(ctx); err != nil {
		return err
	}
	return c.Precache(ctx, data)
}

// Precache is the blocking form of PrecacheAsync.
func (c *Coordinator) Precache(ctx context.Context, data []byte) error {
	_, err := await(ctx, func(cb Callback[struct{}]) { c.PrecacheAsync(data, cb) })
	return err
}

// Size is the blocking form of SizeAsync.
func (c *Coordinator) Size(ctx context.Context) (Size, error) {
	return await(ctx, c.SizeAsync)
}

// SizeOf is the blocking form of SizeOfAsync.
func (c *Coordinator) SizeOf(ctx context.Context, data []byte) (Size, error) {
	return await(ctx, func(cb Callback[Size]) { c.SizeOfAsync(data, cb) })
}

// Decode is the blocking form of DecodeAsync.
func (c *Coordinator) Decode(ctx context.Context, data []byte, opts DecodeOptions) (*Image, error) {
	return await(ctx, func(cb Callback[*Image]) { c.DecodeAsync(data, opts, cb) })
}

// DecodeCached is the blocking form of DecodeCachedAsync.
func (c *Coordinator) DecodeCached(ctx context.Context, opts DecodeOptions) (*Image, error) {
	return await(ctx, func(cb Callback[*Image]) { c.DecodeCachedAsync(opts, cb) })
}

// ResourceUsage is the blocking form of ResourceUsageAsync.
func (c *Coordinator) ResourceUsage(ctx context.Context) (ResourceUsage, error) {
	return await(ctx, c.ResourceUsageAsync)
}
