package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct{ id int }

func (stubConn) NewHandle(context.Context, HandleOptions) (Handle, error) { return nil, nil }

func TestShared_BuildsOnceUnderConcurrency(t *testing.T) {
	t.Cleanup(resetShared)
	var builds atomic.Int32
	build := func(context.Context) (Connection, error) {
		builds.Add(1)
		return &stubConn{id: 1}, nil
	}
	var wg sync.WaitGroup
	got := make([]Connection, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := Shared(context.Background(), t.Name(), build)
			assert.NoError(t, err)
			got[i] = c
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), builds.Load())
	for _, c := range got {
		assert.Same(t, got[0], c)
	}
}

func TestShared_FailedBuildRetried(t *testing.T) {
	t.Cleanup(resetShared)
	calls := 0
	build := func(context.Context) (Connection, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("boom")
		}
		return &stubConn{id: calls}, nil
	}
	_, err := Shared(context.Background(), t.Name(), build)
	require.Error(t, err)
	c, err := Shared(context.Background(), t.Name(), build)
	require.NoError(t, err)
	assert.Equal(t, 2, c.(*stubConn).id)
}

func TestShared_SlowBuildDoesNotBlockOtherKeys(t *testing.T) {
	t.Cleanup(resetShared)
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	go func() {
		_, _ = Shared(context.Background(), "slow", func(context.Context) (Connection, error) {
			close(started)
			<-release
			return &stubConn{id: 1}, nil
		})
	}()
	<-started

	c, err := Shared(context.Background(), "fast", func(context.Context) (Connection, error) {
		return &stubConn{id: 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, c.(*stubConn).id)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = Shared(ctx, "slow", func(context.Context) (Connection, error) {
		t.Error("second build for a key in progress")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShared_WaiterRetriesAfterBuilderFails(t *testing.T) {
	t.Cleanup(resetShared)
	started := make(chan struct{})
	fail := make(chan struct{})
	go func() {
		_, _ = Shared(context.Background(), "k", func(context.Context) (Connection, error) {
			close(started)
			<-fail
			return nil, errors.New("builder context ended")
		})
	}()
	<-started

	got := make(chan Connection, 1)
	go func() {
		c, err := Shared(context.Background(), "k", func(context.Context) (Connection, error) {
			return &stubConn{id: 7}, nil
		})
		assert.NoError(t, err)
		got <- c
	}()
	close(fail)
	select {
	case c := <-got:
		assert.Equal(t, 7, c.(*stubConn).id)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never retried")
	}
}

func TestRequest_EncodeMethodFirst(t *testing.T) {
	b, err := NewRequest(MethodDecode).With("colorFormat", 8888).WithData([]byte{1, 2, 3}).Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"method":"decode","params":{"colorFormat":8888,"data":"AQID"}}`, string(b))

	b, err = NewRequest(MethodBootstrap).Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"method":"bootstrap"}`, string(b))
}

func TestRequest_WithDoesNotMutate(t *testing.T) {
	base := NewRequest(MethodGetSize).With("a", 1)
	_ = base.With("b", 2)
	assert.Len(t, base.Params, 1)
}
