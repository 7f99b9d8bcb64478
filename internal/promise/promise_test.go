package promise

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestResolveOnce(t *testing.T) {
	p, f := New[int]()
	assert.Equal(t, Pending, f.State())

	assert.True(t, p.Resolve(1))
	assert.False(t, p.Resolve(2))
	assert.False(t, p.Reject(errors.New("late")))

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, Fulfilled, f.State())
}

func TestRejectNilBecomesBroken(t *testing.T) {
	p, f := New[string]()
	p.Reject(nil)
	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, ErrBrokenPromise)
	assert.Equal(t, Rejected, f.State())
}

func TestResultPair(t *testing.T) {
	boom := errors.New("boom")
	p, f := New[int]()
	p.Result(42, boom)
	v, err := f.Await(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, v)
}

func TestPeekPending(t *testing.T) {
	_, f := New[int]()
	_, ok, _ := f.Peek()
	assert.False(t, ok)
}

func TestPeekSettled(t *testing.T) {
	boom := errors.New("boom")
	p, f := New[int]()
	p.Result(7, boom)
	v, ok, err := f.Peek()
	assert.True(t, ok)
	assert.Zero(t, v)
	assert.ErrorIs(t, err, boom)
}

func TestAwaitHonoursContext(t *testing.T) {
	_, f := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConcurrentSettleHasOneWinner(t *testing.T) {
	for round := 0; round < 100; round++ {
		p, f := New[int]()
		var wins atomic.Int32
		var g errgroup.Group
		for i := 0; i < 8; i++ {
			g.Go(func() error {
				if p.Resolve(i) {
					wins.Add(1)
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), wins.Load())
		_, ok, _ := f.Peek()
		assert.True(t, ok)
	}
}

func TestThen(t *testing.T) {
	p, f := New[int]()
	got := make(chan int, 1)
	f.Then(func(v int, err error) {
		assert.NoError(t, err)
		got <- v
	})
	p.Resolve(9)
	select {
	case v := <-got:
		assert.Equal(t, 9, v)
	case <-time.After(time.Second):
		t.Fatal("Then callback did not run")
	}
}

func TestGoRecoversPanic(t *testing.T) {
	f := Go(func() (int, error) { panic("nope") })
	_, err := f.Await(context.Background())
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "nope", pe.Value)
}

func TestPrebuiltFutures(t *testing.T) {
	v, err := Resolved("ok").Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	boom := errors.New("boom")
	_, err = Failed[int](boom).Await(context.Background())
	assert.ErrorIs(t, err, boom)
}
