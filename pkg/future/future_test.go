package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_ProgressThenFulfill(t *testing.T) {
	f, r := New[string, []string]()

	var progress []string
	var settled []string
	settleCalls := 0
	f.Observe(func(p string) {
		progress = append(progress, p)
	}, func(v []string, err error) {
		require.NoError(t, err)
		settled = v
		settleCalls++
	})

	assert.True(t, r.Progress("a.txt"))
	assert.True(t, r.Progress("b.bin"))
	assert.True(t, r.Fulfill([]string{"a.txt", "b.bin"}))

	assert.Equal(t, []string{"a.txt", "b.bin"}, progress)
	assert.Equal(t, []string{"a.txt", "b.bin"}, settled)
	assert.Equal(t, 1, settleCalls)
	assert.Equal(t, Fulfilled, f.State())
}

func TestFuture_ObserveDuringProgress(t *testing.T) {
	f, r := New[int, int]()

	var late []int
	var first []int
	f.Observe(func(p int) {
		first = append(first, p)
		if p == 1 {
			f.Observe(func(p int) { late = append(late, p) }, nil)
		}
	}, nil)

	assert.True(t, r.Progress(1))
	assert.True(t, r.Progress(2))

	assert.Equal(t, []int{1, 2}, first)
	assert.Equal(t, []int{2}, late, "an observer added mid-delivery starts with the next value")
}

func TestFuture_Reject(t *testing.T) {
	f, r := New[int, int]()
	boom := errors.New("boom")

	var got error
	f.Observe(nil, func(_ int, err error) {
		got = err
	})

	assert.True(t, r.Reject(boom))
	assert.ErrorIs(t, got, boom)
	assert.Equal(t, Rejected, f.State())

	_, err := f.Await(t.Context())
	assert.ErrorIs(t, err, boom)
}

func TestFuture_SettlesOnce(t *testing.T) {
	f, r := New[int, int]()

	assert.True(t, r.Fulfill(1))
	assert.False(t, r.Fulfill(2))
	assert.False(t, r.Reject(errors.New("late")))

	v, err := f.Await(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFuture_NoProgressAfterSettlement(t *testing.T) {
	f, r := New[int, int]()

	calls := 0
	f.Observe(func(int) { calls++ }, nil)

	require.True(t, r.Fulfill(0))
	assert.False(t, r.Progress(1))
	assert.Equal(t, 0, calls)
}

func TestFuture_LateObserverReplaysOutcome(t *testing.T) {
	f, r := New[int, string]()

	require.True(t, r.Progress(1))
	require.True(t, r.Fulfill("done"))

	progressCalls := 0
	var got string
	f.Observe(func(int) { progressCalls++ }, func(v string, err error) {
		require.NoError(t, err)
		got = v
	})

	assert.Equal(t, "done", got)
	assert.Equal(t, 0, progressCalls, "historical progress must not be replayed")
}

func TestFuture_ObserverRegistrationOrder(t *testing.T) {
	f, r := New[int, int]()

	var order []string
	f.Observe(func(int) { order = append(order, "first") }, nil)
	f.Observe(func(int) { order = append(order, "second") }, nil)

	r.Progress(1)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestFuture_AwaitContextDone(t *testing.T) {
	f, _ := New[int, int]()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Pending, f.State())
}

func TestFuture_ConcurrentObservers(t *testing.T) {
	f, r := New[int, int]()

	var mu sync.Mutex
	var values []int

	var calls sync.WaitGroup
	calls.Add(50)
	for range 50 {
		go f.Observe(nil, func(v int, _ error) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
			calls.Done()
		})
	}

	go r.Fulfill(42)
	calls.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, values, 50)
	for _, v := range values {
		assert.Equal(t, 42, v)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "fulfilled", Fulfilled.String())
	assert.Equal(t, "rejected", Rejected.String())
}
