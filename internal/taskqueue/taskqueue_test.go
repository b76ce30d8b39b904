package taskqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sosuisen/gitdocdb/internal/kinds"
)

func TestSubmit_RunsInSubmissionOrder(t *testing.T) {
	q := New()
	defer q.Close(time.Second, true)

	var mu sync.Mutex
	var order []int

	var futures []*Future
	for i := 0; i < 5; i++ {
		i := i
		f, err := q.Submit(Task{Label: "t", Run: func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}})
		require.NoError(t, err)
		futures = append(futures, f)
	}

	for _, f := range futures {
		_, err := f.Wait(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestClose_GracefulDrainsQueue(t *testing.T) {
	q := New()
	var done int32
	for i := 0; i < 3; i++ {
		_, err := q.Submit(Task{Run: func(ctx context.Context) (any, error) {
			atomic.AddInt32(&done, 1)
			return nil, nil
		}})
		require.NoError(t, err)
	}

	err := q.Close(time.Second, false)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&done))
}

func TestClose_TimeoutWithoutForceLeavesQueueIntact(t *testing.T) {
	q := New()
	release := make(chan struct{})
	_, err := q.Submit(Task{Run: func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	}})
	require.NoError(t, err)

	err = q.Close(10*time.Millisecond, false)
	assert.Error(t, err)
	assert.True(t, kinds.Is(err, kinds.CloseTimeout))

	close(release)
	q.Close(time.Second, true)
}

func TestClose_ForceCancelsPendingTasks(t *testing.T) {
	q := New()
	block := make(chan struct{})
	_, err := q.Submit(Task{Run: func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	}})
	require.NoError(t, err)

	var pendingFutures []*Future
	for i := 0; i < 5; i++ {
		f, err := q.Submit(Task{Run: func(ctx context.Context) (any, error) {
			return nil, nil
		}})
		require.NoError(t, err)
		pendingFutures = append(pendingFutures, f)
	}

	err = q.Close(10*time.Millisecond, true)
	require.NoError(t, err)
	close(block)

	for _, f := range pendingFutures {
		_, err := f.Wait(context.Background())
		assert.True(t, kinds.Is(err, kinds.TaskCancel))
	}
}

func TestSubmit_FailsAfterCloseBegins(t *testing.T) {
	q := New()
	q.Close(time.Second, true)

	_, err := q.Submit(Task{Run: func(ctx context.Context) (any, error) { return nil, nil }})
	assert.True(t, kinds.Is(err, kinds.Closing))
}
