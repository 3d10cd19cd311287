package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var processed int32
	done := make(chan struct{}, 3)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&processed, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 3})

	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job{Type: "warmup"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&processed))
}

func TestTryEnqueueReportsFullBuffer(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	q.Start(context.Background())
	defer func() {
		close(release)
		q.Stop()
	}()

	require.NoError(t, q.TryEnqueue(Job{Type: "a"}))
	<-started
	require.NoError(t, q.TryEnqueue(Job{Type: "b"}))

	err := q.TryEnqueue(Job{Type: "c"})
	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.TryEnqueue(Job{}))
}

func TestJobTimeoutBoundsHandler(t *testing.T) {
	result := make(chan error, 1)
	q := NewQueue("timeout", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}, QueueConfig{JobTimeout: 20 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.TryEnqueue(Job{Type: "slow"}))
	select {
	case err := <-result:
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	case <-time.After(time.Second):
		t.Fatal("handler was not cancelled")
	}
}
