package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueDispatchesByType(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2})
	done := make(chan Job, 1)
	q.Register("greet", func(ctx context.Context, job Job) error {
		done <- job
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{Type: "greet", Payload: "hi"}))

	select {
	case job := <-done:
		require.Equal(t, "hi", job.Payload)
		require.NotEmpty(t, job.ID)
	case <-time.After(time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	var calls int32
	done := make(chan struct{})
	q.Register("flaky", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("temporary")
		}
		close(done)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{Type: "flaky"}))

	select {
	case <-done:
		require.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueRejectsUnknownTypesAndStoppedQueue(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	q.Register("known", func(context.Context, Job) error { return nil })

	require.Error(t, q.Enqueue(context.Background(), Job{Type: "known"}))

	q.Start(context.Background())
	require.Error(t, q.Enqueue(context.Background(), Job{Type: "unknown"}))
	q.Stop()
	require.Error(t, q.Enqueue(context.Background(), Job{Type: "known"}))
}
