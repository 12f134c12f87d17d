package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passbi/dynaroute/internal/queue"
)

func TestPoolProcessesTasksAndCompletes(t *testing.T) {
	q := queue.NewQueue()
	var processed int64

	pool := NewPool("test", q, 4, func(task *queue.Task) (string, error) {
		atomic.AddInt64(&processed, 1)
		return "OK", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go pool.Run(ctx)
	defer cancel()

	tasks := make([]*queue.Task, 50)
	for i := range tasks {
		tasks[i] = queue.New(queue.Route)
		q.Push(tasks[i])
	}

	for _, task := range tasks {
		select {
		case <-task.Done():
			assert.Equal(t, "OK", task.Response)
			assert.NoError(t, task.Err)
		case <-time.After(time.Second):
			t.Fatal("task never completed")
		}
	}

	assert.Equal(t, int64(50), atomic.LoadInt64(&processed))
}

func TestPoolRecoversFromPanic(t *testing.T) {
	q := queue.NewQueue()

	pool := NewPool("test", q, 1, func(task *queue.Task) (string, error) {
		panic("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pool.Run(ctx)

	task := queue.New(queue.Update)
	q.Push(task)

	select {
	case <-task.Done():
		require.Error(t, task.Err)
		assert.Empty(t, task.Response)
	case <-time.After(time.Second):
		t.Fatal("task never completed after panic")
	}

	// The worker goroutine must have survived: a second task still
	// gets processed instead of hanging forever.
	task2 := queue.New(queue.Update)
	q.Push(task2)

	select {
	case <-task2.Done():
		require.Error(t, task2.Err)
	case <-time.After(time.Second):
		t.Fatal("worker did not survive panic to process a second task")
	}
}

func TestPoolStopsWhenQueueCloses(t *testing.T) {
	q := queue.NewQueue()
	pool := NewPool("test", q, 2, func(task *queue.Task) (string, error) {
		return "OK", nil
	})

	done := make(chan error, 1)
	go func() {
		done <- pool.Run(context.Background())
	}()

	q.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pool did not stop after queue closed")
	}
}
