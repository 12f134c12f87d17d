package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFOOrder(t *testing.T) {
	q := NewQueue()
	t1 := New(Route)
	t2 := New(Route)
	t3 := New(Route)

	q.Push(t1)
	q.Push(t2)
	q.Push(t3)

	got1, ok := q.Pop()
	require.True(t, ok)
	got2, _ := q.Pop()
	got3, _ := q.Pop()

	assert.Equal(t, t1.ID, got1.ID)
	assert.Equal(t, t2.ID, got2.ID)
	assert.Equal(t, t3.ID, got3.ID)
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := NewQueue()

	resultCh := make(chan *Task, 1)
	go func() {
		task, ok := q.Pop()
		if ok {
			resultCh <- task
		}
	}()

	select {
	case <-resultCh:
		t.Fatal("Pop returned before any Push")
	case <-time.After(20 * time.Millisecond):
	}

	task := New(Update)
	q.Push(task)

	select {
	case got := <-resultCh:
		assert.Equal(t, task.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Push")
	}
}

func TestCloseWakesBlockedPop(t *testing.T) {
	q := NewQueue()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Close")
	}
}

func TestConcurrentPushPop(t *testing.T) {
	q := NewQueue()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Push(New(Route))
		}()
	}

	seen := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, ok := q.Pop()
			if ok && task != nil {
				seen <- struct{}{}
			}
		}()
	}

	wg.Wait()
	close(seen)

	count := 0
	for range seen {
		count++
	}
	assert.Equal(t, n, count)
}

func TestTaskCompleteUnblocksDone(t *testing.T) {
	task := New(Predict)

	go func() {
		time.Sleep(10 * time.Millisecond)
		task.Complete("PRED 0 1.000", nil)
	}()

	select {
	case <-task.Done():
		assert.Equal(t, "PRED 0 1.000", task.Response)
		assert.NoError(t, task.Err)
	case <-time.After(time.Second):
		t.Fatal("Done never closed after Complete")
	}
}
