package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsTasksAcrossWorkers(t *testing.T) {
	var mu sync.Mutex
	ran := map[string]int{}
	done := make(chan struct{}, 8)

	run := func(_ context.Context, task Task) error {
		mu.Lock()
		ran[task.RecordID]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	q := New("exports", run, Options{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Push(Task{RecordID: "job-a"}))
	require.NoError(t, q.Push(Task{RecordID: "job-b"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, ran["job-a"])
	assert.Equal(t, 1, ran["job-b"])
}

func TestQueueRetriesFailedTask(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	run := func(_ context.Context, _ Task) error {
		mu.Lock()
		attempts++
		current := attempts
		mu.Unlock()
		if current < 2 {
			return errors.New("transient render failure")
		}
		close(done)
		return nil
	}

	q := New("exports", run, Options{Workers: 1, MaxAttempts: 3, Backoff: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Push(Task{RecordID: "job-flaky"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not retried")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestPushBeforeStartFails(t *testing.T) {
	q := New("idle", func(context.Context, Task) error { return nil }, Options{})
	assert.Error(t, q.Push(Task{RecordID: "early"}))
}
