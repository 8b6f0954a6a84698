package workqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkQueue_RunsJobsAndTracksCompletion(t *testing.T) {
	queue := New("test", 2, 10)

	var mu sync.Mutex
	var failures []string
	queue.OnError(func(jobName string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, jobName)
	})

	ran := make(chan string, 3)
	require.NoError(t, queue.Submit("ok-1", func(ctx context.Context) error { ran <- "ok-1"; return nil }))
	require.NoError(t, queue.Submit("ok-2", func(ctx context.Context) error { ran <- "ok-2"; return nil }))
	require.NoError(t, queue.Submit("fails", func(ctx context.Context) error { ran <- "fails"; return errors.New("boom") }))

	queue.Wait()
	close(ran)

	var names []string
	for name := range ran {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"ok-1", "ok-2", "fails"}, names)
	assert.Equal(t, []string{"fails"}, failures)
	assert.Equal(t, Stats{Submitted: 3, Completed: 2, Failed: 1}, queue.Stats())

	require.NoError(t, queue.Shutdown(context.Background()))
}

func TestWorkQueue_RejectsWhenFull(t *testing.T) {
	queue := New("test", 1, 2)
	release := make(chan struct{})
	blocking := func(ctx context.Context) error {
		<-release
		return nil
	}

	require.NoError(t, queue.Submit("a", blocking))
	require.NoError(t, queue.Submit("b", blocking))

	err := queue.Submit("c", blocking)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	queue.Wait()

	// Capacity frees up once admitted jobs finish
	require.NoError(t, queue.Submit("d", func(ctx context.Context) error { return nil }))
	queue.Wait()

	stats := queue.Stats()
	assert.Equal(t, int64(3), stats.Submitted)
	assert.Equal(t, int64(1), stats.Rejected)
	assert.Equal(t, int64(3), stats.Completed)
	assert.Equal(t, int64(0), stats.Pending)

	require.NoError(t, queue.Shutdown(context.Background()))
}

func TestWorkQueue_ShutdownWaitsForOutstandingJobs(t *testing.T) {
	queue := New("test", 1, 5)
	finished := make(chan struct{})

	require.NoError(t, queue.Submit("slow", func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return nil
	}))

	require.NoError(t, queue.Shutdown(context.Background()))

	select {
	case <-finished:
	default:
		t.Fatal("shutdown returned before the job finished")
	}

	err := queue.Submit("late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.NoError(t, queue.Shutdown(context.Background()))
}

func TestWorkQueue_ShutdownDeadlineCancelsJobs(t *testing.T) {
	queue := New("test", 1, 5)
	cancelled := make(chan struct{})

	require.NoError(t, queue.Submit("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := queue.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("job context was not cancelled")
	}
}

func TestWorkQueue_RecoversPanics(t *testing.T) {
	queue := New("test", 1, 5)

	var captured error
	queue.OnError(func(jobName string, err error) { captured = err })

	require.NoError(t, queue.Submit("panics", func(ctx context.Context) error { panic("bad event") }))
	queue.Wait()

	require.Error(t, captured)
	assert.Contains(t, captured.Error(), "bad event")
	assert.Equal(t, int64(1), queue.Stats().Failed)
	require.NoError(t, queue.Shutdown(context.Background()))
}
