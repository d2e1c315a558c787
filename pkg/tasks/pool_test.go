package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/hostkeeper/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsTasks(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 2, QueueSize: 8})
	done := make(chan Task, 2)
	pool.Register(KindStorageCheck, func(ctx context.Context, task Task) error {
		done <- task
		return nil
	})
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.Submit(context.Background(), New(KindStorageCheck, "srv-1")))
	require.NoError(t, pool.Submit(context.Background(), New(KindStorageCheck, "srv-2")))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case task := <-done:
			seen[task.ServerID] = true
			assert.NotEmpty(t, task.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("task was not executed")
		}
	}
	assert.Equal(t, map[string]bool{"srv-1": true, "srv-2": true}, seen)
}

func TestPoolDropsInFlightDuplicates(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 1, QueueSize: 8})
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	var runs int32
	pool.Register(KindLogDrainInstall, func(ctx context.Context, task Task) error {
		atomic.AddInt32(&runs, 1)
		started <- struct{}{}
		<-release
		return nil
	})
	pool.Start()
	defer pool.Stop()

	ctx := context.Background()
	require.NoError(t, pool.Submit(ctx, New(KindLogDrainInstall, "srv-1")))
	<-started

	// Same pair while running: accepted but dropped
	require.NoError(t, pool.Submit(ctx, New(KindLogDrainInstall, "srv-1")))
	assert.Equal(t, 1, pool.InFlight())

	close(release)
	require.Eventually(t, func() bool { return pool.InFlight() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Once finished the pair can run again
	require.NoError(t, pool.Submit(ctx, New(KindLogDrainInstall, "srv-1")))
	<-started
	require.Eventually(t, func() bool { return pool.InFlight() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
}

func TestPoolQueueFull(t *testing.T) {
	// Not started, so nothing drains the queue
	pool := NewPool(PoolConfig{Workers: 1, QueueSize: 1})
	pool.Register(KindSentinelCheck, func(ctx context.Context, task Task) error { return nil })

	require.NoError(t, pool.Submit(context.Background(), New(KindSentinelCheck, "srv-1")))
	err := pool.Submit(context.Background(), New(KindSentinelCheck, "srv-2"))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, pool.InFlight())
}

func TestPoolRejectsUnknownKind(t *testing.T) {
	pool := NewPool(PoolConfig{})
	err := pool.Submit(context.Background(), New(KindStorageCheck, "srv-1"))
	assert.Error(t, err)
}

func TestPoolStopped(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 1, QueueSize: 1})
	pool.Register(KindStorageCheck, func(ctx context.Context, task Task) error { return nil })
	pool.Start()
	pool.Stop()
	pool.Stop()

	err := pool.Submit(context.Background(), New(KindStorageCheck, "srv-1"))
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPoolSubmitCancelledContext(t *testing.T) {
	pool := NewPool(PoolConfig{})
	pool.Register(KindStorageCheck, func(ctx context.Context, task Task) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pool.Submit(ctx, New(KindStorageCheck, "srv-1")), context.Canceled)
}

func TestPoolSurvivesFailingHandlers(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 1, QueueSize: 8, Timeout: time.Second})
	var ok int32
	pool.Register(KindStorageCheck, func(ctx context.Context, task Task) error {
		return errors.New("disk usage query failed")
	})
	pool.Register(KindSentinelCheck, func(ctx context.Context, task Task) error {
		panic("boom")
	})
	pool.Register(KindLogDrainInstall, func(ctx context.Context, task Task) error {
		atomic.AddInt32(&ok, 1)
		return nil
	})
	pool.Start()
	defer pool.Stop()

	ctx := context.Background()
	require.NoError(t, pool.Submit(ctx, New(KindStorageCheck, "srv-1")))
	require.NoError(t, pool.Submit(ctx, New(KindSentinelCheck, "srv-1")))
	require.NoError(t, pool.Submit(ctx, New(KindLogDrainInstall, "srv-1")))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&ok) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestPoolTaskTimeout(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 1, QueueSize: 1, Timeout: 20 * time.Millisecond})
	result := make(chan error, 1)
	pool.Register(KindStorageCheck, func(ctx context.Context, task Task) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	})
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.Submit(context.Background(), New(KindStorageCheck, "srv-1")))
	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not cancelled")
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()

	require.NoError(t, r.Submit(ctx, New(KindStorageCheck, "srv-1")))
	require.NoError(t, r.Submit(ctx, New(KindLogDrainInstall, "srv-1")))
	require.NoError(t, r.Submit(ctx, New(KindStorageCheck, "srv-2")))

	assert.Len(t, r.Tasks(), 3)
	assert.Equal(t, 2, r.Count(KindStorageCheck))
	assert.Equal(t, 0, r.Count(KindSentinelCheck))

	r.Reset()
	assert.Empty(t, r.Tasks())

	r.Err = ErrQueueFull
	assert.ErrorIs(t, r.Submit(ctx, New(KindStorageCheck, "srv-1")), ErrQueueFull)
	assert.Empty(t, r.Tasks())
}

func TestPoolPublishesFailures(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	pool := NewPool(PoolConfig{Workers: 1, QueueSize: 1, Events: broker})
	pool.Register(KindSentinelCheck, func(ctx context.Context, task Task) error {
		return errors.New("agent unreachable")
	})
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.Submit(context.Background(), New(KindSentinelCheck, "srv-1")))

	select {
	case event := <-sub:
		assert.Equal(t, events.EventTaskFailed, event.Type)
		assert.Equal(t, "srv-1", event.ServerID)
		assert.Equal(t, string(KindSentinelCheck), event.Metadata["task_kind"])
		assert.Equal(t, "agent unreachable", event.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no task.failed event")
	}
}
