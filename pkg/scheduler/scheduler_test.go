package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/hostkeeper/pkg/events"
	"github.com/cuemby/hostkeeper/pkg/reconciler"
	"github.com/cuemby/hostkeeper/pkg/storage"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	servers []*types.Server
	err     error
}

func (f *fakeSource) ListServers() ([]*types.Server, error) {
	return f.servers, f.err
}

func (f *fakeSource) GetServer(id string) (*types.Server, error) {
	for _, s := range f.servers {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, storage.ErrNotFound
}

// blockingChecker holds every run until release is closed
type blockingChecker struct {
	mu        sync.Mutex
	calls     map[string]int
	deadlines []time.Duration
	release   chan struct{}
	entered   chan string
}

func newBlockingChecker() *blockingChecker {
	return &blockingChecker{
		calls:   make(map[string]int),
		release: make(chan struct{}),
		entered: make(chan string, 64),
	}
}

func (c *blockingChecker) Check(ctx context.Context, server *types.Server) reconciler.Outcome {
	c.mu.Lock()
	c.calls[server.ID]++
	if dl, ok := ctx.Deadline(); ok {
		c.deadlines = append(c.deadlines, time.Until(dl))
	}
	c.mu.Unlock()

	c.entered <- server.ID
	select {
	case <-c.release:
	case <-ctx.Done():
	}
	return reconciler.Outcome{ServerID: server.ID, Result: reconciler.ResultCompleted}
}

func (c *blockingChecker) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func servers(ids ...string) *fakeSource {
	src := &fakeSource{}
	for _, id := range ids {
		src.servers = append(src.servers, &types.Server{ID: id})
	}
	return src
}

func waitEntered(t *testing.T, c *blockingChecker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.entered:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d runs started", i, n)
		}
	}
}

func TestDispatchRunsServersInParallel(t *testing.T) {
	checker := newBlockingChecker()
	s := NewScheduler(servers("a", "b", "c"), checker, Config{MaxConcurrent: 3})

	assert.Equal(t, 3, s.dispatch())
	waitEntered(t, checker, 3)

	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, s.Active(id))
	}
	close(checker.release)
	s.wg.Wait()
	assert.False(t, s.Active("a"))
}

func TestDispatchSkipsActiveServer(t *testing.T) {
	checker := newBlockingChecker()
	s := NewScheduler(servers("a"), checker, Config{MaxConcurrent: 4})

	require.Equal(t, 1, s.dispatch())
	waitEntered(t, checker, 1)

	assert.Equal(t, 0, s.dispatch(), "second tick while the first run is active")
	close(checker.release)
	s.wg.Wait()
	assert.Equal(t, 1, checker.count("a"))
}

func TestDispatchAppliesBackoff(t *testing.T) {
	checker := newBlockingChecker()
	close(checker.release)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewScheduler(servers("a"), checker, Config{MaxConcurrent: 1, Backoff: 3 * time.Second})
	s.now = func() time.Time { return now }

	require.Equal(t, 1, s.dispatch())
	s.wg.Wait()

	now = now.Add(time.Second)
	assert.Equal(t, 0, s.dispatch(), "inside the backoff window")

	now = now.Add(3 * time.Second)
	assert.Equal(t, 1, s.dispatch())
	s.wg.Wait()
	assert.Equal(t, 2, checker.count("a"))
}

func TestDispatchBoundsConcurrency(t *testing.T) {
	checker := newBlockingChecker()
	s := NewScheduler(servers("a", "b", "c"), checker, Config{MaxConcurrent: 2})

	assert.Equal(t, 2, s.dispatch())
	waitEntered(t, checker, 2)
	assert.False(t, s.Active("c"), "server over capacity is released for the next tick")

	close(checker.release)
	s.wg.Wait()
}

func TestDispatchListError(t *testing.T) {
	s := NewScheduler(&fakeSource{err: errors.New("store closed")}, newBlockingChecker(), Config{})
	assert.Equal(t, 0, s.dispatch())
}

func TestRunTimeoutBoundsEachRun(t *testing.T) {
	checker := newBlockingChecker()
	s := NewScheduler(servers("a"), checker, Config{MaxConcurrent: 1, RunTimeout: 50 * time.Millisecond})

	require.Equal(t, 1, s.dispatch())
	waitEntered(t, checker, 1)

	// The checker returns on ctx.Done without release
	s.wg.Wait()
	require.Len(t, checker.deadlines, 1)
	assert.LessOrEqual(t, checker.deadlines[0], 50*time.Millisecond)
	assert.False(t, s.Active("a"))
}

func TestRunNow(t *testing.T) {
	checker := newBlockingChecker()
	close(checker.release)
	s := NewScheduler(servers("a"), checker, Config{Backoff: time.Hour})

	out, err := s.RunNow(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, reconciler.ResultCompleted, out.Result)

	// Manual runs ignore backoff
	_, err = s.RunNow(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 2, checker.count("a"))

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunNowWhileActive(t *testing.T) {
	checker := newBlockingChecker()
	s := NewScheduler(servers("a"), checker, Config{MaxConcurrent: 1})

	require.Equal(t, 1, s.dispatch())
	waitEntered(t, checker, 1)

	_, err := s.RunNow(context.Background(), "a")
	assert.ErrorIs(t, err, ErrRunActive)

	close(checker.release)
	s.wg.Wait()
}

func TestStartStop(t *testing.T) {
	checker := newBlockingChecker()
	s := NewScheduler(servers("a"), checker, Config{Interval: time.Hour, MaxConcurrent: 1})

	s.Start()
	waitEntered(t, checker, 1)

	// Stop cancels the in-flight run instead of waiting for release
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestRunPublishesOutcome(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	checker := newBlockingChecker()
	close(checker.release)
	s := NewScheduler(servers("a"), checker, Config{Events: broker})

	_, err := s.RunNow(context.Background(), "a")
	require.NoError(t, err)

	select {
	case event := <-sub:
		assert.Equal(t, events.EventServerCheckCompleted, event.Type)
		assert.Equal(t, "a", event.ServerID)
		assert.Equal(t, string(reconciler.ResultCompleted), event.Metadata["result"])
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}
