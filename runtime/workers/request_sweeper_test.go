package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"lingua-link/domain"
	"lingua-link/store"
)

func newTestStore(t *testing.T) *store.BadgerStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.NewBadgerStore(db, logs.GetLoggerFromLevel(slog.LevelDebug))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func seedRequest(t *testing.T, s *store.BadgerStore, id string, status domain.RequestStatus, age time.Duration, clock *fakeClock) {
	t.Helper()
	r := domain.NewConnectionRequest(id, domain.User{ID: "alice", Username: "Alice"}, "bob", clock.Now().Add(-age))
	r.Status = status
	require.NoError(t, s.Write(context.Background(), "connection_requests/"+id, r))
}

func TestSweep_RemovesOldTerminalAndExpiredRequests(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	clock := newFakeClock()
	ctx := context.Background()

	seedRequest(t, s, "r-accepted-old", domain.StatusAccepted, 2*time.Hour, clock)
	seedRequest(t, s, "r-rejected-old", domain.StatusRejected, 2*time.Hour, clock)
	seedRequest(t, s, "r-expired-old", domain.StatusPending, 2*time.Hour, clock)
	seedRequest(t, s, "r-accepted-recent", domain.StatusAccepted, 10*time.Minute, clock)
	seedRequest(t, s, "r-live", domain.StatusPending, time.Minute, clock)

	sweeper := NewRequestSweeper(logs.GetLoggerFromLevel(slog.LevelDebug), s, time.Hour, time.Minute).
		WithClock(clock.Now)
	req.NoError(sweeper.Sweep(ctx))

	remaining, err := s.Once(ctx, store.Ref{Path: "connection_requests"})
	req.NoError(err)
	var ids []string
	for _, child := range remaining.Children() {
		ids = append(ids, child.Key())
	}
	// Terminal but younger than the retention stays, as does anything
	// still pending and answerable.
	req.ElementsMatch([]string{"r-accepted-recent", "r-live"}, ids)
}

func TestSweep_KeepsMalformedRecords(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	clock := newFakeClock()
	ctx := context.Background()

	req.NoError(s.Write(ctx, "connection_requests/broken", map[string]any{"note": "not a request"}))
	seedRequest(t, s, "r-accepted-old", domain.StatusAccepted, 2*time.Hour, clock)

	sweeper := NewRequestSweeper(logs.GetLoggerFromLevel(slog.LevelDebug), s, time.Hour, time.Minute).
		WithClock(clock.Now)
	req.NoError(sweeper.Sweep(ctx))

	snap, err := s.Once(ctx, store.Ref{Path: "connection_requests/broken"})
	req.NoError(err)
	req.True(snap.Exists())

	gone, err := s.Once(ctx, store.Ref{Path: "connection_requests/r-accepted-old"})
	req.NoError(err)
	req.False(gone.Exists())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := newTestStore(t)
	sweeper := NewRequestSweeper(logs.GetLoggerFromLevel(slog.LevelDebug), s, time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancellation")
	}
}
