package observability

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"lingua-link/domain"
	"lingua-link/domain/event"
)

func TestMonitor_CountsDomainEvents(t *testing.T) {
	req := require.New(t)
	monitor := NewMonitor(logs.GetLoggerFromLevel(slog.LevelDebug), time.Minute)
	ctx := context.Background()

	req.NoError(monitor.Consume(ctx, event.FeedRefreshed{Generation: 1}))
	req.NoError(monitor.Consume(ctx, event.FeedRefreshed{Generation: 2}))
	req.NoError(monitor.Consume(ctx, event.InboundRequest{}))
	req.NoError(monitor.Consume(ctx, event.SessionReady{Session: "alice_bob"}))
	req.NoError(monitor.Consume(ctx, event.RequestStatusChanged{
		RequestID: "r1", Status: domain.StatusCancelled}))

	stats := monitor.Snapshot()
	req.Equal(uint64(2), stats.FeedSnapshots)
	req.Equal(uint64(1), stats.InboundRequests)
	req.Equal(uint64(1), stats.SessionsOpened)
	req.Equal(uint64(1), stats.StatusChanges)
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	monitor := NewMonitor(logs.GetLoggerFromLevel(slog.LevelDebug), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on cancellation")
	}
}
