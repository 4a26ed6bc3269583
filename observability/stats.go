// Package observability counts domain events and periodically logs a
// runtime snapshot. It stays entirely in-process: no exporter, no wire
// format, just counters behind an EventSink plus a supervised reporter.
package observability

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"lingua-link/domain/event"
)

// Stats is one point-in-time reading of the counters.
type Stats struct {
	FeedSnapshots   uint64 `json:"feed_snapshots"`
	InboundRequests uint64 `json:"inbound_requests"`
	SessionsOpened  uint64 `json:"sessions_opened"`
	StatusChanges   uint64 `json:"status_changes"`
	AllocMemMb      uint64 `json:"alloc_mem_mb"`
	NumGC           uint32 `json:"num_gc"`
}

// Monitor is both an EventSink and a supervised worker: wire it into the
// event fan-out to count, add it to the supervisor to report.
type Monitor struct {
	log      *slog.Logger
	interval time.Duration

	feedSnapshots   atomic.Uint64
	inboundRequests atomic.Uint64
	sessionsOpened  atomic.Uint64
	statusChanges   atomic.Uint64
}

func NewMonitor(log *slog.Logger, interval time.Duration) *Monitor {
	return &Monitor{log: log, interval: interval}
}

func (m *Monitor) Consume(_ context.Context, e event.DomainEvent) error {
	switch e.(type) {
	case event.FeedRefreshed:
		m.feedSnapshots.Add(1)
	case event.InboundRequest:
		m.inboundRequests.Add(1)
	case event.SessionReady:
		m.sessionsOpened.Add(1)
	case event.RequestStatusChanged:
		m.statusChanges.Add(1)
	}
	return nil
}

// Snapshot reads the counters and the Go runtime memory figures.
func (m *Monitor) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return Stats{
		FeedSnapshots:   m.feedSnapshots.Load(),
		InboundRequests: m.inboundRequests.Load(),
		SessionsOpened:  m.sessionsOpened.Load(),
		StatusChanges:   m.statusChanges.Load(),
		AllocMemMb:      mem.Alloc / 1024 / 1024,
		NumGC:           mem.NumGC,
	}
}

// Run logs a stats snapshot every interval until the context is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Context done, stopping stats reporter")
			return nil
		case <-ticker.C:
			stats := m.Snapshot()
			m.log.Info("runtime stats",
				"feed_snapshots", stats.FeedSnapshots,
				"inbound_requests", stats.InboundRequests,
				"sessions_opened", stats.SessionsOpened,
				"status_changes", stats.StatusChanges,
				"alloc_mem_mb", stats.AllocMemMb,
				"num_gc", stats.NumGC,
			)
		}
	}
}
