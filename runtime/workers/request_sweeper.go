package workers

import (
	"context"
	"log/slog"
	"time"

	"lingua-link/domain"
	"lingua-link/store"
)

const requestsRoot = "connection_requests"

// RequestSweeper deletes terminal (accepted/rejected/cancelled) and expired
// connection requests older than the configured retention. Retaining them
// forever is the default elsewhere in the system; running this worker is
// the explicit opt-in to cleanup.
type RequestSweeper struct {
	Log       *slog.Logger
	Store     store.TreeStore
	Retention time.Duration
	Interval  time.Duration
	clock     store.Clock
}

func NewRequestSweeper(log *slog.Logger, treeStore store.TreeStore, retention, interval time.Duration) *RequestSweeper {
	return &RequestSweeper{
		Log:       log,
		Store:     treeStore,
		Retention: retention,
		Interval:  interval,
		clock:     time.Now,
	}
}

// WithClock overrides wall-clock reads, for tests.
func (w *RequestSweeper) WithClock(clock store.Clock) *RequestSweeper {
	w.clock = clock
	return w
}

func (w *RequestSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Log.Debug("Context done, stopping request sweep")
			return nil
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				return err
			}
		}
	}
}

// Sweep runs one cleanup pass.
func (w *RequestSweeper) Sweep(ctx context.Context) error {
	snap, err := w.Store.Once(ctx, store.Ref{Path: requestsRoot})
	if err != nil {
		return err
	}

	now := w.clock()
	swept := 0
	for _, child := range snap.Children() {
		var request domain.ConnectionRequest
		if err := child.Decode(&request); err != nil {
			// Malformed records never leave the store by themselves.
			w.Log.Debug("skipping malformed request", "request", child.Key())
			continue
		}
		if !request.IsTerminal() && !request.IsExpired(now) {
			continue
		}
		if now.Sub(time.UnixMilli(request.Timestamp)) < w.Retention {
			continue
		}
		if err := w.Store.Delete(ctx, requestsRoot+"/"+child.Key()); err != nil {
			return err
		}
		swept++
	}
	if swept > 0 {
		w.Log.Info("swept connection requests", "count", swept)
	}
	return nil
}
