package sink

import (
	"context"
	"sync"

	"lingua-link/domain/event"
)

// FeedView keeps the newest feed snapshot seen so far. Snapshots of a
// superseded generation are dropped, so readers never observe the feed
// moving backwards.
type FeedView struct {
	mu     sync.Mutex
	latest event.FeedRefreshed
	seen   bool
}

func NewFeedView() *FeedView {
	return &FeedView{}
}

func (v *FeedView) Consume(_ context.Context, e event.DomainEvent) error {
	refreshed, ok := e.(event.FeedRefreshed)
	if !ok {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seen && refreshed.Generation <= v.latest.Generation {
		return nil
	}
	v.latest = refreshed
	v.seen = true
	return nil
}

// Latest returns the newest snapshot, false before the first one arrives.
func (v *FeedView) Latest() (event.FeedRefreshed, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest, v.seen
}
