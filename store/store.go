//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks

// Package store defines the remote synchronized tree store contract the
// feed aggregator and the signaling service are written against, plus a
// Badger-backed implementation used for local runs and tests.
//
// The contract is deliberately small: hierarchical paths, full-subtree
// snapshots delivered on every change, one-shot reads, unconditional
// writes, and server-generated child keys. Nothing here assumes how the
// remote side replicates, only that it eventually delivers changes to
// subscribers.
package store

import (
	"context"
	"time"
)

// Ref addresses a subtree. When OrderByChild is set, the delivered snapshot
// contains only the direct children whose named field equals EqualTo. This
// mirrors the orderByChild+equalTo filtered subscriptions the signaling
// listeners are scoped with.
type Ref struct {
	Path         string
	OrderByChild string
	EqualTo      string
}

// Filtered reports whether the ref carries a child filter.
func (r Ref) Filtered() bool { return r.OrderByChild != "" }

// ChangeFunc receives the full (possibly filtered) subtree value. It is
// invoked on the subscription's own dispatch goroutine; no ordering is
// guaranteed between independent subscriptions.
type ChangeFunc func(Snapshot)

// Subscription is the handle returned by Subscribe. Unsubscribe is the only
// cancellation primitive; it blocks until the dispatch goroutine has
// stopped, so no callback fires after it returns.
type Subscription interface {
	Unsubscribe()
}

// TreeStore is the consumed store contract.
type TreeStore interface {
	// Subscribe delivers the current value immediately, then again on
	// every change under ref.Path, until Unsubscribe.
	Subscribe(ctx context.Context, ref Ref, fn ChangeFunc) (Subscription, error)

	// Once reads the subtree a single time.
	Once(ctx context.Context, ref Ref) (Snapshot, error)

	// Write unconditionally replaces the value at path. Writing below an
	// existing record updates the field inside it; writing above replaces
	// the whole subtree. Last writer wins.
	Write(ctx context.Context, path string, value any) error

	// Delete removes the subtree at path.
	Delete(ctx context.Context, path string) error

	// GenerateKey returns a fresh child key for path. Keys sort
	// chronologically so sibling scans come back in insertion order.
	GenerateKey(path string) string
}

// Clock abstracts wall-clock reads so expiry windows are testable.
type Clock func() time.Time
