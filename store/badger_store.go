package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	liErrors "lingua-link/errors"
)

const (
	nodePrefix = "t:"
	// Snapshots queued per subscription. A full queue drops the oldest
	// entry: every delivery is a full-subtree snapshot, so only the most
	// recent one matters.
	dispatchBuffer = 16
)

// BadgerStore implements TreeStore on top of BadgerDB. Every tree node that
// was written as a unit lives under one key, "t:<path>", holding its JSON
// value. Subtree reads assemble nested maps from a prefix scan; writes below
// an existing record merge into it; writes above a subtree replace its
// descendants.
//
// Change notification is in-process only: each subscription owns a dispatch
// goroutine fed after every committed write. That is enough for local runs
// and for exercising the exact subscribe/read/write contract the services
// are written against.
type BadgerStore struct {
	db    *badger.DB
	log   *slog.Logger
	clock Clock

	mu     sync.RWMutex
	subs   map[uint64]*badgerSub
	nextID uint64
}

func NewBadgerStore(db *badger.DB, log *slog.Logger) *BadgerStore {
	return &BadgerStore{
		db:    db,
		log:   log,
		clock: time.Now,
		subs:  make(map[uint64]*badgerSub),
	}
}

// WithClock overrides wall-clock reads, for tests.
func (s *BadgerStore) WithClock(clock Clock) *BadgerStore {
	s.clock = clock
	return s
}

type badgerSub struct {
	id    uint64
	ref   Ref
	fn    ChangeFunc
	queue chan Snapshot
	stop  chan struct{}
	done  chan struct{}
	store *BadgerStore
}

func (s *BadgerStore) Subscribe(ctx context.Context, ref Ref, fn ChangeFunc) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref.Path == "" {
		return nil, liErrors.ErrPathEmpty
	}

	sub := &badgerSub{
		ref:   ref,
		fn:    fn,
		queue: make(chan Snapshot, dispatchBuffer),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		store: s,
	}

	s.mu.Lock()
	s.nextID++
	sub.id = s.nextID
	s.subs[sub.id] = sub
	s.mu.Unlock()

	go sub.pump()

	// A new listener receives the current value right away, like any
	// later change.
	snap, err := s.Once(ctx, ref)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	sub.enqueue(snap)
	return sub, nil
}

func (b *badgerSub) pump() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case snap := <-b.queue:
			// Re-check: Unsubscribe may have raced the queue read.
			select {
			case <-b.stop:
				return
			default:
			}
			b.fn(snap)
		}
	}
}

func (b *badgerSub) enqueue(snap Snapshot) {
	for {
		select {
		case b.queue <- snap:
			return
		default:
		}
		// Queue full: discard the oldest snapshot, it is stale anyway.
		select {
		case <-b.queue:
		default:
		}
	}
}

// Unsubscribe detaches the listener and waits for the dispatch goroutine to
// exit. No callback fires after it returns.
func (b *badgerSub) Unsubscribe() {
	b.store.mu.Lock()
	_, active := b.store.subs[b.id]
	delete(b.store.subs, b.id)
	b.store.mu.Unlock()
	if !active {
		return
	}
	close(b.stop)
	<-b.done
}

func (s *BadgerStore) Once(ctx context.Context, ref Ref) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if ref.Path == "" {
		return Snapshot{}, liErrors.ErrPathEmpty
	}
	var snap Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		snap, err = readNode(txn, ref.Path)
		return err
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %q: %w", ref.Path, err)
	}
	return applyFilter(ref, snap), nil
}

func (s *BadgerStore) Write(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return liErrors.ErrPathEmpty
	}
	normalized, err := normalize(value)
	if err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return writeNode(txn, path, normalized)
	})
	if err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	s.notify(path)
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return liErrors.ErrPathEmpty
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return deleteNode(txn, path)
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w", path, err)
	}
	s.notify(path)
	return nil
}

// GenerateKey returns a chronologically sortable unique child key: a
// zero-padded nanosecond timestamp with a UUID as collision disconnector,
// the same scheme the message keys use for lexicographic time ordering.
func (s *BadgerStore) GenerateKey(string) string {
	return fmt.Sprintf("%019d-%s", s.clock().UnixNano(), uuid.New())
}

// notify re-reads and queues a fresh snapshot for every subscription whose
// path overlaps the written one. Delivery order across subscriptions is
// unspecified.
func (s *BadgerStore) notify(path string) {
	s.mu.RLock()
	related := make([]*badgerSub, 0, len(s.subs))
	for _, sub := range s.subs {
		if pathsOverlap(sub.ref.Path, path) {
			related = append(related, sub)
		}
	}
	s.mu.RUnlock()

	for _, sub := range related {
		snap, err := s.Once(context.Background(), sub.ref)
		if err != nil {
			s.log.Warn("snapshot refresh failed", "path", sub.ref.Path, "error", err)
			continue
		}
		sub.enqueue(snap)
	}
}

func pathsOverlap(a, b string) bool {
	return a == b || strings.HasPrefix(b, a+"/") || strings.HasPrefix(a, b+"/")
}

// normalize round-trips the value through JSON so stored trees only ever
// contain JSON shapes, whatever struct the caller handed in.
func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err = json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nodeKey(path string) []byte { return []byte(nodePrefix + path) }

// readNode resolves path against the flat key layout: an exact record, a
// field inside a shallower record, or a subtree assembled from deeper keys.
func readNode(txn *badger.Txn, path string) (Snapshot, error) {
	segments := strings.Split(path, "/")
	key := segments[len(segments)-1]

	// Exact record.
	if item, err := txn.Get(nodeKey(path)); err == nil {
		value, err := decodeItem(item)
		if err != nil {
			return Snapshot{}, err
		}
		return NewSnapshot(key, value), nil
	} else if err != badger.ErrKeyNotFound {
		return Snapshot{}, err
	}

	// Field of a shallower record.
	for depth := len(segments) - 1; depth > 0; depth-- {
		ancestor := strings.Join(segments[:depth], "/")
		item, err := txn.Get(nodeKey(ancestor))
		if err == badger.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return Snapshot{}, err
		}
		value, err := decodeItem(item)
		if err != nil {
			return Snapshot{}, err
		}
		snap := NewSnapshot(segments[depth-1], value)
		for _, segment := range segments[depth:] {
			snap = snap.Child(segment)
		}
		return NewSnapshot(key, snap.Value()), nil
	}

	// Subtree of deeper records.
	assembled := make(map[string]any)
	prefix := nodeKey(path + "/")
	options := badger.DefaultIteratorOptions
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		rest := strings.TrimPrefix(string(item.Key()), string(prefix))
		value, err := decodeItem(item)
		if err != nil {
			return Snapshot{}, err
		}
		setNested(assembled, strings.Split(rest, "/"), value)
	}
	if len(assembled) == 0 {
		return NewSnapshot(key, nil), nil
	}
	return NewSnapshot(key, assembled), nil
}

func decodeItem(item *badger.Item) (any, error) {
	var value any
	err := item.Value(func(raw []byte) error {
		return json.Unmarshal(raw, &value)
	})
	return value, err
}

func setNested(branch map[string]any, segments []string, value any) {
	for _, segment := range segments[:len(segments)-1] {
		child, ok := branch[segment].(map[string]any)
		if !ok {
			child = make(map[string]any)
			branch[segment] = child
		}
		branch = child
	}
	branch[segments[len(segments)-1]] = value
}

func writeNode(txn *badger.Txn, path string, value any) error {
	segments := strings.Split(path, "/")

	// A write below an existing record updates the field inside it.
	for depth := len(segments) - 1; depth > 0; depth-- {
		ancestor := strings.Join(segments[:depth], "/")
		item, err := txn.Get(nodeKey(ancestor))
		if err == badger.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return err
		}
		existing, err := decodeItem(item)
		if err != nil {
			return err
		}
		branch, ok := existing.(map[string]any)
		if !ok {
			branch = make(map[string]any)
		}
		setNested(branch, segments[depth:], value)
		raw, err := json.Marshal(branch)
		if err != nil {
			return err
		}
		return txn.Set(nodeKey(ancestor), raw)
	}

	// A value replaces whatever subtree lived below the path.
	if err := deleteDescendants(txn, path); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return txn.Set(nodeKey(path), raw)
}

func deleteNode(txn *badger.Txn, path string) error {
	segments := strings.Split(path, "/")
	if err := txn.Delete(nodeKey(path)); err != nil && err != badger.ErrKeyNotFound {
		return err
	}
	if err := deleteDescendants(txn, path); err != nil {
		return err
	}

	// The node may live inside a shallower record.
	for depth := len(segments) - 1; depth > 0; depth-- {
		ancestor := strings.Join(segments[:depth], "/")
		item, err := txn.Get(nodeKey(ancestor))
		if err == badger.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return err
		}
		existing, err := decodeItem(item)
		if err != nil {
			return err
		}
		branch, ok := existing.(map[string]any)
		if !ok {
			return nil
		}
		removeNested(branch, segments[depth:])
		raw, err := json.Marshal(branch)
		if err != nil {
			return err
		}
		return txn.Set(nodeKey(ancestor), raw)
	}
	return nil
}

func removeNested(branch map[string]any, segments []string) {
	for _, segment := range segments[:len(segments)-1] {
		child, ok := branch[segment].(map[string]any)
		if !ok {
			return
		}
		branch = child
	}
	delete(branch, segments[len(segments)-1])
}

func deleteDescendants(txn *badger.Txn, path string) error {
	prefix := nodeKey(path + "/")
	options := badger.DefaultIteratorOptions
	options.Prefix = prefix
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	var doomed [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		doomed = append(doomed, it.Item().KeyCopy(nil))
	}
	for _, key := range doomed {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// applyFilter keeps only the direct children whose OrderByChild field
// equals EqualTo, preserving the subscribed collection shape.
func applyFilter(ref Ref, snap Snapshot) Snapshot {
	if !ref.Filtered() || !snap.Exists() {
		return snap
	}
	filtered := make(map[string]any)
	for _, child := range snap.Children() {
		if child.Child(ref.OrderByChild).Text() == ref.EqualTo {
			filtered[child.Key()] = child.Value()
		}
	}
	if len(filtered) == 0 {
		return NewSnapshot(snap.Key(), nil)
	}
	return NewSnapshot(snap.Key(), filtered)
}
