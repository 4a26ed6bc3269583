// Package projection builds the merged conversation view from observed
// store changes. Handles ordering, deduplication, and category replacement.
// Does not render anything or talk to a UI directly.
package projection

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"lingua-link/contract"
	"lingua-link/domain"
	"lingua-link/domain/event"
	"lingua-link/store"
)

const (
	messagesRoot      = "messages"
	groupMessagesRoot = "group_messages"
	groupsRoot        = "groups"
	usersRoot         = "users"
)

// Feed aggregates direct-message rooms, group messages, and group
// membership into one deduplicated conversation list per viewer.
type Feed struct {
	store store.TreeStore
	log   *slog.Logger
	clock store.Clock
}

func NewFeed(treeStore store.TreeStore, log *slog.Logger) *Feed {
	return &Feed{store: treeStore, log: log, clock: time.Now}
}

// WithClock overrides wall-clock reads, for tests.
func (f *Feed) WithClock(clock store.Clock) *Feed {
	f.clock = clock
	return f
}

// Watch owns the live subscriptions of one viewer's feed. Refresh passes
// are serialized by the mutex; every emitted snapshot carries a monotonic
// generation so consumers can drop results of superseded passes.
type Watch struct {
	feed   *Feed
	selfID string
	sink   contract.EventSink
	ctx    context.Context

	mu         sync.Mutex
	generation uint64
	direct     []domain.ChatItem
	groups     []domain.ChatItem

	subs []store.Subscription
}

// Watch starts streaming conversation-list snapshots for selfID to sink.
// An empty selfID yields a single unauthenticated snapshot instead of an
// error; the returned handle is still closable.
//
// One snapshot with the current store contents is delivered immediately,
// then a fresh one after every relevant store change. Each direct or group
// pass replaces its whole category; there is no incremental diffing, which
// is acceptable at the conversation counts this view targets.
func (f *Feed) Watch(ctx context.Context, selfID string, sink contract.EventSink) (*Watch, error) {
	w := &Watch{feed: f, selfID: selfID, sink: sink, ctx: ctx}

	if selfID == "" {
		w.consume(event.FeedRefreshed{State: event.FeedUnauthenticated})
		return w, nil
	}

	directSub, err := f.store.Subscribe(ctx, store.Ref{Path: messagesRoot}, w.onDirectChange)
	if err != nil {
		return nil, err
	}
	w.subs = append(w.subs, directSub)

	groupMessagesSub, err := f.store.Subscribe(ctx, store.Ref{Path: groupMessagesRoot}, w.onGroupChange)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.subs = append(w.subs, groupMessagesSub)

	groupsSub, err := f.store.Subscribe(ctx, store.Ref{Path: groupsRoot}, w.onGroupChange)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.subs = append(w.subs, groupsSub)

	return w, nil
}

// Close tears down every open subscription. No snapshot is emitted after
// it returns.
func (w *Watch) Close() {
	for _, sub := range w.subs {
		sub.Unsubscribe()
	}
	w.subs = nil
}

// onDirectChange recomputes the direct category from the delivered rooms
// snapshot, then the dependent single fetch of all user profiles.
func (w *Watch) onDirectChange(rooms store.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	lastByPeer := latestByPeer(rooms, w.selfID)

	users, err := w.feed.store.Once(w.ctx, store.Ref{Path: usersRoot})
	if err != nil {
		w.feed.log.Warn("user fetch failed", "error", err)
		w.emitLocked(event.FeedLoadFailed)
		return
	}

	direct := make([]domain.ChatItem, 0, len(lastByPeer))
	for _, child := range users.Children() {
		last, isPeer := lastByPeer[child.Key()]
		if !isPeer || child.Key() == w.selfID {
			continue
		}
		user, ok := decodeUser(child)
		if !ok || user.Email == "" {
			continue
		}
		direct = append(direct, domain.DirectChatItem(user, last))
	}

	w.direct = direct
	w.emitLocked(event.FeedOK)
}

// onGroupChange recomputes the group category. Both the group_messages and
// the groups subscription land here: the pass always re-reads the two roots
// as a sequential dependent chain, so either trigger yields the same result.
func (w *Watch) onGroupChange(store.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	groupMessages, err := w.feed.store.Once(w.ctx, store.Ref{Path: groupMessagesRoot})
	if err != nil {
		w.feed.log.Warn("group message fetch failed", "error", err)
		w.emitLocked(event.FeedLoadFailed)
		return
	}
	lastByGroup := latestByGroup(groupMessages)

	groups, err := w.feed.store.Once(w.ctx, store.Ref{Path: groupsRoot})
	if err != nil {
		w.feed.log.Warn("group fetch failed", "error", err)
		w.emitLocked(event.FeedLoadFailed)
		return
	}

	viewerLanguage := w.viewerLanguage()

	var groupItems []domain.ChatItem
	for _, child := range groups.Children() {
		var group domain.Group
		if err := child.Decode(&group); err != nil {
			w.feed.log.Debug("skipping malformed group", "group", child.Key())
			continue
		}
		if !group.IsMember(w.selfID) {
			continue
		}

		last := domain.LastMessage{
			Message:   domain.NoMessagesYet,
			Timestamp: group.CreatedAt,
		}
		if info, ok := lastByGroup[child.Key()]; ok {
			last = domain.LastMessage{
				SenderID:  info.SenderID,
				Message:   info.Resolve(w.selfID, viewerLanguage),
				Original:  info.Original,
				Timestamp: info.Timestamp,
			}
		}
		groupItems = append(groupItems, domain.GroupChatItem(child.Key(), group, last))
	}

	w.groups = groupItems
	w.emitLocked(event.FeedOK)
}

func (w *Watch) viewerLanguage() string {
	profile, err := w.feed.store.Once(w.ctx, store.Ref{Path: usersRoot + "/" + w.selfID})
	if err != nil {
		w.feed.log.Debug("viewer profile fetch failed", "error", err)
		return ""
	}
	return profile.Child("language").Text()
}

// emitLocked merges both categories, sorts newest first, and hands the
// snapshot to the sink. Caller holds w.mu.
func (w *Watch) emitLocked(state event.FeedState) {
	w.generation++
	items := make([]domain.ChatItem, 0, len(w.direct)+len(w.groups))
	items = append(items, w.direct...)
	items = append(items, w.groups...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].LastMessageTime > items[j].LastMessageTime
	})
	w.consume(event.FeedRefreshed{Generation: w.generation, State: state, Items: items})
}

func (w *Watch) consume(e event.FeedRefreshed) {
	if err := w.sink.Consume(w.ctx, e); err != nil {
		w.feed.log.Warn("feed sink rejected snapshot", "generation", e.Generation, "error", err)
	}
}

// latestByPeer scans every direct room once, keeps only the message with
// the maximum timestamp, and indexes the projected triple by peer id.
// Malformed room keys and rooms not involving selfID are discarded.
func latestByPeer(rooms store.Snapshot, selfID string) map[string]domain.LastMessage {
	lastByPeer := make(map[string]domain.LastMessage)
	for _, room := range rooms.Children() {
		peer, ok := domain.PeerID(room.Key(), selfID)
		if !ok {
			continue
		}
		lastByPeer[peer] = latestOfRoom(room)
	}
	return lastByPeer
}

func latestOfRoom(room store.Snapshot) domain.LastMessage {
	var last domain.LastMessage
	for _, msg := range room.Children() {
		ts := msg.Child("timestamp").Int64()
		if ts <= last.Timestamp {
			continue
		}
		last = domain.LastMessage{
			SenderID:  msg.Child("senderId").Text(),
			Message:   msg.Child("message").Text(),
			Original:  msg.Child("messageOG").Text(),
			Timestamp: ts,
		}
	}
	return last
}

// latestByGroup finds each group's newest message along with its
// translation table, keyed by group id. Groups with no messages are absent
// from the result.
func latestByGroup(groupMessages store.Snapshot) map[string]domain.GroupLastMessageInfo {
	lastByGroup := make(map[string]domain.GroupLastMessageInfo)
	for _, group := range groupMessages.Children() {
		var info domain.GroupLastMessageInfo
		for _, msg := range group.Children() {
			ts := msg.Child("timestamp").Int64()
			if ts <= info.Timestamp {
				continue
			}
			info = domain.GroupLastMessageInfo{
				Message:      msg.Child("message").Text(),
				SenderID:     msg.Child("senderId").Text(),
				Timestamp:    ts,
				Original:     msg.Child("messageOG").Text(),
				Translations: translationsOf(msg),
			}
		}
		if info.Timestamp > 0 {
			lastByGroup[group.Key()] = info
		}
	}
	return lastByGroup
}

func translationsOf(msg store.Snapshot) map[string]string {
	translations := msg.Child("translations")
	if !translations.Exists() {
		return nil
	}
	out := make(map[string]string)
	for _, entry := range translations.Children() {
		if entry.Text() != "" {
			out[entry.Key()] = entry.Text()
		}
	}
	return out
}

func decodeUser(child store.Snapshot) (domain.User, bool) {
	var user domain.User
	if err := child.Decode(&user); err != nil {
		return domain.User{}, false
	}
	user.ID = child.Key()
	return user, true
}
