package projection

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"lingua-link/domain"
	"lingua-link/domain/event"
	"lingua-link/store"
)

// Search runs a ranked, one-shot lookup over the viewer's reachable chats.
// Matching is a case-insensitive substring test on username/email for users
// and on the group name for member groups. Results come back in three fixed
// tiers: users with prior message history, then groups, then users without
// history. There is no interleaving or scoring beyond tier membership.
func (f *Feed) Search(ctx context.Context, selfID, query string) (event.FeedRefreshed, error) {
	if selfID == "" {
		return event.FeedRefreshed{State: event.FeedUnauthenticated}, nil
	}
	needle := strings.ToLower(query)

	rooms, err := f.store.Once(ctx, store.Ref{Path: messagesRoot})
	if err != nil {
		return event.FeedRefreshed{State: event.FeedLoadFailed}, err
	}
	withHistory := historyPeers(rooms, selfID)

	users, err := f.store.Once(ctx, store.Ref{Path: usersRoot})
	if err != nil {
		return event.FeedRefreshed{State: event.FeedLoadFailed}, err
	}

	var knownUsers, unknownUsers []domain.ChatItem
	for _, child := range users.Children() {
		if child.Key() == selfID {
			continue
		}
		user, ok := decodeUser(child)
		if !ok || user.Email == "" {
			continue
		}
		if !matchesUser(user, needle) {
			continue
		}
		item := domain.DirectChatItem(user, domain.LastMessage{})
		if _, seen := withHistory[user.ID]; seen {
			knownUsers = append(knownUsers, item)
		} else {
			unknownUsers = append(unknownUsers, item)
		}
	}

	groups, err := f.store.Once(ctx, store.Ref{Path: groupsRoot})
	if err != nil {
		return event.FeedRefreshed{State: event.FeedLoadFailed}, err
	}
	matchingGroups := lo.FilterMap(groups.Children(), func(child store.Snapshot, _ int) (domain.ChatItem, bool) {
		var group domain.Group
		if err := child.Decode(&group); err != nil {
			return domain.ChatItem{}, false
		}
		if !group.IsMember(selfID) || !strings.Contains(strings.ToLower(group.Name), needle) {
			return domain.ChatItem{}, false
		}
		return domain.GroupChatItem(child.Key(), group, domain.LastMessage{}), true
	})

	items := make([]domain.ChatItem, 0, len(knownUsers)+len(matchingGroups)+len(unknownUsers))
	items = append(items, knownUsers...)
	items = append(items, matchingGroups...)
	items = append(items, unknownUsers...)
	return event.FeedRefreshed{State: event.FeedOK, Items: items}, nil
}

// historyPeers collects the peer ids of every well-formed room key that
// involves selfID. Room existence counts as history, message contents are
// not inspected.
func historyPeers(rooms store.Snapshot, selfID string) map[string]struct{} {
	peers := make(map[string]struct{})
	for _, room := range rooms.Children() {
		if peer, ok := domain.PeerID(room.Key(), selfID); ok {
			peers[peer] = struct{}{}
		}
	}
	return peers
}

func matchesUser(user domain.User, needle string) bool {
	return strings.Contains(strings.ToLower(user.Username), needle) ||
		strings.Contains(strings.ToLower(user.Email), needle)
}
