// Package domain contains the core concepts of the contact feed and
// connection signaling: chat items, connection requests, and the record
// shapes read from the remote tree store.
package domain

import (
	"sort"
	"strings"
)

// RoomKeySeparator joins the two participant ids of a direct room key.
const RoomKeySeparator = "_"

// SessionID builds the canonical session id for two participants: both ids
// sorted lexicographically and joined. The result is independent of who
// initiated the session, so both sides derive the same room name.
func SessionID(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return ids[0] + RoomKeySeparator + ids[1]
}

// SplitRoomKey splits a composite room key into its two participant ids.
// Keys that do not split into exactly two parts are malformed and reported
// with ok=false.
func SplitRoomKey(key string) (a, b string, ok bool) {
	parts := strings.Split(key, RoomKeySeparator)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// PeerID resolves the other participant of a room key relative to selfID.
// Returns ok=false for malformed keys and for rooms that do not involve
// selfID at all.
func PeerID(key, selfID string) (string, bool) {
	a, b, ok := SplitRoomKey(key)
	if !ok {
		return "", false
	}
	switch selfID {
	case a:
		return b, true
	case b:
		return a, true
	default:
		return "", false
	}
}
