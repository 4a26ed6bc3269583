package domain

// ChatItem is a single row of the merged conversation list. It can represent
// either a direct chat (peer user) or a group chat. Items are rebuilt from
// scratch on every aggregation pass and never mutated in place.
type ChatItem struct {
	ID                  string
	DisplayName         string
	ImageRef            string
	LastMessage         string
	LastMessageOriginal string
	LastMessageSenderID string
	LastMessageTime     int64 // epoch millis
	IsGroup             bool
}

// NoMessagesYet is the synthetic last message shown for a group that has no
// messages. Such items sort by the group's creation time.
const NoMessagesYet = "No messages yet"

// DirectChatItem builds a conversation row for a peer user and the projected
// last message of the shared room.
func DirectChatItem(user User, last LastMessage) ChatItem {
	return ChatItem{
		ID:                  user.ID,
		DisplayName:         user.Username,
		ImageRef:            user.ProfileImageURL,
		LastMessage:         last.Message,
		LastMessageOriginal: last.Original,
		LastMessageSenderID: last.SenderID,
		LastMessageTime:     last.Timestamp,
		IsGroup:             false,
	}
}

// GroupChatItem builds a conversation row for a group. The display text is
// already resolved (translated or original) by the aggregation pass.
func GroupChatItem(groupID string, group Group, last LastMessage) ChatItem {
	return ChatItem{
		ID:                  groupID,
		DisplayName:         group.Name,
		ImageRef:            group.GroupImageURL,
		LastMessage:         last.Message,
		LastMessageOriginal: last.Original,
		LastMessageSenderID: last.SenderID,
		LastMessageTime:     last.Timestamp,
		IsGroup:             true,
	}
}

// LastMessage is the projected last-message triple of a room, plus its
// timestamp. Disposable: computed during aggregation, discarded after merge.
type LastMessage struct {
	SenderID  string
	Message   string
	Original  string
	Timestamp int64
}

// GroupLastMessageInfo carries the latest message of a group together with
// its translations, so the aggregation pass can substitute the viewer's
// language before building the ChatItem. Internal to aggregation.
type GroupLastMessageInfo struct {
	Message      string
	SenderID     string
	Timestamp    int64
	Original     string
	Translations map[string]string
}

// Resolve picks the text displayed to the viewer: the translation for the
// viewer's language when one exists and the viewer is not the sender,
// otherwise the message as stored.
func (g GroupLastMessageInfo) Resolve(viewerID, viewerLanguage string) string {
	if g.SenderID == viewerID {
		return g.Message
	}
	if translated, ok := g.Translations[viewerLanguage]; ok {
		return translated
	}
	return g.Message
}
