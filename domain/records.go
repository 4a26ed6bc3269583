package domain

// Record shapes as stored under the remote tree. Field names follow the
// tree's JSON schema, not Go convention, so decoded snapshots map one to one.

// User is a profile record under users/{userId}. Email is the identity
// field: records without one are skipped by the aggregator.
type User struct {
	ID              string `json:"userId"`
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email"`
	Language        string `json:"language"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// Group is a record under groups/{groupId}. Members maps a user id to its
// admin flag; membership is what scopes a group into a viewer's feed.
type Group struct {
	Name          string          `json:"name" validate:"required"`
	GroupImageURL string          `json:"groupImageUrl"`
	Members       map[string]bool `json:"members"`
	CreatedAt     int64           `json:"createdAt"`
	CreatedBy     string          `json:"createdBy"`
}

// IsMember reports whether userID belongs to the group.
func (g Group) IsMember(userID string) bool {
	_, ok := g.Members[userID]
	return ok
}

// Message is a direct message under messages/{roomKey}/{msgId}. MessageOG
// holds the sender's original text when Message carries a translation.
type Message struct {
	Message   string `json:"message"`
	MessageOG string `json:"messageOG"`
	SenderID  string `json:"senderId" validate:"required"`
	Timestamp int64  `json:"timestamp" validate:"required"`
}

// GroupMessage is a message under group_messages/{groupId}/{msgId}, with
// per-language translations filled in by the translation backend.
type GroupMessage struct {
	Message      string            `json:"message"`
	MessageOG    string            `json:"messageOG"`
	SenderID     string            `json:"senderId" validate:"required"`
	Timestamp    int64             `json:"timestamp" validate:"required"`
	Translations map[string]string `json:"translations"`
}
