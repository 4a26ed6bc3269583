package domain

import "time"

// RequestStatus is the lifecycle state of a connection request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusAccepted  RequestStatus = "ACCEPTED"
	StatusRejected  RequestStatus = "REJECTED"
	StatusCancelled RequestStatus = "CANCELLED"
)

// RequestTTL is how long a pending request stays answerable. Expiry is a
// read-time predicate, never a stored transition.
const RequestTTL = 5 * time.Minute

// ConnectionRequest is a signaling record for establishing an ephemeral
// one-to-one session. The sender's profile fields are snapshotted at
// creation time so the recipient can render the request without another
// lookup.
type ConnectionRequest struct {
	RequestID               string        `json:"requestId" validate:"required"`
	FromUserID              string        `json:"fromUserId" validate:"required"`
	ToUserID                string        `json:"toUserId" validate:"required"`
	SessionID               string        `json:"sessionId" validate:"required"`
	Status                  RequestStatus `json:"status" validate:"required"`
	Timestamp               int64         `json:"timestamp" validate:"required"`
	ExpiresAt               int64         `json:"expiresAt" validate:"required"`
	FromUserName            string        `json:"fromUserName"`
	FromUserLanguage        string        `json:"fromUserLanguage"`
	FromUserProfileImageURL string        `json:"fromUserProfileImageUrl"`
}

// NewConnectionRequest creates a PENDING request from sender to recipient.
// ExpiresAt is fixed at creation and never recomputed.
func NewConnectionRequest(requestID string, from User, toUserID string, now time.Time) ConnectionRequest {
	ts := now.UnixMilli()
	return ConnectionRequest{
		RequestID:               requestID,
		FromUserID:              from.ID,
		ToUserID:                toUserID,
		SessionID:               SessionID(from.ID, toUserID),
		Status:                  StatusPending,
		Timestamp:               ts,
		ExpiresAt:               ts + RequestTTL.Milliseconds(),
		FromUserName:            from.Username,
		FromUserLanguage:        from.Language,
		FromUserProfileImageURL: from.ProfileImageURL,
	}
}

// IsExpired reports whether the request's answer window has passed.
func (r ConnectionRequest) IsExpired(now time.Time) bool {
	return now.UnixMilli() > r.ExpiresAt
}

// IsPending reports whether the request can still be answered: status is
// PENDING and the expiry window has not passed. Pure with respect to r.
func (r ConnectionRequest) IsPending(now time.Time) bool {
	return r.Status == StatusPending && !r.IsExpired(now)
}

// IsTerminal reports whether the request reached a final status.
func (r ConnectionRequest) IsTerminal() bool {
	switch r.Status {
	case StatusAccepted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}
