// Package event defines the domain events emitted by the feed aggregator
// and the signaling service. Consumers (UI, test harnesses) receive them
// through contract.EventSink.
package event

import "lingua-link/domain"

type DomainEvent interface {
	Name() string
}

// FeedState qualifies a feed snapshot when the item list alone is not
// enough for the consumer to render something sensible.
type FeedState string

const (
	FeedOK              FeedState = "OK"
	FeedUnauthenticated FeedState = "UNAUTHENTICATED"
	FeedLoadFailed      FeedState = "LOAD_FAILED"
)

// FeedRefreshed carries a full conversation-list snapshot. Generation is
// monotonic per watch; consumers drop snapshots older than the last one
// they rendered.
type FeedRefreshed struct {
	Generation uint64
	State      FeedState
	Items      []domain.ChatItem
}

func (FeedRefreshed) Name() string { return "FeedRefreshed" }

// InboundRequest notifies that a pending connection request is addressed to
// the listener. The same request re-notifies on every collection mutation;
// deduplication is the consumer's concern.
type InboundRequest struct {
	Request domain.ConnectionRequest
}

func (InboundRequest) Name() string { return "InboundRequest" }

// SessionReady fires exactly once when a request sent by the listener is
// accepted within the handled-request window. The peer profile is already
// resolved.
type SessionReady struct {
	Request domain.ConnectionRequest
	Peer    domain.User
	PeerID  string
	Session string
}

func (SessionReady) Name() string { return "SessionReady" }

// RequestStatusChanged reports a status transition on a single watched
// request, including cancellations the inbound side must reflect.
type RequestStatusChanged struct {
	RequestID string
	Status    domain.RequestStatus
}

func (RequestStatusChanged) Name() string { return "RequestStatusChanged" }
