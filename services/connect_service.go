//go:generate go run go.uber.org/mock/mockgen -source=connect_service.go -destination=../mocks/mock_connect_service.go -package=mocks

// Package services implements the connection signaling protocol: creating,
// observing, and transitioning connection requests, with at-most-once
// session establishment under duplicate or late notifications.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lingua-link/contract"
	"lingua-link/domain"
	"lingua-link/domain/event"
	liErrors "lingua-link/errors"
	"lingua-link/store"
)

const (
	requestsRoot = "connection_requests"
	usersRoot    = "users"

	// AcceptWindow bounds how long after its creation an accepted request
	// may still open a session. Older acceptances are replayed collection
	// state (e.g. after a restart) and are logged and ignored.
	AcceptWindow = 30 * time.Second

	// handledRetention bounds the handled-request set: entries older than
	// this are evicted on insertion. Anything past the retention is far
	// outside the accept window anyway.
	handledRetention = 10 * time.Minute
)

type IConnectService interface {
	Create(ctx context.Context, fromUserID, toUserID string) (domain.ConnectionRequest, error)
	Listen(ctx context.Context, selfID string, sink contract.EventSink) (*Listener, error)
	WatchStatus(ctx context.Context, requestID string, sink contract.EventSink) (store.Subscription, error)
	Accept(ctx context.Context, requestID string) error
	Reject(ctx context.Context, requestID string) error
	Cancel(ctx context.Context, requestID string) error
}

// ConnectService drives the request lifecycle against the tree store. One
// instance owns its handled-request set and session registry; construct it
// explicitly and share it, there is no package-level singleton.
type ConnectService struct {
	store    store.TreeStore
	log      *slog.Logger
	sessions *SessionRegistry
	clock    store.Clock

	// guardTransitions makes Accept/Reject/Cancel fail on requests that
	// are no longer pending instead of writing unconditionally. Off by
	// default: the store performs no server-side validation either way.
	guardTransitions bool

	mu      sync.Mutex
	handled map[string]time.Time
}

func NewConnectService(treeStore store.TreeStore, log *slog.Logger, sessions *SessionRegistry) *ConnectService {
	return &ConnectService{
		store:    treeStore,
		log:      log,
		sessions: sessions,
		clock:    time.Now,
		handled:  make(map[string]time.Time),
	}
}

// WithClock overrides wall-clock reads, for tests.
func (s *ConnectService) WithClock(clock store.Clock) *ConnectService {
	s.clock = clock
	return s
}

// WithTransitionGuard rejects status transitions on non-pending requests.
func (s *ConnectService) WithTransitionGuard() *ConnectService {
	s.guardTransitions = true
	return s
}

// Create persists a PENDING request from fromUserID to toUserID. The
// sender's profile is snapshotted into the record so the recipient renders
// the request without another lookup.
func (s *ConnectService) Create(ctx context.Context, fromUserID, toUserID string) (domain.ConnectionRequest, error) {
	if fromUserID == "" {
		return domain.ConnectionRequest{}, liErrors.ErrNotAuthenticated
	}
	if fromUserID == toUserID {
		return domain.ConnectionRequest{}, liErrors.ErrSelfConnection
	}

	from, err := s.profile(ctx, fromUserID)
	if err != nil {
		return domain.ConnectionRequest{}, fmt.Errorf("sender profile: %w", err)
	}

	request := domain.NewConnectionRequest(uuid.NewString(), from, toUserID, s.clock())
	if err = s.store.Write(ctx, requestsRoot+"/"+request.RequestID, request); err != nil {
		return domain.ConnectionRequest{}, fmt.Errorf("persist request: %w", err)
	}
	s.log.Debug("connection request created",
		"request", request.RequestID, "session", request.SessionID)
	return request, nil
}

// Listener holds the two collection subscriptions of one listening user.
type Listener struct {
	inbound  store.Subscription
	outbound store.Subscription
}

// Close detaches both subscriptions. No event is delivered after it returns.
func (l *Listener) Close() {
	if l.inbound != nil {
		l.inbound.Unsubscribe()
	}
	if l.outbound != nil {
		l.outbound.Unsubscribe()
	}
}

// Listen establishes the two independent long-lived subscriptions of the
// signaling protocol.
//
// Inbound: every request addressed to selfID that is pending at delivery
// time produces an InboundRequest event. Repeats are not suppressed — any
// mutation of the collection re-notifies every still-pending request, and
// deduplication is the consumer's concern.
//
// Outbound-accepted: requests sent by selfID that turn ACCEPTED produce one
// SessionReady event, provided the acceptance is observed within
// AcceptWindow of the request's creation and its session is not already
// active.
func (s *ConnectService) Listen(ctx context.Context, selfID string, sink contract.EventSink) (*Listener, error) {
	if selfID == "" {
		return nil, liErrors.ErrNotAuthenticated
	}

	inbound, err := s.store.Subscribe(ctx, store.Ref{
		Path:         requestsRoot,
		OrderByChild: "toUserId",
		EqualTo:      selfID,
	}, func(snap store.Snapshot) {
		s.deliverInbound(ctx, selfID, snap, sink)
	})
	if err != nil {
		return nil, fmt.Errorf("inbound subscription: %w", err)
	}

	outbound, err := s.store.Subscribe(ctx, store.Ref{
		Path:         requestsRoot,
		OrderByChild: "fromUserId",
		EqualTo:      selfID,
	}, func(snap store.Snapshot) {
		s.deliverOutbound(ctx, selfID, snap, sink)
	})
	if err != nil {
		inbound.Unsubscribe()
		return nil, fmt.Errorf("outbound subscription: %w", err)
	}

	return &Listener{inbound: inbound, outbound: outbound}, nil
}

func (s *ConnectService) deliverInbound(ctx context.Context, selfID string, snap store.Snapshot, sink contract.EventSink) {
	now := s.clock()
	for _, child := range snap.Children() {
		var request domain.ConnectionRequest
		if err := child.Decode(&request); err != nil {
			s.log.Debug("skipping malformed request", "request", child.Key())
			continue
		}
		if request.ToUserID != selfID || !request.IsPending(now) {
			continue
		}
		if err := sink.Consume(ctx, event.InboundRequest{Request: request}); err != nil {
			s.log.Warn("inbound sink rejected event", "request", request.RequestID, "error", err)
		}
	}
}

func (s *ConnectService) deliverOutbound(ctx context.Context, selfID string, snap store.Snapshot, sink contract.EventSink) {
	for _, child := range snap.Children() {
		var request domain.ConnectionRequest
		if err := child.Decode(&request); err != nil {
			s.log.Debug("skipping malformed request", "request", child.Key())
			continue
		}
		if request.FromUserID != selfID || request.Status != domain.StatusAccepted {
			continue
		}
		s.handleAccepted(ctx, request, sink)
	}
}

// handleAccepted opens a session for an accepted request at most once. The
// handled set takes care of duplicate deliveries, the accept window takes
// care of replayed old acceptances, and the session registry takes care of
// a session that is already open under the same canonical id.
func (s *ConnectService) handleAccepted(ctx context.Context, request domain.ConnectionRequest, sink contract.EventSink) {
	if !s.markHandled(request) {
		return
	}
	if s.sessions.IsActive(request.SessionID) {
		s.log.Debug("session already active", "session", request.SessionID)
		return
	}

	peer, err := s.profile(ctx, request.ToUserID)
	if err != nil {
		s.log.Warn("peer profile fetch failed", "request", request.RequestID, "error", err)
		return
	}

	s.sessions.SetActive(request.SessionID)
	err = sink.Consume(ctx, event.SessionReady{
		Request: request,
		Peer:    peer,
		PeerID:  request.ToUserID,
		Session: request.SessionID,
	})
	if err != nil {
		s.log.Warn("session-ready sink rejected event", "request", request.RequestID, "error", err)
	}
	s.log.Debug("connection request accepted by recipient", "request", request.RequestID)
}

// markHandled claims the request for processing. Returns false when it was
// already claimed or when the acceptance is observed outside AcceptWindow.
func (s *ConnectService) markHandled(request domain.ConnectionRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.handled[request.RequestID]; done {
		return false
	}
	now := s.clock()
	if age := now.Sub(time.UnixMilli(request.Timestamp)); age >= AcceptWindow {
		s.log.Debug("skipping old accepted request",
			"request", request.RequestID, "age", age.Round(time.Second))
		return false
	}

	for id, at := range s.handled {
		if now.Sub(at) > handledRetention {
			delete(s.handled, id)
		}
	}
	s.handled[request.RequestID] = now
	return true
}

// WatchStatus follows a single request's status, emitting
// RequestStatusChanged on every transition. The inbound side attaches one
// after first seeing a request so a cancellation by the sender reaches the
// party still displaying it.
func (s *ConnectService) WatchStatus(ctx context.Context, requestID string, sink contract.EventSink) (store.Subscription, error) {
	var lastSeen domain.RequestStatus
	return s.store.Subscribe(ctx, store.Ref{Path: requestsRoot + "/" + requestID}, func(snap store.Snapshot) {
		if !snap.Exists() {
			return
		}
		status := domain.RequestStatus(snap.Child("status").Text())
		if status == "" || status == lastSeen {
			return
		}
		lastSeen = status
		err := sink.Consume(ctx, event.RequestStatusChanged{RequestID: requestID, Status: status})
		if err != nil {
			s.log.Warn("status sink rejected event", "request", requestID, "error", err)
		}
	})
}

// Accept marks the request ACCEPTED, which triggers the requester's
// outbound-accepted listener.
func (s *ConnectService) Accept(ctx context.Context, requestID string) error {
	return s.transition(ctx, requestID, domain.StatusAccepted)
}

// Reject marks the request REJECTED.
func (s *ConnectService) Reject(ctx context.Context, requestID string) error {
	return s.transition(ctx, requestID, domain.StatusRejected)
}

// Cancel marks the request CANCELLED. Parties displaying the pending
// request observe the transition through their status watch.
func (s *ConnectService) Cancel(ctx context.Context, requestID string) error {
	return s.transition(ctx, requestID, domain.StatusCancelled)
}

// transition writes the status field. Without the transition guard this is
// an unconditional last-writer-wins write, exactly what the remote store
// offers; with the guard it refuses to leave a terminal or expired state.
func (s *ConnectService) transition(ctx context.Context, requestID string, status domain.RequestStatus) error {
	if s.guardTransitions {
		snap, err := s.store.Once(ctx, store.Ref{Path: requestsRoot + "/" + requestID})
		if err != nil {
			return fmt.Errorf("load request %q: %w", requestID, err)
		}
		if !snap.Exists() {
			return liErrors.ErrRequestNotFound
		}
		var request domain.ConnectionRequest
		if err = snap.Decode(&request); err != nil {
			return fmt.Errorf("decode request %q: %w", requestID, err)
		}
		if !request.IsPending(s.clock()) {
			return liErrors.ErrRequestNotPending
		}
	}
	if err := s.store.Write(ctx, requestsRoot+"/"+requestID+"/status", string(status)); err != nil {
		return fmt.Errorf("transition request %q: %w", requestID, err)
	}
	s.log.Debug("connection request transitioned", "request", requestID, "status", status)
	return nil
}

// profile reads a user record, tolerating incomplete ones the way the rest
// of the app does: a missing username renders as "Unknown User".
func (s *ConnectService) profile(ctx context.Context, userID string) (domain.User, error) {
	snap, err := s.store.Once(ctx, store.Ref{Path: usersRoot + "/" + userID})
	if err != nil {
		return domain.User{}, err
	}
	username := snap.Child("username").Text()
	if username == "" {
		username = "Unknown User"
	}
	return domain.User{
		ID:              userID,
		Username:        username,
		Email:           snap.Child("email").Text(),
		Language:        snap.Child("language").Text(),
		ProfileImageURL: snap.Child("profileImageUrl").Text(),
	}, nil
}
