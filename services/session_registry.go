package services

import "sync"

// SessionRegistry tracks the currently active peer session. Duplicate
// acceptance notifications check it before opening a second session for the
// same canonical id. Safe for concurrent use: the inbound and outbound
// listeners fire on independent dispatch goroutines.
type SessionRegistry struct {
	mu     sync.Mutex
	active string
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{}
}

// SetActive records sessionID as the open session.
func (r *SessionRegistry) SetActive(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = sessionID
}

// Clear forgets the active session, typically when its window closes.
func (r *SessionRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = ""
}

// IsActive reports whether sessionID is the currently open session.
func (r *SessionRegistry) IsActive(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sessionID != "" && r.active == sessionID
}

// Active returns the current session id, "" when none is open.
func (r *SessionRegistry) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
