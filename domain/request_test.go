package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConnectionRequest_ExpiryFixedAtCreation(t *testing.T) {
	req := require.New(t)
	now := time.UnixMilli(1_700_000_000_000)

	request := NewConnectionRequest("r1", User{ID: "bob"}, "alice", now)

	req.Equal(StatusPending, request.Status)
	req.Equal(now.UnixMilli(), request.Timestamp)
	req.Equal(now.UnixMilli()+300_000, request.ExpiresAt)
	req.Equal("alice_bob", request.SessionID)
}

func TestConnectionRequest_IsPending(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	request := NewConnectionRequest("r1", User{ID: "bob"}, "alice", created)

	tests := []struct {
		description string
		status      RequestStatus
		now         time.Time
		want        bool
	}{
		{"Pending before expiry", StatusPending, created.Add(time.Minute), true},
		{"Pending exactly at expiry", StatusPending, created.Add(5 * time.Minute), true},
		{"Pending after expiry", StatusPending, created.Add(5*time.Minute + time.Millisecond), false},
		{"Accepted is not pending", StatusAccepted, created, false},
		{"Rejected is not pending", StatusRejected, created, false},
		{"Cancelled is not pending", StatusCancelled, created, false},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			r := request
			r.Status = tt.status
			require.Equal(t, tt.want, r.IsPending(tt.now))
			// The predicate never mutates the record.
			require.Equal(t, tt.status, r.Status)
			require.Equal(t, request.ExpiresAt, r.ExpiresAt)
		})
	}
}

func TestConnectionRequest_IsTerminal(t *testing.T) {
	req := require.New(t)
	r := ConnectionRequest{Status: StatusPending}
	req.False(r.IsTerminal())
	for _, status := range []RequestStatus{StatusAccepted, StatusRejected, StatusCancelled} {
		r.Status = status
		req.True(r.IsTerminal())
	}
}

func TestGroupLastMessageInfo_Resolve(t *testing.T) {
	info := GroupLastMessageInfo{
		Message:  "bonjour",
		SenderID: "marie",
		Translations: map[string]string{
			"en": "hello",
		},
	}

	require.Equal(t, "hello", info.Resolve("viewer", "en"))
	require.Equal(t, "bonjour", info.Resolve("viewer", "de"))
	// The sender always sees the message as stored.
	require.Equal(t, "bonjour", info.Resolve("marie", "en"))
}
