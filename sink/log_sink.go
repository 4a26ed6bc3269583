// Package sink provides ready-made event consumers: structured logging,
// the latest-feed view, and fan-out composition.
package sink

import (
	"context"
	"log/slog"

	"lingua-link/domain/event"
)

type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) LogSink {
	return LogSink{log: log}
}

func (s LogSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.FeedRefreshed:
		s.log.Info("feed refreshed",
			"generation", evt.Generation, "state", evt.State, "items", len(evt.Items))
	case event.InboundRequest:
		s.log.Info("incoming connection request",
			"from", evt.Request.FromUserName, "request", evt.Request.RequestID)
	case event.SessionReady:
		s.log.Info("session ready", "session", evt.Session, "peer", evt.Peer.Username)
	case event.RequestStatusChanged:
		s.log.Info("request status changed", "request", evt.RequestID, "status", evt.Status)
	default:
		s.log.Debug("unhandled event", "event", evt.Name())
	}
	return nil
}
