package sink

import (
	"context"
	"errors"

	"lingua-link/contract"
	"lingua-link/domain/event"
)

// Fanout delivers each event to every wrapped sink. A failing sink does
// not stop delivery to the others; errors are joined.
type Fanout []contract.EventSink

func NewFanout(sinks ...contract.EventSink) Fanout {
	return Fanout(sinks)
}

func (f Fanout) Consume(ctx context.Context, e event.DomainEvent) error {
	var errs []error
	for _, s := range f {
		if err := s.Consume(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
