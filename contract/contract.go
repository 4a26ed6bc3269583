//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"lingua-link/domain/event"
)

// EventSink receives domain events from the feed aggregator and the
// signaling service. Implementations must be safe for concurrent use:
// independent store subscriptions deliver with no ordering guarantee.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// SinkFunc adapts a function to an EventSink.
type SinkFunc func(ctx context.Context, e event.DomainEvent) error

func (f SinkFunc) Consume(ctx context.Context, e event.DomainEvent) error {
	return f(ctx, e)
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
}
