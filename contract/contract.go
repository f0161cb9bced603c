//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"batepapo-uol-api/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

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

// EvictFunc is called once per evicted participant while the eviction still
// holds the registry.
type EvictFunc func(name string)

// IRegistry tracks the participants currently present and their liveness.
type IRegistry interface {
	Register(ctx context.Context, name string) (domain.Participant, error)
	Touch(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]domain.Participant, error)
	EvictStaleOlderThan(ctx context.Context, d time.Duration, onEvict EvictFunc) ([]string, error)
}

// IEventReader is the read side of the message log.
type IEventReader interface {
	ReadAll(ctx context.Context) ([]domain.Event, error)
}

// IMessageLog is the append-only ordered store of chat events.
type IMessageLog interface {
	IEventReader
	Append(ctx context.Context, e domain.Event) (domain.Event, error)
}

type IVisibilityFilter interface {
	MessagesVisibleTo(ctx context.Context, requester string, limit int) ([]domain.Event, error)
}
