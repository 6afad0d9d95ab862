package domain

//go:generate moq -out mocks/aggregate_root_mock.go . AggregateRoot

import (
	"context"
	"encoding/json"
)

// AggregateRoot is the contract every write-model aggregate satisfies.
// Aggregates are consistency boundaries: state changes only through
// business methods, and every mutation produces exactly one event.
type AggregateRoot interface {
	// ID returns the unique identifier of the aggregate.
	ID() string

	// CorrelationID returns the correlation id threaded through this
	// aggregate's events.
	CorrelationID() string

	// Version returns the current version, used for optimistic
	// concurrency control.
	Version() int64

	// Status returns the current lifecycle status.
	Status() string

	// UncommittedEvents returns events generated by business methods but
	// not yet persisted.
	UncommittedEvents() []Event

	// MarkEventsAsCommitted clears the uncommitted-events buffer.
	MarkEventsAsCommitted()

	// ToSnapshot serialises the full current state, including version,
	// for storage in the snapshot store.
	ToSnapshot() (json.RawMessage, error)
}

// Repository is the persistence contract for one aggregate type. Unlike a
// CRUD repository, Save never issues an UPDATE statement directly — it
// stages event/snapshot writes into the current Unit-of-Work's batch.
type Repository[T AggregateRoot] interface {
	// Save stages the aggregate's uncommitted events and refreshed
	// snapshot for commit by the enclosing Unit-of-Work. It does not mark
	// events as committed; the caller does that once the Unit-of-Work
	// reports success.
	Save(ctx context.Context, aggregate T) error

	// Load reconstructs an aggregate from its latest snapshot. Returns a
	// NotFoundError if no snapshot exists for id.
	Load(ctx context.Context, id string) (T, error)
}
