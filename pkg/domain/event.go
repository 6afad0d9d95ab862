// Package domain provides the core event-sourced aggregate model for the
// commerce write path: entities, events, value objects, and the repository
// and unit-of-work contracts their persistence is built against.
//
// The domain layer is kept pure with no external dependencies, following
// clean architecture principles.
package domain

//go:generate moq -out mocks/event_store_mock.go -pkg mocks . EventStore
//go:generate moq -out mocks/event_dispatcher_mock.go -pkg mocks . EventDispatcher
//go:generate moq -out mocks/event_handler_mock.go -pkg mocks . EventHandler
//go:generate moq -out mocks/event_mock.go -pkg mocks . Event
//go:generate moq -out mocks/envelope_mock.go -pkg mocks . Envelope

import (
	"context"
	"encoding/json"
	"time"
)

// EventPayload carries the full aggregate state both before and after the
// mutation that produced the event, per the spec's {priorState, newState}
// contract.
type EventPayload struct {
	PriorState json.RawMessage `json:"prior_state"`
	NewState   json.RawMessage `json:"new_state"`
}

// Event is an immutable record of a committed state change on one
// aggregate. Events are append-only and (AggregateID, Version) is unique.
type Event interface {
	// EventName identifies the event, e.g. "variant.created",
	// "variant.published".
	EventName() string

	// AggregateID returns the id of the aggregate that produced this
	// event.
	AggregateID() string

	// Version returns the aggregate version this event advanced to.
	Version() int64

	// OccurredAt returns the UTC business timestamp of the mutation.
	OccurredAt() time.Time

	// CorrelationID returns the correlation id threaded from the
	// originating command.
	CorrelationID() string

	// UserID returns the user that triggered the mutation, if known.
	UserID() string

	// Payload returns the {priorState, newState} pair.
	Payload() EventPayload
}

// DomainEvent is the concrete Event implementation used by every
// aggregate's recordEvent helper. There is no need for per-aggregate event
// types: the tagged EventName plus the generic payload carries everything a
// projector or outbox consumer needs.
type DomainEvent struct {
	Name          string       `json:"event_name"`
	AggID         string       `json:"aggregate_id"`
	Ver           int64        `json:"version"`
	OccurredTime  time.Time    `json:"occurred_at"`
	CorrID        string       `json:"correlation_id"`
	UID           string       `json:"user_id"`
	PayloadFields EventPayload `json:"payload"`
}

// NewDomainEvent constructs a DomainEvent stamped with the current UTC time.
func NewDomainEvent(eventName, aggregateID string, version int64, correlationID, userID string, payload EventPayload) *DomainEvent {
	return &DomainEvent{
		Name:          eventName,
		AggID:         aggregateID,
		Ver:           version,
		OccurredTime:  time.Now().UTC(),
		CorrID:        correlationID,
		UID:           userID,
		PayloadFields: payload,
	}
}

func (e *DomainEvent) EventName() string        { return e.Name }
func (e *DomainEvent) AggregateID() string       { return e.AggID }
func (e *DomainEvent) Version() int64            { return e.Ver }
func (e *DomainEvent) OccurredAt() time.Time     { return e.OccurredTime }
func (e *DomainEvent) CorrelationID() string     { return e.CorrID }
func (e *DomainEvent) UserID() string            { return e.UID }
func (e *DomainEvent) Payload() EventPayload     { return e.PayloadFields }

// Envelope wraps a persisted Event with storage-level metadata: a
// deduplication id distinct from the business (aggregateId, version) key,
// and the timestamp at which the event store durably wrote it.
type Envelope interface {
	Event() Event
	EventID() string
	StoredAt() time.Time
}

// EventStore provides append-only persistent storage for domain events.
// Implementations must maintain version ordering within an aggregate and
// enforce the (aggregateId, version) uniqueness constraint.
type EventStore interface {
	// Save persists a batch of events for one or more aggregates and
	// returns the envelopes assigned to them. Callers are expected to
	// invoke Save from within the current Unit-of-Work's batch, so this
	// method stages statements rather than committing them immediately.
	Save(ctx context.Context, events []Event) ([]Envelope, error)

	// Load retrieves every event for aggregateID, ordered by version.
	Load(ctx context.Context, aggregateID string) ([]Envelope, error)

	// LoadFromVersion retrieves events for aggregateID with version >=
	// fromVersion, ordered by version.
	LoadFromVersion(ctx context.Context, aggregateID string, fromVersion int64) ([]Envelope, error)
}

// EventDispatcher fans committed envelopes out to side-channel subscribers
// (metrics taps, tracing, the outbox processor's internal "delivered"
// stream). It is distinct from the projection router (§4.5), which runs
// synchronously inside the same transaction; the dispatcher is for
// best-effort, out-of-band notification only.
type EventDispatcher interface {
	Dispatch(ctx context.Context, envelopes []Envelope) error
	Subscribe(eventName string, handler EventHandler) error
	Start() error
	Close() error
}

// EventHandler processes dispatched envelopes.
type EventHandler interface {
	Handle(ctx context.Context, envelope Envelope) error
	EventNames() []string
}
