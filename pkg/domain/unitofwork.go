package domain

//go:generate moq -out mocks/unit_of_work_mock.go -pkg mocks . UnitOfWork
//go:generate moq -out mocks/snapshot_store_mock.go -pkg mocks . SnapshotStore
//go:generate moq -out mocks/outbox_store_mock.go -pkg mocks . OutboxStore

import (
	"context"
	"encoding/json"
	"time"
)

// Snapshot is the latest-state projection of one aggregate, replaced in
// place on every mutation.
type Snapshot struct {
	AggregateID   string          `json:"aggregate_id"`
	CorrelationID string          `json:"correlation_id"`
	Version       int64           `json:"version"`
	Payload       json.RawMessage `json:"payload"`
}

// Outbox status values (closed enumeration).
const (
	OutboxStatusPending   = "pending"
	OutboxStatusInflight  = "inflight"
	OutboxStatusDelivered = "delivered"
	OutboxStatusDead      = "dead"
)

// OutboxEntry is one row of the reliable delivery queue.
type OutboxEntry struct {
	ID             string          `json:"id"`
	AggregateID    string          `json:"aggregate_id"`
	EventName      string          `json:"event_name"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Payload        json.RawMessage `json:"payload"`
	Status         string          `json:"status"`
	Attempts       int             `json:"attempts"`
	LastError      string          `json:"last_error"`
	NextAttemptAt  time.Time       `json:"next_attempt_at"`
	LeaseOwner     string          `json:"lease_owner"`
	LeaseExpiresAt time.Time       `json:"lease_expires_at"`
}

// SnapshotStore persists the latest-state projection keyed by aggregate id.
type SnapshotStore interface {
	// Save stages a snapshot replace for commit by the enclosing
	// Unit-of-Work.
	Save(ctx context.Context, snapshot Snapshot) error

	// Load reads the current committed snapshot. Returns NotFoundError
	// if none exists.
	Load(ctx context.Context, aggregateID string) (Snapshot, error)
}

// OutboxStore is the write-side of the outbox: enqueueing new entries from
// within a Unit-of-Work. The leased-polling read side used by the outbox
// processor is a separate, infrastructure-only contract (see
// pkg/infrastructure/outboxstore.go) since it is not part of the pure
// domain vocabulary.
type OutboxStore interface {
	// Enqueue stages a new outbox row for commit by the enclosing
	// Unit-of-Work.
	Enqueue(ctx context.Context, entry OutboxEntry) error
}

// ReadModelRepository is a typed upsert/read contract against one
// denormalised projection table. Writes are staged into the enclosing
// Unit-of-Work's batch; Get/List read committed state only.
type ReadModelRepository[T any] interface {
	Upsert(ctx context.Context, row T) error
	Get(ctx context.Context, aggregateID string) (T, error)
	List(ctx context.Context, filter ReadModelFilter) ([]T, error)
}

// ReadModelFilter carries the query router's filter params (§4.7). Offset
// without Limit is translated to "limit all, offset N" by using the -1
// sentinel for Limit.
type ReadModelFilter struct {
	Status string
	Limit  int
	Offset int
}

// NoLimit is the sentinel used when Offset is supplied without a Limit.
const NoLimit = -1

// Repositories bundles every repository reachable from within one
// Unit-of-Work scope. Command services take this, not individual stores, so
// every write they issue stages into the same batch.
type Repositories interface {
	Events() EventStore
	Snapshots() SnapshotStore
	Outbox() OutboxStore
	VariantViews() ReadModelRepository[VariantView]
	ProductViews() ReadModelRepository[ProductView]
	CollectionViews() ReadModelRepository[CollectionView]
	ScheduleViews() ReadModelRepository[ScheduleView]
}

// UnitOfWork is the scoped-resource contract described in §4.2: every
// statement issued through the Repositories handed to fn either all commit
// or none do. fn's staged writes are handed to the transaction batcher on
// success; on error nothing is queued. A panic in fn is not recovered; it
// propagates to the caller, and nothing is queued in that case either.
type UnitOfWork interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) (interface{}, error)) (interface{}, error)
}
