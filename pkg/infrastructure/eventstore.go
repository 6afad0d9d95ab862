package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/slapcommerce/core/pkg/domain"
	"gorm.io/gorm"
)

// EventRecord is the persisted shape of one domain.Event, canonical
// snake_case columns per the agreed (aggregateId, version) schema.
type EventRecord struct {
	ID            string    `gorm:"primaryKey;column:id"`
	AggregateID   string    `gorm:"column:aggregate_id;uniqueIndex:idx_events_aggregate_version,priority:1"`
	Version       int64     `gorm:"column:version;uniqueIndex:idx_events_aggregate_version,priority:2"`
	EventName     string    `gorm:"column:event_name;index"`
	OccurredAt    time.Time `gorm:"column:occurred_at;index"`
	CorrelationID string    `gorm:"column:correlation_id;index"`
	UserID        string    `gorm:"column:user_id"`
	PriorState    string    `gorm:"column:prior_state;type:text"`
	NewState      string    `gorm:"column:new_state;type:text"`
	StoredAt      time.Time `gorm:"column:stored_at"`
}

// TableName fixes the physical table name regardless of GORM's pluralizer.
func (EventRecord) TableName() string { return "events" }

// eventEnvelope implements domain.Envelope.
type eventEnvelope struct {
	event    domain.Event
	eventID  string
	storedAt time.Time
}

func (e *eventEnvelope) Event() domain.Event     { return e.event }
func (e *eventEnvelope) EventID() string         { return e.eventID }
func (e *eventEnvelope) StoredAt() time.Time     { return e.storedAt }

// GormEventStore implements domain.EventStore against any GORM dialect
// (postgres in production, sqlite in tests).
type GormEventStore struct {
	db *gorm.DB
}

// NewGormEventStore wraps db, auto-migrating the events table.
func NewGormEventStore(db *gorm.DB) (*GormEventStore, error) {
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, domain.NewStorageError("failed to migrate events table", err)
	}
	return &GormEventStore{db: db}, nil
}

// DB exposes the underlying handle for the Unit-of-Work to build a scoped
// transaction around.
func (s *GormEventStore) DB() *gorm.DB { return s.db }

// WithDB returns a copy of the store bound to a different handle, used by
// the Unit-of-Work to hand repositories a transaction-scoped *gorm.DB.
func (s *GormEventStore) WithDB(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

// Save appends every event with an immediate insert. The uniqueness
// constraint on (aggregate_id, version) is enforced at the database level
// by the idx_events_aggregate_version unique index declared on EventRecord;
// a violation surfaces here as a StorageError wrapping the driver's
// constraint-violation error. It is not translated into a
// ConcurrencyConflict.
func (s *GormEventStore) Save(ctx context.Context, events []domain.Event) ([]domain.Envelope, error) {
	if len(events) == 0 {
		return []domain.Envelope{}, nil
	}

	records := make([]EventRecord, len(events))
	envelopes := make([]domain.Envelope, len(events))
	now := time.Now().UTC()

	for i, event := range events {
		payload := event.Payload()
		id := uuid.NewString()
		records[i] = EventRecord{
			ID:            id,
			AggregateID:   event.AggregateID(),
			Version:       event.Version(),
			EventName:     event.EventName(),
			OccurredAt:    event.OccurredAt(),
			CorrelationID: event.CorrelationID(),
			UserID:        event.UserID(),
			PriorState:    string(payload.PriorState),
			NewState:      string(payload.NewState),
			StoredAt:      now,
		}
		envelopes[i] = &eventEnvelope{event: event, eventID: id, storedAt: now}
	}

	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, domain.NewStorageError("failed to append events", err)
	}

	return envelopes, nil
}

// buildEventRecords prepares the records and envelopes for a batch of events
// without touching the database, so a staging caller can hand back
// envelopes to the aggregate before the physical commit runs.
func buildEventRecords(events []domain.Event) ([]EventRecord, []domain.Envelope) {
	records := make([]EventRecord, len(events))
	envelopes := make([]domain.Envelope, len(events))
	now := time.Now().UTC()
	for i, event := range events {
		payload := event.Payload()
		id := uuid.NewString()
		records[i] = EventRecord{
			ID:            id,
			AggregateID:   event.AggregateID(),
			Version:       event.Version(),
			EventName:     event.EventName(),
			OccurredAt:    event.OccurredAt(),
			CorrelationID: event.CorrelationID(),
			UserID:        event.UserID(),
			PriorState:    string(payload.PriorState),
			NewState:      string(payload.NewState),
			StoredAt:      now,
		}
		envelopes[i] = &eventEnvelope{event: event, eventID: id, storedAt: now}
	}
	return records, envelopes
}

// SaveRecords inserts pre-built records, used by the staging Unit-of-Work
// to commit records whose envelopes were already handed back synchronously.
func (s *GormEventStore) SaveRecords(ctx context.Context, records []EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return domain.NewStorageError("failed to append events", err)
	}
	return nil
}

// Load retrieves every event for aggregateID, ordered by version.
func (s *GormEventStore) Load(ctx context.Context, aggregateID string) ([]domain.Envelope, error) {
	return s.LoadFromVersion(ctx, aggregateID, 0)
}

// LoadFromVersion retrieves events for aggregateID with version >=
// fromVersion, ordered by version.
func (s *GormEventStore) LoadFromVersion(ctx context.Context, aggregateID string, fromVersion int64) ([]domain.Envelope, error) {
	var records []EventRecord
	err := s.db.WithContext(ctx).
		Where("aggregate_id = ? AND version >= ?", aggregateID, fromVersion).
		Order("version ASC").
		Find(&records).Error
	if err != nil {
		return nil, domain.NewStorageError("failed to load events for aggregate "+aggregateID, err)
	}

	envelopes := make([]domain.Envelope, len(records))
	for i, record := range records {
		event := &domain.DomainEvent{
			Name:          record.EventName,
			AggID:         record.AggregateID,
			Ver:           record.Version,
			OccurredTime:  record.OccurredAt,
			CorrID:        record.CorrelationID,
			UID:           record.UserID,
			PayloadFields: domain.EventPayload{
				PriorState: json.RawMessage(record.PriorState),
				NewState:   json.RawMessage(record.NewState),
			},
		}
		envelopes[i] = &eventEnvelope{event: event, eventID: record.ID, storedAt: record.StoredAt}
	}
	return envelopes, nil
}
