package infrastructure

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/slapcommerce/core/pkg/domain"
	"gorm.io/gorm"
)

// OutboxRecord is the persisted outbox row, canonical snake_case columns.
type OutboxRecord struct {
	ID             string    `gorm:"primaryKey;column:id"`
	AggregateID    string    `gorm:"column:aggregate_id;index"`
	EventName      string    `gorm:"column:event_name"`
	OccurredAt     time.Time `gorm:"column:occurred_at"`
	Payload        string    `gorm:"column:payload;type:text"`
	Status         string    `gorm:"column:status;index"`
	Attempts       int       `gorm:"column:attempts"`
	LastError      string    `gorm:"column:last_error"`
	NextAttemptAt  time.Time `gorm:"column:next_attempt_at;index"`
	LeaseOwner     string    `gorm:"column:lease_owner"`
	LeaseExpiresAt time.Time `gorm:"column:lease_expires_at;index"`
}

// TableName fixes the physical table name.
func (OutboxRecord) TableName() string { return "outbox" }

func recordToEntry(r OutboxRecord) domain.OutboxEntry {
	return domain.OutboxEntry{
		ID:             r.ID,
		AggregateID:    r.AggregateID,
		EventName:      r.EventName,
		OccurredAt:     r.OccurredAt,
		Payload:        []byte(r.Payload),
		Status:         r.Status,
		Attempts:       r.Attempts,
		LastError:      r.LastError,
		NextAttemptAt:  r.NextAttemptAt,
		LeaseOwner:     r.LeaseOwner,
		LeaseExpiresAt: r.LeaseExpiresAt,
	}
}

// GormOutboxStore implements domain.OutboxStore, plus the extra
// leased-polling operations the outbox processor needs. Those extra
// operations aren't part of the pure domain vocabulary (they're a
// scheduling detail of one particular delivery mechanism), so they live
// here rather than on domain.OutboxStore.
type GormOutboxStore struct {
	db *gorm.DB
}

// NewGormOutboxStore wraps db, auto-migrating the outbox and outbox_dlq tables.
func NewGormOutboxStore(db *gorm.DB) (*GormOutboxStore, error) {
	if err := db.AutoMigrate(&OutboxRecord{}, &DeadLetterRecord{}); err != nil {
		return nil, domain.NewStorageError("failed to migrate outbox table", err)
	}
	return &GormOutboxStore{db: db}, nil
}

// WithDB returns a copy bound to a different handle (a transaction).
func (s *GormOutboxStore) WithDB(db *gorm.DB) *GormOutboxStore {
	return &GormOutboxStore{db: db}
}

// buildOutboxRecord fills in defaults (id, status) without touching the
// database, so a staging caller can assign the id before the physical
// commit runs.
func buildOutboxRecord(entry domain.OutboxEntry) OutboxRecord {
	if entry.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			entry.ID = id.String()
		} else {
			entry.ID = uuid.NewString()
		}
	}
	if entry.Status == "" {
		entry.Status = domain.OutboxStatusPending
	}
	return OutboxRecord{
		ID:             entry.ID,
		AggregateID:    entry.AggregateID,
		EventName:      entry.EventName,
		OccurredAt:     entry.OccurredAt,
		Payload:        string(entry.Payload),
		Status:         entry.Status,
		Attempts:       entry.Attempts,
		LastError:      entry.LastError,
		NextAttemptAt:  entry.NextAttemptAt,
		LeaseOwner:     entry.LeaseOwner,
		LeaseExpiresAt: entry.LeaseExpiresAt,
	}
}

// Enqueue inserts a new pending outbox row.
func (s *GormOutboxStore) Enqueue(ctx context.Context, entry domain.OutboxEntry) error {
	record := buildOutboxRecord(entry)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return domain.NewStorageError("failed to enqueue outbox entry", err)
	}
	return nil
}

// InsertRecord inserts a pre-built record, used by the staging
// Unit-of-Work to commit rows whose id was already assigned synchronously.
func (s *GormOutboxStore) InsertRecord(ctx context.Context, record OutboxRecord) error {
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return domain.NewStorageError("failed to enqueue outbox entry", err)
	}
	return nil
}

// LeaseBatch atomically claims up to limit pending-and-due rows for
// owner, marking them inflight with leaseExpiresAt, and returns the
// claimed entries. Claiming is a two-step update-then-select: the UPDATE's
// WHERE clause excludes rows already claimed by a concurrent owner, so two
// processors racing on the same row never both win it.
func (s *GormOutboxStore) LeaseBatch(ctx context.Context, owner string, limit int, now time.Time, leaseDuration time.Duration) ([]domain.OutboxEntry, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&OutboxRecord{}).
		Where("status = ? AND next_attempt_at <= ?", domain.OutboxStatusPending, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, domain.NewStorageError("failed to select outbox candidates", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	leaseExpiresAt := now.Add(leaseDuration)
	res := s.db.WithContext(ctx).
		Model(&OutboxRecord{}).
		Where("id IN ? AND status = ?", ids, domain.OutboxStatusPending).
		Updates(map[string]interface{}{
			"status":           domain.OutboxStatusInflight,
			"lease_owner":      owner,
			"lease_expires_at": leaseExpiresAt,
		})
	if res.Error != nil {
		return nil, domain.NewStorageError("failed to lease outbox batch", res.Error)
	}

	var records []OutboxRecord
	if err := s.db.WithContext(ctx).Where("id IN ? AND lease_owner = ?", ids, owner).Find(&records).Error; err != nil {
		return nil, domain.NewStorageError("failed to load leased outbox batch", err)
	}

	entries := make([]domain.OutboxEntry, len(records))
	for i, r := range records {
		entries[i] = recordToEntry(r)
	}
	return entries, nil
}

// MarkDelivered settles a successfully-delivered entry: status advances to
// delivered and attempts counts the delivering try.
func (s *GormOutboxStore) MarkDelivered(ctx context.Context, id string, attempts int) error {
	err := s.db.WithContext(ctx).Model(&OutboxRecord{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": domain.OutboxStatusDelivered, "attempts": attempts}).Error
	if err != nil {
		return domain.NewStorageError("failed to mark outbox entry delivered", err)
	}
	return nil
}

// MarkFailed reverts an entry to pending with a backed-off next_attempt_at,
// or moves it to the dead-letter set if attempts has reached maxAttempts.
func (s *GormOutboxStore) MarkFailed(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time, maxAttempts int) error {
	if attempts >= maxAttempts {
		return s.moveToDeadLetter(ctx, id, attempts, lastError)
	}
	err := s.db.WithContext(ctx).Model(&OutboxRecord{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          domain.OutboxStatusPending,
			"attempts":        attempts,
			"last_error":      lastError,
			"next_attempt_at": nextAttemptAt,
		}).Error
	if err != nil {
		return domain.NewStorageError("failed to mark outbox entry failed", err)
	}
	return nil
}

// DeadLetterRecord mirrors OutboxRecord plus the time an entry exhausted
// its retry budget, per spec.md §6's outbox_dlq table.
type DeadLetterRecord struct {
	ID             string    `gorm:"primaryKey;column:id"`
	AggregateID    string    `gorm:"column:aggregate_id;index"`
	EventName      string    `gorm:"column:event_name"`
	OccurredAt     time.Time `gorm:"column:occurred_at"`
	Payload        string    `gorm:"column:payload;type:text"`
	Status         string    `gorm:"column:status"`
	Attempts       int       `gorm:"column:attempts"`
	LastError      string    `gorm:"column:last_error"`
	DeadSince      time.Time `gorm:"column:dead_since"`
}

// TableName fixes the physical table name.
func (DeadLetterRecord) TableName() string { return "outbox_dlq" }

// moveToDeadLetter copies the exhausted row into outbox_dlq and marks the
// outbox row dead in place; the outbox row is kept (not deleted) so its id
// remains the stable deduplication key callers may still look up by.
func (s *GormOutboxStore) moveToDeadLetter(ctx context.Context, id string, attempts int, lastError string) error {
	var record OutboxRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return domain.NewStorageError("failed to load outbox entry for dead-lettering", err)
	}

	dlq := DeadLetterRecord{
		ID:          record.ID,
		AggregateID: record.AggregateID,
		EventName:   record.EventName,
		OccurredAt:  record.OccurredAt,
		Payload:     record.Payload,
		Status:      domain.OutboxStatusDead,
		Attempts:    attempts,
		LastError:   lastError,
		DeadSince:   time.Now().UTC(),
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&dlq).Error; err != nil {
			return domain.NewStorageError("failed to insert dead-letter entry", err)
		}
		err := tx.Model(&OutboxRecord{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     domain.OutboxStatusDead,
				"attempts":   attempts,
				"last_error": lastError,
			}).Error
		if err != nil {
			return domain.NewStorageError("failed to mark outbox entry dead", err)
		}
		return nil
	})
}

// ListDeadLetters returns every dead-lettered entry, most recent first.
func (s *GormOutboxStore) ListDeadLetters(ctx context.Context) ([]DeadLetterRecord, error) {
	var records []DeadLetterRecord
	if err := s.db.WithContext(ctx).Order("dead_since DESC").Find(&records).Error; err != nil {
		return nil, domain.NewStorageError("failed to list dead-letter entries", err)
	}
	return records, nil
}

// ReapExpiredLeases reverts inflight rows whose lease has expired (the
// owning worker crashed mid-delivery) back to pending so another worker can
// claim them.
func (s *GormOutboxStore) ReapExpiredLeases(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&OutboxRecord{}).
		Where("status = ? AND lease_expires_at < ?", domain.OutboxStatusInflight, now).
		Updates(map[string]interface{}{"status": domain.OutboxStatusPending})
	if res.Error != nil {
		return 0, domain.NewStorageError("failed to reap expired outbox leases", res.Error)
	}
	return res.RowsAffected, nil
}
