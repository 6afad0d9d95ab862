package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/slapcommerce/core/pkg/domain"
	"gorm.io/gorm"
)

// SnapshotRecord is the persisted latest-state-per-aggregate row. Replaced
// wholesale on every mutation; there is exactly one row per aggregate id.
type SnapshotRecord struct {
	AggregateID   string `gorm:"primaryKey;column:aggregate_id"`
	CorrelationID string `gorm:"column:correlation_id"`
	Version       int64  `gorm:"column:version"`
	Payload       string `gorm:"column:payload;type:text"`
}

// TableName fixes the physical table name.
func (SnapshotRecord) TableName() string { return "snapshots" }

// GormSnapshotStore implements domain.SnapshotStore.
type GormSnapshotStore struct {
	db *gorm.DB
}

// NewGormSnapshotStore wraps db, auto-migrating the snapshots table.
func NewGormSnapshotStore(db *gorm.DB) (*GormSnapshotStore, error) {
	if err := db.AutoMigrate(&SnapshotRecord{}); err != nil {
		return nil, domain.NewStorageError("failed to migrate snapshots table", err)
	}
	return &GormSnapshotStore{db: db}, nil
}

// WithDB returns a copy bound to a different handle (a transaction).
func (s *GormSnapshotStore) WithDB(db *gorm.DB) *GormSnapshotStore {
	return &GormSnapshotStore{db: db}
}

// Save replaces the current snapshot row for snapshot.AggregateID.
func (s *GormSnapshotStore) Save(ctx context.Context, snapshot domain.Snapshot) error {
	record := SnapshotRecord{
		AggregateID:   snapshot.AggregateID,
		CorrelationID: snapshot.CorrelationID,
		Version:       snapshot.Version,
		Payload:       string(snapshot.Payload),
	}
	err := s.db.WithContext(ctx).
		Save(&record).Error
	if err != nil {
		return domain.NewStorageError("failed to save snapshot for "+snapshot.AggregateID, err)
	}
	return nil
}

// Load reads the current snapshot for aggregateID.
func (s *GormSnapshotStore) Load(ctx context.Context, aggregateID string) (domain.Snapshot, error) {
	var record SnapshotRecord
	err := s.db.WithContext(ctx).First(&record, "aggregate_id = ?", aggregateID).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Snapshot{}, domain.NewNotFoundError(aggregateID)
	}
	if err != nil {
		return domain.Snapshot{}, domain.NewStorageError("failed to load snapshot for "+aggregateID, err)
	}
	return domain.Snapshot{
		AggregateID:   record.AggregateID,
		CorrelationID: record.CorrelationID,
		Version:       record.Version,
		Payload:       json.RawMessage(record.Payload),
	}, nil
}
