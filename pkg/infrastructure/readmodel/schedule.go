package readmodel

import (
	"context"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
	"gorm.io/gorm"
)

// ScheduleRecord is the GORM row backing domain.ScheduleView.
type ScheduleRecord struct {
	AggregateID   string    `gorm:"primaryKey;column:aggregate_id"`
	CorrelationID string    `gorm:"column:correlation_id"`
	Version       int64     `gorm:"column:version"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`

	SubjectID string     `gorm:"column:subject_id;index"`
	Kind      string     `gorm:"column:kind"`
	Status    string     `gorm:"column:status;index"`
	StartAt   time.Time  `gorm:"column:start_at;index"`
	EndAt     *time.Time `gorm:"column:end_at"`
}

// TableName fixes the physical table name.
func (ScheduleRecord) TableName() string { return "schedule_views" }

func (r ScheduleRecord) toView() domain.ScheduleView {
	return domain.ScheduleView{
		AggregateID:   r.AggregateID,
		CorrelationID: r.CorrelationID,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		SubjectID:     r.SubjectID,
		Kind:          r.Kind,
		Status:        r.Status,
		StartAt:       r.StartAt,
		EndAt:         r.EndAt,
	}
}

func scheduleRecordFromView(v domain.ScheduleView) ScheduleRecord {
	return ScheduleRecord{
		AggregateID:   v.AggregateID,
		CorrelationID: v.CorrelationID,
		Version:       v.Version,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
		SubjectID:     v.SubjectID,
		Kind:          v.Kind,
		Status:        v.Status,
		StartAt:       v.StartAt,
		EndAt:         v.EndAt,
	}
}

// ScheduleViewRepository implements domain.ReadModelRepository[domain.ScheduleView].
type ScheduleViewRepository struct {
	db *gorm.DB
}

// NewScheduleViewRepository wraps db, auto-migrating the schedule_views table.
func NewScheduleViewRepository(db *gorm.DB) (*ScheduleViewRepository, error) {
	if err := db.AutoMigrate(&ScheduleRecord{}); err != nil {
		return nil, domain.NewStorageError("failed to migrate schedule_views table", err)
	}
	return &ScheduleViewRepository{db: db}, nil
}

// WithDB returns a copy bound to a different handle (a transaction).
func (r *ScheduleViewRepository) WithDB(db *gorm.DB) *ScheduleViewRepository {
	return &ScheduleViewRepository{db: db}
}

// Upsert replaces the row for row.AggregateID wholesale.
func (r *ScheduleViewRepository) Upsert(ctx context.Context, row domain.ScheduleView) error {
	record := scheduleRecordFromView(row)
	if err := r.db.WithContext(ctx).Save(&record).Error; err != nil {
		return domain.NewStorageError("failed to upsert schedule view", err)
	}
	return nil
}

// Get reads the current row for aggregateID.
func (r *ScheduleViewRepository) Get(ctx context.Context, aggregateID string) (domain.ScheduleView, error) {
	var record ScheduleRecord
	err := r.db.WithContext(ctx).First(&record, "aggregate_id = ?", aggregateID).Error
	if err == gorm.ErrRecordNotFound {
		return domain.ScheduleView{}, domain.NewNotFoundError(aggregateID)
	}
	if err != nil {
		return domain.ScheduleView{}, domain.NewStorageError("failed to load schedule view", err)
	}
	return record.toView(), nil
}

// List returns schedule views matching filter, soonest start first. A
// non-empty Status restricts the result to that one status.
func (r *ScheduleViewRepository) List(ctx context.Context, filter domain.ReadModelFilter) ([]domain.ScheduleView, error) {
	query := r.db.WithContext(ctx).Model(&ScheduleRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = query.Order("start_at ASC").Offset(filter.Offset)
	if filter.Limit != domain.NoLimit && filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []ScheduleRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, domain.NewStorageError("failed to list schedule views", err)
	}

	views := make([]domain.ScheduleView, len(records))
	for i, record := range records {
		views[i] = record.toView()
	}
	return views, nil
}
