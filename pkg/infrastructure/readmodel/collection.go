package readmodel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
	"gorm.io/gorm"
)

// CollectionRecord is the GORM row backing domain.CollectionView.
type CollectionRecord struct {
	AggregateID   string    `gorm:"primaryKey;column:aggregate_id"`
	CorrelationID string    `gorm:"column:correlation_id"`
	Version       int64     `gorm:"column:version"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`

	Title       string     `gorm:"column:title;index"`
	Status      string     `gorm:"column:status;index"`
	ProductIDs  string     `gorm:"column:product_ids;type:text"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

// TableName fixes the physical table name.
func (CollectionRecord) TableName() string { return "collection_views" }

func (r CollectionRecord) toView() domain.CollectionView {
	var productIDs []string
	_ = json.Unmarshal([]byte(r.ProductIDs), &productIDs)
	return domain.CollectionView{
		AggregateID:   r.AggregateID,
		CorrelationID: r.CorrelationID,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Title:         r.Title,
		Status:        r.Status,
		ProductIDs:    productIDs,
		PublishedAt:   r.PublishedAt,
	}
}

func collectionRecordFromView(v domain.CollectionView) CollectionRecord {
	productIDs, _ := json.Marshal(v.ProductIDs)
	return CollectionRecord{
		AggregateID:   v.AggregateID,
		CorrelationID: v.CorrelationID,
		Version:       v.Version,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
		Title:         v.Title,
		Status:        v.Status,
		ProductIDs:    string(productIDs),
		PublishedAt:   v.PublishedAt,
	}
}

// CollectionViewRepository implements domain.ReadModelRepository[domain.CollectionView].
type CollectionViewRepository struct {
	db *gorm.DB
}

// NewCollectionViewRepository wraps db, auto-migrating the collection_views table.
func NewCollectionViewRepository(db *gorm.DB) (*CollectionViewRepository, error) {
	if err := db.AutoMigrate(&CollectionRecord{}); err != nil {
		return nil, domain.NewStorageError("failed to migrate collection_views table", err)
	}
	return &CollectionViewRepository{db: db}, nil
}

// WithDB returns a copy bound to a different handle (a transaction).
func (r *CollectionViewRepository) WithDB(db *gorm.DB) *CollectionViewRepository {
	return &CollectionViewRepository{db: db}
}

// Upsert replaces the row for row.AggregateID wholesale.
func (r *CollectionViewRepository) Upsert(ctx context.Context, row domain.CollectionView) error {
	record := collectionRecordFromView(row)
	if err := r.db.WithContext(ctx).Save(&record).Error; err != nil {
		return domain.NewStorageError("failed to upsert collection view", err)
	}
	return nil
}

// Get reads the current row for aggregateID.
func (r *CollectionViewRepository) Get(ctx context.Context, aggregateID string) (domain.CollectionView, error) {
	var record CollectionRecord
	err := r.db.WithContext(ctx).First(&record, "aggregate_id = ?", aggregateID).Error
	if err == gorm.ErrRecordNotFound {
		return domain.CollectionView{}, domain.NewNotFoundError(aggregateID)
	}
	if err != nil {
		return domain.CollectionView{}, domain.NewStorageError("failed to load collection view", err)
	}
	return record.toView(), nil
}

// List returns collection views matching filter, newest first.
func (r *CollectionViewRepository) List(ctx context.Context, filter domain.ReadModelFilter) ([]domain.CollectionView, error) {
	query := r.db.WithContext(ctx).Model(&CollectionRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = query.Order("created_at DESC").Offset(filter.Offset)
	if filter.Limit != domain.NoLimit && filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []CollectionRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, domain.NewStorageError("failed to list collection views", err)
	}

	views := make([]domain.CollectionView, len(records))
	for i, record := range records {
		views[i] = record.toView()
	}
	return views, nil
}
