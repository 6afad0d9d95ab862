package readmodel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
	"gorm.io/gorm"
)

// ProductRecord is the GORM row backing domain.ProductView.
type ProductRecord struct {
	AggregateID   string    `gorm:"primaryKey;column:aggregate_id"`
	CorrelationID string    `gorm:"column:correlation_id"`
	Version       int64     `gorm:"column:version"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`

	Title       string     `gorm:"column:title;index"`
	Description string     `gorm:"column:description"`
	Status      string     `gorm:"column:status;index"`
	VariantIDs  string     `gorm:"column:variant_ids;type:text"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

// TableName fixes the physical table name.
func (ProductRecord) TableName() string { return "product_views" }

func (r ProductRecord) toView() domain.ProductView {
	var variantIDs []string
	_ = json.Unmarshal([]byte(r.VariantIDs), &variantIDs)
	return domain.ProductView{
		AggregateID:   r.AggregateID,
		CorrelationID: r.CorrelationID,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Title:         r.Title,
		Description:   r.Description,
		Status:        r.Status,
		VariantIDs:    variantIDs,
		PublishedAt:   r.PublishedAt,
	}
}

func productRecordFromView(v domain.ProductView) ProductRecord {
	variantIDs, _ := json.Marshal(v.VariantIDs)
	return ProductRecord{
		AggregateID:   v.AggregateID,
		CorrelationID: v.CorrelationID,
		Version:       v.Version,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
		Title:         v.Title,
		Description:   v.Description,
		Status:        v.Status,
		VariantIDs:    string(variantIDs),
		PublishedAt:   v.PublishedAt,
	}
}

// ProductViewRepository implements domain.ReadModelRepository[domain.ProductView].
type ProductViewRepository struct {
	db *gorm.DB
}

// NewProductViewRepository wraps db, auto-migrating the product_views table.
func NewProductViewRepository(db *gorm.DB) (*ProductViewRepository, error) {
	if err := db.AutoMigrate(&ProductRecord{}); err != nil {
		return nil, domain.NewStorageError("failed to migrate product_views table", err)
	}
	return &ProductViewRepository{db: db}, nil
}

// WithDB returns a copy bound to a different handle (a transaction).
func (r *ProductViewRepository) WithDB(db *gorm.DB) *ProductViewRepository {
	return &ProductViewRepository{db: db}
}

// Upsert replaces the row for row.AggregateID wholesale.
func (r *ProductViewRepository) Upsert(ctx context.Context, row domain.ProductView) error {
	record := productRecordFromView(row)
	if err := r.db.WithContext(ctx).Save(&record).Error; err != nil {
		return domain.NewStorageError("failed to upsert product view", err)
	}
	return nil
}

// Get reads the current row for aggregateID.
func (r *ProductViewRepository) Get(ctx context.Context, aggregateID string) (domain.ProductView, error) {
	var record ProductRecord
	err := r.db.WithContext(ctx).First(&record, "aggregate_id = ?", aggregateID).Error
	if err == gorm.ErrRecordNotFound {
		return domain.ProductView{}, domain.NewNotFoundError(aggregateID)
	}
	if err != nil {
		return domain.ProductView{}, domain.NewStorageError("failed to load product view", err)
	}
	return record.toView(), nil
}

// List returns product views matching filter, newest first.
func (r *ProductViewRepository) List(ctx context.Context, filter domain.ReadModelFilter) ([]domain.ProductView, error) {
	query := r.db.WithContext(ctx).Model(&ProductRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = query.Order("created_at DESC").Offset(filter.Offset)
	if filter.Limit != domain.NoLimit && filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []ProductRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, domain.NewStorageError("failed to list product views", err)
	}

	views := make([]domain.ProductView, len(records))
	for i, record := range records {
		views[i] = record.toView()
	}
	return views, nil
}
