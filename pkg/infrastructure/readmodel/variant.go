// Package readmodel provides GORM-backed domain.ReadModelRepository
// implementations for every query-side view, grounded on the teacher's
// UserReadModelGORMRepository (GORM model + ToDomain/FromDomain
// conversion, Save via upsert, paginated List).
package readmodel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
	"gorm.io/gorm"
)

// VariantRecord is the GORM row backing domain.VariantView. Map- and
// slice-valued fields are stored JSON-encoded since they have no natural
// relational shape at this scale.
type VariantRecord struct {
	AggregateID   string    `gorm:"primaryKey;column:aggregate_id"`
	CorrelationID string    `gorm:"column:correlation_id"`
	Version       int64     `gorm:"column:version"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`

	ProductID   string     `gorm:"column:product_id;index"`
	SKU         string     `gorm:"column:sku;index"`
	Status      string     `gorm:"column:status;index"`
	PriceCents  int64      `gorm:"column:price_cents"`
	Currency    string     `gorm:"column:currency"`
	Inventory   int64      `gorm:"column:inventory"`
	Options     string     `gorm:"column:options;type:text"`
	ImageIDs    string     `gorm:"column:image_ids;type:text"`
	AssetCount  int        `gorm:"column:asset_count"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

// TableName fixes the physical table name.
func (VariantRecord) TableName() string { return "variant_views" }

func (r VariantRecord) toView() domain.VariantView {
	var options map[string]string
	_ = json.Unmarshal([]byte(r.Options), &options)
	var imageIDs []string
	_ = json.Unmarshal([]byte(r.ImageIDs), &imageIDs)

	return domain.VariantView{
		AggregateID:   r.AggregateID,
		CorrelationID: r.CorrelationID,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		ProductID:     r.ProductID,
		SKU:           r.SKU,
		Status:        r.Status,
		PriceCents:    r.PriceCents,
		Currency:      r.Currency,
		Inventory:     r.Inventory,
		Options:       options,
		ImageIDs:      imageIDs,
		AssetCount:    r.AssetCount,
		PublishedAt:   r.PublishedAt,
	}
}

func variantRecordFromView(v domain.VariantView) VariantRecord {
	options, _ := json.Marshal(v.Options)
	imageIDs, _ := json.Marshal(v.ImageIDs)
	return VariantRecord{
		AggregateID:   v.AggregateID,
		CorrelationID: v.CorrelationID,
		Version:       v.Version,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
		ProductID:     v.ProductID,
		SKU:           v.SKU,
		Status:        v.Status,
		PriceCents:    v.PriceCents,
		Currency:      v.Currency,
		Inventory:     v.Inventory,
		Options:       string(options),
		ImageIDs:      string(imageIDs),
		AssetCount:    v.AssetCount,
		PublishedAt:   v.PublishedAt,
	}
}

// VariantViewRepository implements domain.ReadModelRepository[domain.VariantView].
type VariantViewRepository struct {
	db *gorm.DB
}

// NewVariantViewRepository wraps db, auto-migrating the variant_views table.
func NewVariantViewRepository(db *gorm.DB) (*VariantViewRepository, error) {
	if err := db.AutoMigrate(&VariantRecord{}); err != nil {
		return nil, domain.NewStorageError("failed to migrate variant_views table", err)
	}
	return &VariantViewRepository{db: db}, nil
}

// WithDB returns a copy bound to a different handle (a transaction).
func (r *VariantViewRepository) WithDB(db *gorm.DB) *VariantViewRepository {
	return &VariantViewRepository{db: db}
}

// Upsert replaces the row for row.AggregateID wholesale.
func (r *VariantViewRepository) Upsert(ctx context.Context, row domain.VariantView) error {
	record := variantRecordFromView(row)
	if err := r.db.WithContext(ctx).Save(&record).Error; err != nil {
		return domain.NewStorageError("failed to upsert variant view", err)
	}
	return nil
}

// Get reads the current row for aggregateID.
func (r *VariantViewRepository) Get(ctx context.Context, aggregateID string) (domain.VariantView, error) {
	var record VariantRecord
	err := r.db.WithContext(ctx).First(&record, "aggregate_id = ?", aggregateID).Error
	if err == gorm.ErrRecordNotFound {
		return domain.VariantView{}, domain.NewNotFoundError(aggregateID)
	}
	if err != nil {
		return domain.VariantView{}, domain.NewStorageError("failed to load variant view", err)
	}
	return record.toView(), nil
}

// List returns variant views matching filter, newest first.
func (r *VariantViewRepository) List(ctx context.Context, filter domain.ReadModelFilter) ([]domain.VariantView, error) {
	query := r.db.WithContext(ctx).Model(&VariantRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = query.Order("created_at DESC").Offset(filter.Offset)
	if filter.Limit != domain.NoLimit && filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []VariantRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, domain.NewStorageError("failed to list variant views", err)
	}

	views := make([]domain.VariantView, len(records))
	for i, record := range records {
		views[i] = record.toView()
	}
	return views, nil
}
