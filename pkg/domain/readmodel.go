package domain

import "time"

// Every read-model row mirrors its aggregate's snapshot plus the
// bookkeeping columns upserted by the projection router: aggregate id,
// correlation id, version, and the two timestamps. Rows are replaced
// wholesale on every projection, never patched field-by-field.

// VariantView is the query-side row for one Variant.
type VariantView struct {
	AggregateID   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	ProductID   string            `json:"product_id"`
	SKU         string            `json:"sku"`
	Status      string            `json:"status"`
	PriceCents  int64             `json:"price_cents"`
	Currency    string            `json:"currency"`
	Inventory   int64             `json:"inventory"`
	Options     map[string]string `json:"options"`
	ImageIDs    []string          `json:"image_ids"`
	AssetCount  int               `json:"asset_count"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
}

// ProductView is the query-side row for one Product.
type ProductView struct {
	AggregateID   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	VariantIDs  []string   `json:"variant_ids"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// CollectionView is the query-side row for one Collection.
type CollectionView struct {
	AggregateID   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Title       string     `json:"title"`
	Status      string     `json:"status"`
	ProductIDs  []string   `json:"product_ids"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ScheduleView is the query-side row for one Schedule.
type ScheduleView struct {
	AggregateID   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	SubjectID string     `json:"subject_id"`
	Kind      string      `json:"kind"`
	Status    string      `json:"status"`
	StartAt   time.Time   `json:"start_at"`
	EndAt     *time.Time  `json:"end_at,omitempty"`
}
