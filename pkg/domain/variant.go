package domain

import (
	"encoding/json"
	"time"
)

// DigitalAsset is a downloadable file attached to a variant (license keys,
// manuals, software builds). Distinct from Image: assets are not rendered,
// only linked.
type DigitalAsset struct {
	AssetID  string `json:"asset_id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// variantState is the JSON shape persisted as both the snapshot payload and
// the prior/new state captured on every event.
type variantState struct {
	ID            string            `json:"id"`
	CorrelationID string            `json:"correlation_id"`
	Version       int64             `json:"version"`
	Status        string            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	PublishedAt   *time.Time        `json:"published_at,omitempty"`
	ProductID     string            `json:"product_id"`
	SKU           string            `json:"sku"`
	PriceCents    int64             `json:"price_cents"`
	Currency      string            `json:"currency"`
	Inventory     int64             `json:"inventory"`
	Options       map[string]string `json:"options"`
	Images        []Image           `json:"images"`
	DigitalAssets []DigitalAsset    `json:"digital_assets"`
}

// Variant is a purchasable SKU within a Product: price, inventory, option
// values (size, color, ...), its image gallery, and any digital assets
// attached to it.
type Variant struct {
	Entity
	productID     string
	sku           string
	priceCents    int64
	currency      string
	inventory     int64
	options       map[string]string
	images        ImageCollection
	digitalAssets []DigitalAsset
}

// NewVariant starts a draft variant for productID with its initial SKU,
// price, inventory, and option values, all captured in the single
// "variant.created" event. SKU uniqueness against other variants is the
// caller's responsibility (via SkuRegistry) before this constructor runs.
func NewVariant(id, correlationID, productID, sku string, priceCents int64, inventory int64, options map[string]string) (*Variant, error) {
	if productID == "" {
		return nil, NewValidationError("product_id", "product_id is required")
	}
	if priceCents < 0 {
		return nil, NewValidationError("price_cents", "price_cents cannot be negative")
	}
	if inventory < 0 {
		return nil, NewValidationError("inventory", "inventory cannot be negative")
	}
	v := &Variant{
		Entity:     NewEntity(id, correlationID),
		productID:  productID,
		sku:        sku,
		priceCents: priceCents,
		currency:   "USD",
		inventory:  inventory,
		options:    copyOptions(options),
	}
	prior := v.toState()
	if err := v.recordEvent("variant.created", prior, func() interface{} { return v.toState() }); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Variant) toState() variantState {
	return variantState{
		ID:            v.ID(),
		CorrelationID: v.CorrelationID(),
		Version:       v.Version(),
		Status:        v.Status(),
		CreatedAt:     v.CreatedAt(),
		UpdatedAt:     v.UpdatedAt(),
		PublishedAt:   v.PublishedAt(),
		ProductID:     v.productID,
		SKU:           v.sku,
		PriceCents:    v.priceCents,
		Currency:      v.currency,
		Inventory:     v.inventory,
		Options:       copyOptions(v.options),
		Images:        v.images.Images(),
		DigitalAssets: append([]DigitalAsset(nil), v.digitalAssets...),
	}
}

func copyOptions(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, val := range in {
		out[k] = val
	}
	return out
}

// ProductID returns the owning product's id.
func (v *Variant) ProductID() string { return v.productID }

// SKU returns the current SKU, empty until set.
func (v *Variant) SKU() string { return v.sku }

// PriceCents returns the current price in minor currency units.
func (v *Variant) PriceCents() int64 { return v.priceCents }

// Inventory returns the current on-hand count.
func (v *Variant) Inventory() int64 { return v.inventory }

// Options returns a copy of the current option map.
func (v *Variant) Options() map[string]string { return copyOptions(v.options) }

// Images returns the current image gallery.
func (v *Variant) Images() ImageCollection { return v.images }

// UpdateDetails sets SKU, price, inventory and option values in one
// mutation. SKU uniqueness is enforced by the caller via SkuRegistry before
// this method runs.
func (v *Variant) UpdateDetails(sku string, priceCents int64, currency string, inventory int64, options map[string]string) error {
	if sku == "" {
		return NewValidationError("sku", "sku is required")
	}
	if priceCents < 0 {
		return NewValidationError("price_cents", "price_cents cannot be negative")
	}
	if inventory < 0 {
		return NewValidationError("inventory", "inventory cannot be negative")
	}
	prior := v.toState()
	v.sku = sku
	v.priceCents = priceCents
	if currency != "" {
		v.currency = currency
	}
	v.inventory = inventory
	v.options = copyOptions(options)
	return v.recordEvent("variant.details_updated", prior, func() interface{} { return v.toState() })
}

// UpdatePrice adjusts price alone, e.g. for a sale.
func (v *Variant) UpdatePrice(priceCents int64) error {
	if priceCents < 0 {
		return NewValidationError("price_cents", "price_cents cannot be negative")
	}
	prior := v.toState()
	v.priceCents = priceCents
	return v.recordEvent("variant.price_updated", prior, func() interface{} { return v.toState() })
}

// AdjustInventory applies a signed delta to the on-hand count. Fails if the
// result would go negative.
func (v *Variant) AdjustInventory(delta int64) error {
	next := v.inventory + delta
	if next < 0 {
		return NewDomainRuleViolation(v.ID(), "inventory cannot go negative")
	}
	prior := v.toState()
	v.inventory = next
	return v.recordEvent("variant.inventory_adjusted", prior, func() interface{} { return v.toState() })
}

// UpdateImages replaces the image gallery wholesale, e.g. after the caller
// has composed additions/removals/reorders against the current gallery.
func (v *Variant) UpdateImages(images ImageCollection) error {
	prior := v.toState()
	v.images = images
	return v.recordEvent("variant.images_updated", prior, func() interface{} { return v.toState() })
}

// AttachDigitalAsset appends a digital asset. Asset ids must be unique
// within the variant.
func (v *Variant) AttachDigitalAsset(asset DigitalAsset) error {
	for _, existing := range v.digitalAssets {
		if existing.AssetID == asset.AssetID {
			return NewDomainRuleViolation(v.ID(), "digital asset id '"+asset.AssetID+"' already attached")
		}
	}
	prior := v.toState()
	v.digitalAssets = append(v.digitalAssets, asset)
	return v.recordEvent("variant.digital_asset_attached", prior, func() interface{} { return v.toState() })
}

// DetachDigitalAsset removes a digital asset by id.
func (v *Variant) DetachDigitalAsset(assetID string) error {
	idx := -1
	for i, existing := range v.digitalAssets {
		if existing.AssetID == assetID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return NewDomainRuleViolation(v.ID(), "digital asset id '"+assetID+"' not found")
	}
	prior := v.toState()
	v.digitalAssets = append(v.digitalAssets[:idx], v.digitalAssets[idx+1:]...)
	return v.recordEvent("variant.digital_asset_detached", prior, func() interface{} { return v.toState() })
}

// Publish moves the variant from draft to active. Requires a non-empty SKU
// and a non-negative price.
func (v *Variant) Publish() error {
	if v.sku == "" {
		return NewDomainRuleViolation(v.ID(), "cannot publish a variant without a sku")
	}
	prior := v.toState()
	if err := v.transitionStatus(StatusActive); err != nil {
		return err
	}
	return v.recordEvent("variant.published", prior, func() interface{} { return v.toState() })
}

// Archive moves the variant to the terminal archived status.
func (v *Variant) Archive() error {
	prior := v.toState()
	if err := v.transitionStatus(StatusArchived); err != nil {
		return err
	}
	return v.recordEvent("variant.archived", prior, func() interface{} { return v.toState() })
}

// ToSnapshot serialises the full current state for the snapshot store.
func (v *Variant) ToSnapshot() (json.RawMessage, error) {
	return json.Marshal(v.toState())
}

// ToView projects the current state into its query-side row shape.
func (v *Variant) ToView() VariantView {
	return VariantView{
		AggregateID:   v.ID(),
		CorrelationID: v.CorrelationID(),
		Version:       v.Version(),
		CreatedAt:     v.CreatedAt(),
		UpdatedAt:     v.UpdatedAt(),
		ProductID:     v.productID,
		SKU:           v.sku,
		Status:        v.Status(),
		PriceCents:    v.priceCents,
		Currency:      v.currency,
		Inventory:     v.inventory,
		Options:       copyOptions(v.options),
		ImageIDs:      v.images.IDs(),
		AssetCount:    len(v.digitalAssets),
		PublishedAt:   v.PublishedAt(),
	}
}

// LoadVariantFromSnapshot reconstructs a Variant from a persisted snapshot
// payload produced by ToSnapshot.
func LoadVariantFromSnapshot(payload json.RawMessage) (*Variant, error) {
	var s variantState
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, NewStorageError("failed to unmarshal variant snapshot", err)
	}
	images, err := NewImageCollection(s.Images...)
	if err != nil {
		return nil, err
	}
	v := &Variant{
		productID:     s.ProductID,
		sku:           s.SKU,
		priceCents:    s.PriceCents,
		currency:      s.Currency,
		inventory:     s.Inventory,
		options:       copyOptions(s.Options),
		images:        images,
		digitalAssets: append([]DigitalAsset(nil), s.DigitalAssets...),
	}
	v.loadFromSnapshotBase(s.ID, s.CorrelationID, s.Status, s.Version, s.CreatedAt, s.UpdatedAt, s.PublishedAt)
	return v, nil
}

// VariantRepository is the persistence contract for Variant aggregates.
type VariantRepository = Repository[*Variant]
