package domain

import (
	"encoding/json"
	"time"
)

const maxVariantsPerProduct = 250

type productState struct {
	ID            string     `json:"id"`
	CorrelationID string     `json:"correlation_id"`
	Version       int64      `json:"version"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	VariantIDs    []string   `json:"variant_ids"`
}

// Product groups a set of Variants under a shared title and description.
// Individual variant lifecycle (price, inventory, images) lives on Variant;
// Product tracks only the membership list and its own publish state.
type Product struct {
	Entity
	title       string
	description string
	variantIDs  []string
}

// NewProduct starts a draft product.
func NewProduct(id, correlationID, title, description string) (*Product, error) {
	if title == "" {
		return nil, NewValidationError("title", "title is required")
	}
	p := &Product{
		Entity:      NewEntity(id, correlationID),
		title:       title,
		description: description,
	}
	prior := p.toState()
	if err := p.recordEvent("product.created", prior, func() interface{} { return p.toState() }); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Product) toState() productState {
	return productState{
		ID:            p.ID(),
		CorrelationID: p.CorrelationID(),
		Version:       p.Version(),
		Status:        p.Status(),
		CreatedAt:     p.CreatedAt(),
		UpdatedAt:     p.UpdatedAt(),
		PublishedAt:   p.PublishedAt(),
		Title:         p.title,
		Description:   p.description,
		VariantIDs:    append([]string(nil), p.variantIDs...),
	}
}

// Title returns the product's display title.
func (p *Product) Title() string { return p.title }

// Description returns the product's long-form description.
func (p *Product) Description() string { return p.description }

// VariantIDs returns the ordered set of owned variant ids.
func (p *Product) VariantIDs() []string { return append([]string(nil), p.variantIDs...) }

// UpdateDetails replaces title and description.
func (p *Product) UpdateDetails(title, description string) error {
	if title == "" {
		return NewValidationError("title", "title is required")
	}
	prior := p.toState()
	p.title = title
	p.description = description
	return p.recordEvent("product.details_updated", prior, func() interface{} { return p.toState() })
}

// AddVariant records that variantID now belongs to this product.
func (p *Product) AddVariant(variantID string) error {
	for _, id := range p.variantIDs {
		if id == variantID {
			return NewDomainRuleViolation(p.ID(), "variant '"+variantID+"' already belongs to this product")
		}
	}
	if len(p.variantIDs) >= maxVariantsPerProduct {
		return NewDomainRuleViolation(p.ID(), "product cannot exceed 250 variants")
	}
	prior := p.toState()
	p.variantIDs = append(p.variantIDs, variantID)
	return p.recordEvent("product.variant_added", prior, func() interface{} { return p.toState() })
}

// RemoveVariant drops variantID from the membership list.
func (p *Product) RemoveVariant(variantID string) error {
	idx := -1
	for i, id := range p.variantIDs {
		if id == variantID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return NewDomainRuleViolation(p.ID(), "variant '"+variantID+"' not found on this product")
	}
	prior := p.toState()
	p.variantIDs = append(p.variantIDs[:idx], p.variantIDs[idx+1:]...)
	return p.recordEvent("product.variant_removed", prior, func() interface{} { return p.toState() })
}

// Publish moves the product from draft to active. Requires at least one
// variant.
func (p *Product) Publish() error {
	if len(p.variantIDs) == 0 {
		return NewDomainRuleViolation(p.ID(), "cannot publish a product without at least one variant")
	}
	prior := p.toState()
	if err := p.transitionStatus(StatusActive); err != nil {
		return err
	}
	return p.recordEvent("product.published", prior, func() interface{} { return p.toState() })
}

// Archive moves the product to the terminal archived status.
func (p *Product) Archive() error {
	prior := p.toState()
	if err := p.transitionStatus(StatusArchived); err != nil {
		return err
	}
	return p.recordEvent("product.archived", prior, func() interface{} { return p.toState() })
}

// ToSnapshot serialises the full current state for the snapshot store.
func (p *Product) ToSnapshot() (json.RawMessage, error) {
	return json.Marshal(p.toState())
}

// ToView projects the current state into its query-side row shape.
func (p *Product) ToView() ProductView {
	return ProductView{
		AggregateID:   p.ID(),
		CorrelationID: p.CorrelationID(),
		Version:       p.Version(),
		CreatedAt:     p.CreatedAt(),
		UpdatedAt:     p.UpdatedAt(),
		Title:         p.title,
		Description:   p.description,
		Status:        p.Status(),
		VariantIDs:    append([]string(nil), p.variantIDs...),
		PublishedAt:   p.PublishedAt(),
	}
}

// LoadProductFromSnapshot reconstructs a Product from a persisted snapshot.
func LoadProductFromSnapshot(payload json.RawMessage) (*Product, error) {
	var s productState
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, NewStorageError("failed to unmarshal product snapshot", err)
	}
	p := &Product{
		title:       s.Title,
		description: s.Description,
		variantIDs:  append([]string(nil), s.VariantIDs...),
	}
	p.loadFromSnapshotBase(s.ID, s.CorrelationID, s.Status, s.Version, s.CreatedAt, s.UpdatedAt, s.PublishedAt)
	return p, nil
}

// ProductRepository is the persistence contract for Product aggregates.
type ProductRepository = Repository[*Product]
