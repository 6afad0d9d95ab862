package domain

import (
	"encoding/json"
	"time"
)

const maxProductsPerCollection = 1000

type collectionState struct {
	ID            string     `json:"id"`
	CorrelationID string     `json:"correlation_id"`
	Version       int64      `json:"version"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	Title         string     `json:"title"`
	ProductIDs    []string   `json:"product_ids"`
}

// Collection is an ordered, curated list of Products, e.g. a storefront
// category or a seasonal showcase.
type Collection struct {
	Entity
	title      string
	productIDs []string
}

// NewCollection starts a draft collection.
func NewCollection(id, correlationID, title string) (*Collection, error) {
	if title == "" {
		return nil, NewValidationError("title", "title is required")
	}
	c := &Collection{
		Entity: NewEntity(id, correlationID),
		title:  title,
	}
	prior := c.toState()
	if err := c.recordEvent("collection.created", prior, func() interface{} { return c.toState() }); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collection) toState() collectionState {
	return collectionState{
		ID:            c.ID(),
		CorrelationID: c.CorrelationID(),
		Version:       c.Version(),
		Status:        c.Status(),
		CreatedAt:     c.CreatedAt(),
		UpdatedAt:     c.UpdatedAt(),
		PublishedAt:   c.PublishedAt(),
		Title:         c.title,
		ProductIDs:    append([]string(nil), c.productIDs...),
	}
}

// Title returns the collection's display title.
func (c *Collection) Title() string { return c.title }

// ProductIDs returns the ordered set of member product ids.
func (c *Collection) ProductIDs() []string { return append([]string(nil), c.productIDs...) }

// UpdateTitle replaces the collection's title.
func (c *Collection) UpdateTitle(title string) error {
	if title == "" {
		return NewValidationError("title", "title is required")
	}
	prior := c.toState()
	c.title = title
	return c.recordEvent("collection.title_updated", prior, func() interface{} { return c.toState() })
}

// AddProduct appends productID to the end of the member list.
func (c *Collection) AddProduct(productID string) error {
	for _, id := range c.productIDs {
		if id == productID {
			return NewDomainRuleViolation(c.ID(), "product '"+productID+"' already belongs to this collection")
		}
	}
	if len(c.productIDs) >= maxProductsPerCollection {
		return NewDomainRuleViolation(c.ID(), "collection cannot exceed 1000 products")
	}
	prior := c.toState()
	c.productIDs = append(c.productIDs, productID)
	return c.recordEvent("collection.product_added", prior, func() interface{} { return c.toState() })
}

// RemoveProduct drops productID from the member list.
func (c *Collection) RemoveProduct(productID string) error {
	idx := -1
	for i, id := range c.productIDs {
		if id == productID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return NewDomainRuleViolation(c.ID(), "product '"+productID+"' not found in this collection")
	}
	prior := c.toState()
	c.productIDs = append(c.productIDs[:idx], c.productIDs[idx+1:]...)
	return c.recordEvent("collection.product_removed", prior, func() interface{} { return c.toState() })
}

// Reorder replaces the member order wholesale. orderedProductIDs must be a
// permutation of the current membership.
func (c *Collection) Reorder(orderedProductIDs []string) error {
	if len(orderedProductIDs) != len(c.productIDs) {
		return NewDomainRuleViolation(c.ID(), "reorder id set must match the current product count")
	}
	current := make(map[string]bool, len(c.productIDs))
	for _, id := range c.productIDs {
		current[id] = true
	}
	seen := make(map[string]bool, len(orderedProductIDs))
	for _, id := range orderedProductIDs {
		if !current[id] || seen[id] {
			return NewDomainRuleViolation(c.ID(), "reorder id set does not match current collection membership")
		}
		seen[id] = true
	}
	prior := c.toState()
	c.productIDs = append([]string(nil), orderedProductIDs...)
	return c.recordEvent("collection.reordered", prior, func() interface{} { return c.toState() })
}

// Publish moves the collection from draft to active. Requires at least one
// product.
func (c *Collection) Publish() error {
	if len(c.productIDs) == 0 {
		return NewDomainRuleViolation(c.ID(), "cannot publish a collection without at least one product")
	}
	prior := c.toState()
	if err := c.transitionStatus(StatusActive); err != nil {
		return err
	}
	return c.recordEvent("collection.published", prior, func() interface{} { return c.toState() })
}

// Archive moves the collection to the terminal archived status.
func (c *Collection) Archive() error {
	prior := c.toState()
	if err := c.transitionStatus(StatusArchived); err != nil {
		return err
	}
	return c.recordEvent("collection.archived", prior, func() interface{} { return c.toState() })
}

// ToSnapshot serialises the full current state for the snapshot store.
func (c *Collection) ToSnapshot() (json.RawMessage, error) {
	return json.Marshal(c.toState())
}

// ToView projects the current state into its query-side row shape.
func (c *Collection) ToView() CollectionView {
	return CollectionView{
		AggregateID:   c.ID(),
		CorrelationID: c.CorrelationID(),
		Version:       c.Version(),
		CreatedAt:     c.CreatedAt(),
		UpdatedAt:     c.UpdatedAt(),
		Title:         c.title,
		Status:        c.Status(),
		ProductIDs:    append([]string(nil), c.productIDs...),
		PublishedAt:   c.PublishedAt(),
	}
}

// LoadCollectionFromSnapshot reconstructs a Collection from a persisted
// snapshot.
func LoadCollectionFromSnapshot(payload json.RawMessage) (*Collection, error) {
	var s collectionState
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, NewStorageError("failed to unmarshal collection snapshot", err)
	}
	c := &Collection{
		title:      s.Title,
		productIDs: append([]string(nil), s.ProductIDs...),
	}
	c.loadFromSnapshotBase(s.ID, s.CorrelationID, s.Status, s.Version, s.CreatedAt, s.UpdatedAt, s.PublishedAt)
	return c, nil
}

// CollectionRepository is the persistence contract for Collection
// aggregates.
type CollectionRepository = Repository[*Collection]
