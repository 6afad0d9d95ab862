package domain

import (
	"encoding/json"
	"time"
)

type skuRegistryState struct {
	ID            string            `json:"id"`
	CorrelationID string            `json:"correlation_id"`
	Version       int64             `json:"version"`
	Status        string            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	PublishedAt   *time.Time        `json:"published_at,omitempty"`
	Reservations  map[string]string `json:"reservations"`
}

// SkuRegistry is the single global aggregate that makes SKU assignment
// atomic across variants: a SKU string maps to at most one variant id at a
// time. Command services load this aggregate alongside the target Variant
// inside the same Unit-of-Work so the reservation and the variant mutation
// commit together.
type SkuRegistry struct {
	Entity
	reservations map[string]string
}

// GlobalSkuRegistryID is the well-known aggregate id for the single
// registry instance; there is exactly one per deployment.
const GlobalSkuRegistryID = "sku-registry"

// NewSkuRegistry starts an empty registry. Registries are never archived;
// they move straight to active on creation.
func NewSkuRegistry(id, correlationID string) (*SkuRegistry, error) {
	r := &SkuRegistry{
		Entity:       NewEntity(id, correlationID),
		reservations: map[string]string{},
	}
	prior := r.toState()
	if err := r.recordEvent("sku_registry.created", prior, func() interface{} { return r.toState() }); err != nil {
		return nil, err
	}
	if err := r.transitionStatus(StatusActive); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SkuRegistry) toState() skuRegistryState {
	out := make(map[string]string, len(r.reservations))
	for k, v := range r.reservations {
		out[k] = v
	}
	return skuRegistryState{
		ID:            r.ID(),
		CorrelationID: r.CorrelationID(),
		Version:       r.Version(),
		Status:        r.Status(),
		CreatedAt:     r.CreatedAt(),
		UpdatedAt:     r.UpdatedAt(),
		PublishedAt:   r.PublishedAt(),
		Reservations:  out,
	}
}

// HolderOf returns the variant id currently holding sku, or "" if free.
func (r *SkuRegistry) HolderOf(sku string) string {
	return r.reservations[sku]
}

// Reserve claims sku for variantID. Fails with DomainRuleViolation if sku is
// already held by a different variant; reserving a SKU already held by the
// same variant is a no-op success.
func (r *SkuRegistry) Reserve(sku, variantID string) error {
	if holder, ok := r.reservations[sku]; ok {
		if holder == variantID {
			return nil
		}
		return NewDomainRuleViolation(r.ID(), "sku '"+sku+"' is already in use by variant '"+holder+"'")
	}
	prior := r.toState()
	r.reservations[sku] = variantID
	return r.recordEvent("sku_registry.reserved", prior, func() interface{} { return r.toState() })
}

// Release frees sku if currently held by variantID. A mismatched or absent
// holder is a no-op.
func (r *SkuRegistry) Release(sku, variantID string) error {
	if r.reservations[sku] != variantID {
		return nil
	}
	prior := r.toState()
	delete(r.reservations, sku)
	return r.recordEvent("sku_registry.released", prior, func() interface{} { return r.toState() })
}

// ToSnapshot serialises the full current state for the snapshot store.
func (r *SkuRegistry) ToSnapshot() (json.RawMessage, error) {
	return json.Marshal(r.toState())
}

// LoadSkuRegistryFromSnapshot reconstructs a SkuRegistry from a persisted
// snapshot.
func LoadSkuRegistryFromSnapshot(payload json.RawMessage) (*SkuRegistry, error) {
	var s skuRegistryState
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, NewStorageError("failed to unmarshal sku registry snapshot", err)
	}
	reservations := s.Reservations
	if reservations == nil {
		reservations = map[string]string{}
	}
	r := &SkuRegistry{reservations: reservations}
	r.loadFromSnapshotBase(s.ID, s.CorrelationID, s.Status, s.Version, s.CreatedAt, s.UpdatedAt, s.PublishedAt)
	return r, nil
}

// SkuRegistryRepository is the persistence contract for the SkuRegistry
// aggregate.
type SkuRegistryRepository = Repository[*SkuRegistry]
