package domain

import (
	"encoding/json"
	"sync"
	"time"
)

// Status values shared by the draft/active/archived aggregates (Variant,
// Product, Collection). Schedule uses its own state set defined in
// schedule.go.
const (
	StatusDraft    = "draft"
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Entity provides the shared event-sourced aggregate lifecycle: identity,
// correlation, version, timestamps, status, and the uncommitted-events
// buffer. Concrete aggregates embed Entity and call recordEvent from their
// business methods.
//
// Usage:
//
//	type Variant struct {
//	    Entity
//	    SKU string
//	}
//
//	func (v *Variant) Publish() error {
//	    if v.SKU == "" {
//	        return NewDomainRuleViolation("variant", "cannot publish a variant without a SKU")
//	    }
//	    prior := v.toState()
//	    if err := v.transitionStatus(StatusActive); err != nil {
//	        return err
//	    }
//	    return v.recordEvent("variant.published", prior, func() interface{} { return v.toState() })
//	}
type Entity struct {
	id            string
	correlationID string
	userID        string
	version       int64
	status        string
	createdAt     time.Time
	updatedAt     time.Time
	publishedAt   *time.Time
	events        []Event
	mu            sync.RWMutex
}

// NewEntity starts a brand-new aggregate at version -1, status draft, so
// that the first recordEvent call (the "created" event every constructor
// emits) lands on version 0 per spec.md §8 invariant 1.
func NewEntity(id, correlationID string) Entity {
	now := time.Now().UTC()
	return Entity{
		id:            id,
		correlationID: correlationID,
		version:       -1,
		status:        StatusDraft,
		createdAt:     now,
		updatedAt:     now,
	}
}

// ID returns the aggregate's unique identifier.
func (e *Entity) ID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.id
}

// CorrelationID returns the correlation id threaded through every event the
// aggregate emits.
func (e *Entity) CorrelationID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.correlationID
}

// Version returns the current version. Version is strictly increasing and
// advances by exactly one per committed mutation.
func (e *Entity) Version() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Status returns the current lifecycle status.
func (e *Entity) Status() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// CreatedAt is immutable after construction.
func (e *Entity) CreatedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.createdAt
}

// UpdatedAt advances on every mutation.
func (e *Entity) UpdatedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.updatedAt
}

// PublishedAt is set the first time Status transitions to active and is
// never cleared afterwards.
func (e *Entity) PublishedAt() *time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.publishedAt
}

// UncommittedEvents returns a copy of the events generated since the last
// MarkEventsAsCommitted call.
func (e *Entity) UncommittedEvents() []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// SetUserID stamps the user id that every event recorded after this call
// carries. Command services call this once after loading an aggregate,
// threading the caller identity from the command envelope.
func (e *Entity) SetUserID(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userID = userID
}

// HasUncommittedEvents reports whether the aggregate has pending events.
func (e *Entity) HasUncommittedEvents() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.events) > 0
}

// MarkEventsAsCommitted clears the uncommitted-events buffer after the
// Unit-of-Work has durably persisted them.
func (e *Entity) MarkEventsAsCommitted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = e.events[:0]
}

// transitionStatus applies a restricted status transition:
// draft -> {active, archived}, active -> {archived}, archived is terminal.
func (e *Entity) transitionStatus(next string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status {
	case StatusDraft:
		if next != StatusActive && next != StatusArchived {
			return NewDomainRuleViolation(e.id, "invalid status transition from draft to "+next)
		}
	case StatusActive:
		if next != StatusArchived {
			return NewDomainRuleViolation(e.id, "invalid status transition from active to "+next)
		}
	case StatusArchived:
		return NewDomainRuleViolation(e.id, "archived is a terminal status")
	}

	e.status = next
	if next == StatusActive && e.publishedAt == nil {
		now := time.Now().UTC()
		e.publishedAt = &now
	}
	return nil
}

// setStatusDirect sets status without the draft/active/archived transition
// table, for aggregates (Schedule) that define their own status machine.
func (e *Entity) setStatusDirect(status string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
}

// recordEvent applies the shared bookkeeping every mutation method performs:
// marshal the prior state, advance version, stamp updatedAt, snapshot the
// new state, and append the resulting event to the uncommitted-events
// buffer. next is taken as a closure rather than a precomputed value so it
// is evaluated after the version bump below — it must observe the
// post-mutation version, matching the event's own Version() and the
// snapshot that will be persisted alongside it.
func (e *Entity) recordEvent(eventName string, prior interface{}, next func() interface{}) error {
	priorJSON, err := json.Marshal(prior)
	if err != nil {
		return NewDomainRuleViolation(e.ID(), "failed to marshal prior state: "+err.Error())
	}

	e.mu.Lock()
	e.version++
	e.updatedAt = time.Now().UTC()
	e.mu.Unlock()

	nextJSON, err := json.Marshal(next())
	if err != nil {
		return NewDomainRuleViolation(e.ID(), "failed to marshal new state: "+err.Error())
	}

	e.mu.Lock()
	event := NewDomainEvent(eventName, e.id, e.version, e.correlationID, e.userID, EventPayload{
		PriorState: priorJSON,
		NewState:   nextJSON,
	})
	e.events = append(e.events, event)
	e.mu.Unlock()

	return nil
}

// loadFromSnapshotBase restores the shared fields from a persisted snapshot.
// Concrete aggregates call this from their LoadFromSnapshot constructors
// before applying their own domain-specific fields.
func (e *Entity) loadFromSnapshotBase(id, correlationID, status string, version int64, createdAt, updatedAt time.Time, publishedAt *time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.id = id
	e.correlationID = correlationID
	e.status = status
	e.version = version
	e.createdAt = createdAt
	e.updatedAt = updatedAt
	e.publishedAt = publishedAt
	e.events = nil
}
