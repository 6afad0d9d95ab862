package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/slapcommerce/core/pkg/domain"
)

// projector writes one event's effect into its read model, using the
// repositories bundle handed in by the enclosing Unit-of-Work so the write
// stages into the same transaction as the event/snapshot it projects.
type projector func(ctx context.Context, repos domain.Repositories, payload domain.EventPayload) error

// ExhaustiveProjectionRouter dispatches every committed envelope to its
// registered projector, grounded on the teacher's EventDispatcher
// Subscribe/Dispatch registration idiom but run synchronously inside the
// Unit-of-Work instead of as async pub/sub: the read model must land in the
// same physical commit as the event that produced it (spec's read-your-write
// guarantee). An event name with no registered projector is a fatal
// invariant violation — the router must be exhaustive over every event the
// aggregates can emit.
type ExhaustiveProjectionRouter struct {
	projectors map[string]projector
}

// NewProjectionRouter registers a projector for every event name the
// commerce aggregates emit. Adding a new aggregate mutation without adding
// its projector here is a build-time oversight caught at first dispatch.
func NewProjectionRouter() *ExhaustiveProjectionRouter {
	r := &ExhaustiveProjectionRouter{projectors: make(map[string]projector)}

	r.register("variant.created", projectVariant)
	r.register("variant.details_updated", projectVariant)
	r.register("variant.price_updated", projectVariant)
	r.register("variant.inventory_adjusted", projectVariant)
	r.register("variant.images_updated", projectVariant)
	r.register("variant.digital_asset_attached", projectVariant)
	r.register("variant.digital_asset_detached", projectVariant)
	r.register("variant.published", projectVariant)
	r.register("variant.archived", projectVariant)

	r.register("product.created", projectProduct)
	r.register("product.details_updated", projectProduct)
	r.register("product.variant_added", projectProduct)
	r.register("product.variant_removed", projectProduct)
	r.register("product.published", projectProduct)
	r.register("product.archived", projectProduct)

	r.register("collection.created", projectCollection)
	r.register("collection.title_updated", projectCollection)
	r.register("collection.product_added", projectCollection)
	r.register("collection.product_removed", projectCollection)
	r.register("collection.reordered", projectCollection)
	r.register("collection.published", projectCollection)
	r.register("collection.archived", projectCollection)

	r.register("schedule.created", projectSchedule)
	r.register("schedule.activated", projectSchedule)
	r.register("schedule.completed", projectSchedule)
	r.register("schedule.cancelled", projectSchedule)

	// sku_registry has no query-side read model (spec §3): reservations are
	// an internal write-path concern only, so its events are acknowledged
	// but project nothing.
	r.register("sku_registry.created", projectNothing)
	r.register("sku_registry.reserved", projectNothing)
	r.register("sku_registry.released", projectNothing)

	return r
}

func (r *ExhaustiveProjectionRouter) register(eventName string, p projector) {
	r.projectors[eventName] = p
}

// Project dispatches every envelope to its projector. An unregistered event
// name panics: per spec §4.5/§8 property 7, the matcher must be exhaustive
// and dispatching an unknown event name is a runtime fatal, not a recoverable
// error — it means a new mutation was added without updating this router.
func (r *ExhaustiveProjectionRouter) Project(ctx context.Context, repos domain.Repositories, envelopes []domain.Envelope) error {
	for _, envelope := range envelopes {
		event := envelope.Event()
		p, ok := r.projectors[event.EventName()]
		if !ok {
			panic("projection router: no projector registered for event \"" + event.EventName() + "\"")
		}
		if err := p(ctx, repos, event.Payload()); err != nil {
			return err
		}
	}
	return nil
}

func projectNothing(ctx context.Context, repos domain.Repositories, payload domain.EventPayload) error {
	return nil
}

// projectVariant upserts the variant_views row from the event's newState,
// tie-breaking on aggregate_id alone: writes within one process are
// serialised by the batcher, so there is no concurrent-write ordering
// problem to resolve with the version column.
func projectVariant(ctx context.Context, repos domain.Repositories, payload domain.EventPayload) error {
	var view domain.VariantView
	if err := json.Unmarshal(payload.NewState, &view); err != nil {
		return domain.NewStorageError("failed to unmarshal variant new state for projection", err)
	}
	return repos.VariantViews().Upsert(ctx, view)
}

func projectProduct(ctx context.Context, repos domain.Repositories, payload domain.EventPayload) error {
	var view domain.ProductView
	if err := json.Unmarshal(payload.NewState, &view); err != nil {
		return domain.NewStorageError("failed to unmarshal product new state for projection", err)
	}
	return repos.ProductViews().Upsert(ctx, view)
}

func projectCollection(ctx context.Context, repos domain.Repositories, payload domain.EventPayload) error {
	var view domain.CollectionView
	if err := json.Unmarshal(payload.NewState, &view); err != nil {
		return domain.NewStorageError("failed to unmarshal collection new state for projection", err)
	}
	return repos.CollectionViews().Upsert(ctx, view)
}

func projectSchedule(ctx context.Context, repos domain.Repositories, payload domain.EventPayload) error {
	var view domain.ScheduleView
	if err := json.Unmarshal(payload.NewState, &view); err != nil {
		return domain.NewStorageError("failed to unmarshal schedule new state for projection", err)
	}
	return repos.ScheduleViews().Upsert(ctx, view)
}
