package application

import (
	"context"
	"encoding/json"

	"github.com/slapcommerce/core/pkg/domain"
)

// loadSnapshotChecked loads the current snapshot for id and enforces
// expectedVersion against it. Command services call this for every command
// except the aggregate's own Create, which has no prior snapshot to check
// against.
func loadSnapshotChecked(ctx context.Context, repos domain.Repositories, id string, expectedVersion int64) (domain.Snapshot, error) {
	snapshot, err := repos.Snapshots().Load(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.Version != expectedVersion {
		return domain.Snapshot{}, domain.NewConcurrencyConflict(id, expectedVersion, snapshot.Version)
	}
	return snapshot, nil
}

// persistAggregate stages agg's uncommitted events, its refreshed snapshot,
// and one outbox row per event, then marks the events committed. Read-model
// projection is not done here: it happens inside the enclosing
// Unit-of-Work's projection router once fn returns, against the same staged
// repos bundle, so command services never touch the view repositories
// directly.
func persistAggregate(ctx context.Context, repos domain.Repositories, agg domain.AggregateRoot) error {
	events := agg.UncommittedEvents()
	if len(events) == 0 {
		return nil
	}

	if _, err := repos.Events().Save(ctx, events); err != nil {
		return err
	}

	snapshotPayload, err := agg.ToSnapshot()
	if err != nil {
		return err
	}
	if err := repos.Snapshots().Save(ctx, domain.Snapshot{
		AggregateID:   agg.ID(),
		CorrelationID: agg.CorrelationID(),
		Version:       agg.Version(),
		Payload:       snapshotPayload,
	}); err != nil {
		return err
	}

	for _, event := range events {
		payload, err := json.Marshal(event.Payload())
		if err != nil {
			return domain.NewStorageError("failed to marshal outbox payload", err)
		}
		if err := repos.Outbox().Enqueue(ctx, domain.OutboxEntry{
			AggregateID: event.AggregateID(),
			EventName:   event.EventName(),
			OccurredAt:  event.OccurredAt(),
			Payload:     payload,
			Status:      domain.OutboxStatusPending,
		}); err != nil {
			return err
		}
	}

	agg.MarkEventsAsCommitted()
	return nil
}

// commandResponse builds the uniform struct{}-data success response every
// command handler returns, carrying the aggregate's id and post-mutation
// version for clients that want to chain a follow-up command.
func commandResponse(aggregateID string, version int64) Response[struct{}] {
	return Response[struct{}]{
		Data: struct{}{},
		Metadata: map[string]any{
			"aggregateId": aggregateID,
			"version":     version,
		},
	}
}
