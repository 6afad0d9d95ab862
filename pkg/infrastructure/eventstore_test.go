package infrastructure

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent(eventName, aggregateID string, version int64, occurredAt time.Time) domain.Event {
	event := domain.NewDomainEvent(eventName, aggregateID, version, "corr-1", "user-1", domain.EventPayload{
		PriorState: json.RawMessage(`{}`),
		NewState:   json.RawMessage(`{"version":` + itoa(version) + `}`),
	})
	event.OccurredTime = occurredAt
	return event
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestGormEventStore_SaveAndLoad(t *testing.T) {
	db, err := NewDatabase(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	store, err := NewGormEventStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	aggregateID := "variant-123"
	now := time.Now().UTC()

	events := []domain.Event{
		newTestEvent("variant.created", aggregateID, 1, now),
		newTestEvent("variant.published", aggregateID, 2, now.Add(time.Minute)),
	}

	envelopes, err := store.Save(ctx, events)
	require.NoError(t, err)
	require.Len(t, envelopes, 2)

	for i, envelope := range envelopes {
		assert.NotEmpty(t, envelope.EventID())
		assert.Equal(t, events[i].EventName(), envelope.Event().EventName())
	}

	loaded, err := store.Load(ctx, aggregateID)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	for i, envelope := range loaded {
		event := envelope.Event()
		assert.Equal(t, aggregateID, event.AggregateID())
		assert.Equal(t, int64(i+1), event.Version())
		assert.Equal(t, "corr-1", event.CorrelationID())
		assert.Equal(t, "user-1", event.UserID())
	}

	fromV2, err := store.LoadFromVersion(ctx, aggregateID, 2)
	require.NoError(t, err)
	require.Len(t, fromV2, 1)
	assert.Equal(t, int64(2), fromV2[0].Event().Version())
}

func TestGormEventStore_EmptyEvents(t *testing.T) {
	db, err := NewDatabase(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	store, err := NewGormEventStore(db)
	require.NoError(t, err)

	ctx := context.Background()

	envelopes, err := store.Save(ctx, []domain.Event{})
	require.NoError(t, err)
	assert.Empty(t, envelopes)

	loaded, err := store.Load(ctx, "non-existent")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestGormEventStore_PreservesOccurredAt(t *testing.T) {
	db, err := NewDatabase(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	store, err := NewGormEventStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	occurredAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	event := newTestEvent("variant.created", "v-1", 1, occurredAt)

	_, err = store.Save(ctx, []domain.Event{event})
	require.NoError(t, err)

	loaded, err := store.Load(ctx, "v-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.True(t, occurredAt.Equal(loaded[0].Event().OccurredAt()))
}
