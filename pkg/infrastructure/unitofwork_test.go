package infrastructure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
	"github.com/slapcommerce/core/pkg/infrastructure/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu        sync.Mutex
	dispatch  []domain.Envelope
	dispatchErr error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, envelopes []domain.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dispatchErr != nil {
		return f.dispatchErr
	}
	f.dispatch = append(f.dispatch, envelopes...)
	return nil
}

func (f *fakeDispatcher) Subscribe(eventName string, handler domain.EventHandler) error { return nil }
func (f *fakeDispatcher) Start() error                                                 { return nil }
func (f *fakeDispatcher) Close() error                                                 { return nil }

func (f *fakeDispatcher) dispatched() []domain.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Envelope, len(f.dispatch))
	copy(out, f.dispatch)
	return out
}

func newTestUnitOfWork(t *testing.T) (*GormUnitOfWork, *fakeDispatcher) {
	t.Helper()
	db, err := NewDatabase(DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	events, err := NewGormEventStore(db)
	require.NoError(t, err)
	snapshots, err := NewGormSnapshotStore(db)
	require.NoError(t, err)
	outbox, err := NewGormOutboxStore(db)
	require.NoError(t, err)
	variants, err := readmodel.NewVariantViewRepository(db)
	require.NoError(t, err)
	products, err := readmodel.NewProductViewRepository(db)
	require.NoError(t, err)
	collections, err := readmodel.NewCollectionViewRepository(db)
	require.NoError(t, err)
	schedules, err := readmodel.NewScheduleViewRepository(db)
	require.NoError(t, err)

	batcher := NewTransactionBatcher(db, DefaultBatcherConfig())
	t.Cleanup(batcher.Stop)

	dispatcher := &fakeDispatcher{}
	uow := NewGormUnitOfWork(events, snapshots, outbox, variants, products, collections, schedules, batcher, dispatcher, nil)
	return uow, dispatcher
}

func TestGormUnitOfWork_CommitsEventsSnapshotAndReadModel(t *testing.T) {
	uow, dispatcher := newTestUnitOfWork(t)
	ctx := context.Background()

	result, err := uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		event := newTestEvent("variant.created", "v-1", 1, time.Now().UTC())
		envelopes, err := repos.Events().Save(ctx, []domain.Event{event})
		if err != nil {
			return nil, err
		}

		if err := repos.Snapshots().Save(ctx, domain.Snapshot{AggregateID: "v-1", Version: 1, Payload: []byte(`{}`)}); err != nil {
			return nil, err
		}

		if err := repos.VariantViews().Upsert(ctx, domain.VariantView{AggregateID: "v-1", Version: 1, SKU: "SKU-1"}); err != nil {
			return nil, err
		}

		return envelopes, nil
	})
	require.NoError(t, err)
	envelopes := result.([]domain.Envelope)
	require.Len(t, envelopes, 1)

	snap, err := uow.snapshots.Load(ctx, "v-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)

	view, err := uow.variants.Get(ctx, "v-1")
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", view.SKU)

	assert.Len(t, dispatcher.dispatched(), 1)
}

func TestGormUnitOfWork_FnErrorStagesNothing(t *testing.T) {
	uow, dispatcher := newTestUnitOfWork(t)
	ctx := context.Background()

	_, err := uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		event := newTestEvent("variant.created", "v-2", 1, time.Now().UTC())
		if _, err := repos.Events().Save(ctx, []domain.Event{event}); err != nil {
			return nil, err
		}
		return nil, assert.AnError
	})
	require.Error(t, err)

	loaded, err := uow.events.Load(ctx, "v-2")
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.Empty(t, dispatcher.dispatched())
}

func TestGormUnitOfWork_NoWritesIsNoop(t *testing.T) {
	uow, dispatcher := newTestUnitOfWork(t)
	ctx := context.Background()

	result, err := uow.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Empty(t, dispatcher.dispatched())
}
