package infrastructure

import (
	"context"
	"sync"

	"github.com/slapcommerce/core/pkg/domain"
	"github.com/slapcommerce/core/pkg/infrastructure/readmodel"
	"gorm.io/gorm"
)

// ProjectionRouter dispatches newly-produced envelopes to their read-model
// projectors. It runs synchronously inside WithTransaction, before the
// physical commit, staging its writes into the same repos bundle as
// everything else fn did — so a projection failure aborts the whole
// transaction rather than leaving the read side stale.
type ProjectionRouter interface {
	Project(ctx context.Context, repos domain.Repositories, envelopes []domain.Envelope) error
}

// stagingEventStore stages Save as a closure instead of writing
// immediately; Load/LoadFromVersion pass straight through since reads
// inside a command handler always see committed state.
type stagingEventStore struct {
	real      *GormEventStore
	mu        *sync.Mutex
	stmts     *[]func(tx *gorm.DB) error
	envelopes *[]domain.Envelope
}

func (s *stagingEventStore) Save(ctx context.Context, events []domain.Event) ([]domain.Envelope, error) {
	if len(events) == 0 {
		return []domain.Envelope{}, nil
	}
	records, envelopes := buildEventRecords(events)

	s.mu.Lock()
	*s.stmts = append(*s.stmts, func(tx *gorm.DB) error {
		return s.real.WithDB(tx).SaveRecords(ctx, records)
	})
	*s.envelopes = append(*s.envelopes, envelopes...)
	s.mu.Unlock()

	return envelopes, nil
}

func (s *stagingEventStore) Load(ctx context.Context, aggregateID string) ([]domain.Envelope, error) {
	return s.real.Load(ctx, aggregateID)
}

func (s *stagingEventStore) LoadFromVersion(ctx context.Context, aggregateID string, fromVersion int64) ([]domain.Envelope, error) {
	return s.real.LoadFromVersion(ctx, aggregateID, fromVersion)
}

// stagingSnapshotStore stages Save; Load passes through.
type stagingSnapshotStore struct {
	real  *GormSnapshotStore
	mu    *sync.Mutex
	stmts *[]func(tx *gorm.DB) error
}

func (s *stagingSnapshotStore) Save(ctx context.Context, snapshot domain.Snapshot) error {
	s.mu.Lock()
	*s.stmts = append(*s.stmts, func(tx *gorm.DB) error {
		return s.real.WithDB(tx).Save(ctx, snapshot)
	})
	s.mu.Unlock()
	return nil
}

func (s *stagingSnapshotStore) Load(ctx context.Context, aggregateID string) (domain.Snapshot, error) {
	return s.real.Load(ctx, aggregateID)
}

// stagingOutboxStore stages Enqueue, assigning the row's id synchronously
// so a caller can log or reference it before the physical commit runs.
type stagingOutboxStore struct {
	real  *GormOutboxStore
	mu    *sync.Mutex
	stmts *[]func(tx *gorm.DB) error
}

func (s *stagingOutboxStore) Enqueue(ctx context.Context, entry domain.OutboxEntry) error {
	record := buildOutboxRecord(entry)
	s.mu.Lock()
	*s.stmts = append(*s.stmts, func(tx *gorm.DB) error {
		return s.real.WithDB(tx).InsertRecord(ctx, record)
	})
	s.mu.Unlock()
	return nil
}

// stagingReadModelRepo adapts any of the readmodel package's concrete
// repositories to domain.ReadModelRepository[T] with a staged Upsert.
type stagingReadModelRepo[T any] struct {
	upsertStaged func(ctx context.Context, row T) error
	get          func(ctx context.Context, aggregateID string) (T, error)
	list         func(ctx context.Context, filter domain.ReadModelFilter) ([]T, error)
}

func (s *stagingReadModelRepo[T]) Upsert(ctx context.Context, row T) error {
	return s.upsertStaged(ctx, row)
}

func (s *stagingReadModelRepo[T]) Get(ctx context.Context, aggregateID string) (T, error) {
	return s.get(ctx, aggregateID)
}

func (s *stagingReadModelRepo[T]) List(ctx context.Context, filter domain.ReadModelFilter) ([]T, error) {
	return s.list(ctx, filter)
}

// stagedRepositories implements domain.Repositories for the lifetime of one
// WithTransaction call. Every mutating method appends a closure to the
// shared stmts slice instead of touching the database; reads go straight
// through to the real stores, which is safe since they only ever observe
// already-committed rows.
type stagedRepositories struct {
	events      *GormEventStore
	snapshots   *GormSnapshotStore
	outbox      *GormOutboxStore
	variants    *readmodel.VariantViewRepository
	products    *readmodel.ProductViewRepository
	collections *readmodel.CollectionViewRepository
	schedules   *readmodel.ScheduleViewRepository

	mu        *sync.Mutex
	stmts     *[]func(tx *gorm.DB) error
	envelopes *[]domain.Envelope
}

func (r *stagedRepositories) Events() domain.EventStore {
	return &stagingEventStore{real: r.events, mu: r.mu, stmts: r.stmts, envelopes: r.envelopes}
}

func (r *stagedRepositories) Snapshots() domain.SnapshotStore {
	return &stagingSnapshotStore{real: r.snapshots, mu: r.mu, stmts: r.stmts}
}

func (r *stagedRepositories) Outbox() domain.OutboxStore {
	return &stagingOutboxStore{real: r.outbox, mu: r.mu, stmts: r.stmts}
}

func (r *stagedRepositories) stageVariantUpsert(ctx context.Context, row domain.VariantView) error {
	r.mu.Lock()
	*r.stmts = append(*r.stmts, func(tx *gorm.DB) error {
		return r.variants.WithDB(tx).Upsert(ctx, row)
	})
	r.mu.Unlock()
	return nil
}

func (r *stagedRepositories) VariantViews() domain.ReadModelRepository[domain.VariantView] {
	return &stagingReadModelRepo[domain.VariantView]{
		upsertStaged: r.stageVariantUpsert,
		get:          r.variants.Get,
		list:         r.variants.List,
	}
}

func (r *stagedRepositories) stageProductUpsert(ctx context.Context, row domain.ProductView) error {
	r.mu.Lock()
	*r.stmts = append(*r.stmts, func(tx *gorm.DB) error {
		return r.products.WithDB(tx).Upsert(ctx, row)
	})
	r.mu.Unlock()
	return nil
}

func (r *stagedRepositories) ProductViews() domain.ReadModelRepository[domain.ProductView] {
	return &stagingReadModelRepo[domain.ProductView]{
		upsertStaged: r.stageProductUpsert,
		get:          r.products.Get,
		list:         r.products.List,
	}
}

func (r *stagedRepositories) stageCollectionUpsert(ctx context.Context, row domain.CollectionView) error {
	r.mu.Lock()
	*r.stmts = append(*r.stmts, func(tx *gorm.DB) error {
		return r.collections.WithDB(tx).Upsert(ctx, row)
	})
	r.mu.Unlock()
	return nil
}

func (r *stagedRepositories) CollectionViews() domain.ReadModelRepository[domain.CollectionView] {
	return &stagingReadModelRepo[domain.CollectionView]{
		upsertStaged: r.stageCollectionUpsert,
		get:          r.collections.Get,
		list:         r.collections.List,
	}
}

func (r *stagedRepositories) stageScheduleUpsert(ctx context.Context, row domain.ScheduleView) error {
	r.mu.Lock()
	*r.stmts = append(*r.stmts, func(tx *gorm.DB) error {
		return r.schedules.WithDB(tx).Upsert(ctx, row)
	})
	r.mu.Unlock()
	return nil
}

func (r *stagedRepositories) ScheduleViews() domain.ReadModelRepository[domain.ScheduleView] {
	return &stagingReadModelRepo[domain.ScheduleView]{
		upsertStaged: r.stageScheduleUpsert,
		get:          r.schedules.Get,
		list:         r.schedules.List,
	}
}

// GormUnitOfWork implements domain.UnitOfWork against the GORM-backed
// stores, reworked from the teacher's persist-then-dispatch UnitOfWorkImpl
// into the scoped-resource pattern: every write fn issues through the
// Repositories it's handed stages into one logical batch, submitted to the
// transaction batcher only once fn returns without error.
type GormUnitOfWork struct {
	events      *GormEventStore
	snapshots   *GormSnapshotStore
	outbox      *GormOutboxStore
	variants    *readmodel.VariantViewRepository
	products    *readmodel.ProductViewRepository
	collections *readmodel.CollectionViewRepository
	schedules   *readmodel.ScheduleViewRepository
	batcher     *TransactionBatcher
	dispatcher  domain.EventDispatcher
	projector   ProjectionRouter
}

// NewGormUnitOfWork wires every store, the batcher, the best-effort
// dispatcher and the synchronous projection router into one UnitOfWork.
func NewGormUnitOfWork(
	events *GormEventStore,
	snapshots *GormSnapshotStore,
	outbox *GormOutboxStore,
	variants *readmodel.VariantViewRepository,
	products *readmodel.ProductViewRepository,
	collections *readmodel.CollectionViewRepository,
	schedules *readmodel.ScheduleViewRepository,
	batcher *TransactionBatcher,
	dispatcher domain.EventDispatcher,
	projector ProjectionRouter,
) *GormUnitOfWork {
	return &GormUnitOfWork{
		events:      events,
		snapshots:   snapshots,
		outbox:      outbox,
		variants:    variants,
		products:    products,
		collections: collections,
		schedules:   schedules,
		batcher:     batcher,
		dispatcher:  dispatcher,
		projector:   projector,
	}
}

// WithTransaction runs fn against a fresh staging Repositories bundle, runs
// the projection router over whatever events fn produced (still staged,
// still inside the same batch), then hands the combined statements to the
// batcher as one logical transaction. Only on a successful physical commit
// does it fire the best-effort dispatcher.
func (u *GormUnitOfWork) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) (interface{}, error)) (interface{}, error) {
	var mu sync.Mutex
	var stmts []func(tx *gorm.DB) error
	var envelopes []domain.Envelope

	repos := &stagedRepositories{
		events:      u.events,
		snapshots:   u.snapshots,
		outbox:      u.outbox,
		variants:    u.variants,
		products:    u.products,
		collections: u.collections,
		schedules:   u.schedules,
		mu:          &mu,
		stmts:       &stmts,
		envelopes:   &envelopes,
	}

	result, err := fn(ctx, repos)
	if err != nil {
		return nil, err
	}

	if u.projector != nil && len(envelopes) > 0 {
		if err := u.projector.Project(ctx, repos, envelopes); err != nil {
			return nil, err
		}
	}

	if len(stmts) > 0 {
		batchedStmts := stmts
		err := u.batcher.Submit(ctx, func(tx *gorm.DB) error {
			for _, stmt := range batchedStmts {
				if err := stmt(tx); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if u.dispatcher != nil && len(envelopes) > 0 {
		if err := u.dispatcher.Dispatch(ctx, envelopes); err != nil {
			return result, domain.NewExternalDeliveryError("event dispatch after commit", err)
		}
	}

	return result, nil
}
