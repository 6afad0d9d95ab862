package infrastructure

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/slapcommerce/core/pkg/domain"
	"github.com/slapcommerce/core/pkg/infrastructure/outbox"
	"github.com/slapcommerce/core/pkg/infrastructure/readmodel"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// InfrastructureModule provides every persistence/runtime dependency the
// write path needs: stores, the transaction batcher, the projection
// router, the Unit-of-Work facade, and the outbox processor, plus their
// start/stop lifecycle hooks.
var InfrastructureModule = fx.Options(
	fx.Provide(
		LoadConfig,
		DatabaseProvider,
		LoggerProvider,
		EventStoreProvider,
		EventStoreInterfaceProvider,
		SnapshotStoreProvider,
		OutboxStoreProvider,
		VariantViewRepositoryProvider,
		ProductViewRepositoryProvider,
		CollectionViewRepositoryProvider,
		ScheduleViewRepositoryProvider,
		BatcherProvider,
		EventDispatcherProvider,
		ProjectionRouterProvider,
		UnitOfWorkProvider,
		SchemaManagerProvider,
		OutboxPublisherProvider,
		OutboxProcessorProvider,
	),
	fx.Invoke(
		registerDatabaseLifecycle,
		registerEventDispatcherLifecycle,
		registerBatcherLifecycle,
		registerOutboxProcessorLifecycle,
	),
)

// registerDatabaseLifecycle pings the connection on start, runs the schema
// manager so every table exists before any command handler runs, and
// closes the connection on stop.
func registerDatabaseLifecycle(lc fx.Lifecycle, db *gorm.DB, schema *SchemaManager, logger domain.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				logger.Error("failed to get underlying database connection", "error", err)
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				logger.Error("failed to ping database", "error", err)
				return err
			}
			if err := schema.Migrate(); err != nil {
				logger.Error("failed to run schema migrations", "error", err)
				return err
			}
			logger.Info("database connection established and schema migrated")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				logger.Error("failed to get underlying database connection for closing", "error", err)
				return err
			}
			if err := sqlDB.Close(); err != nil {
				logger.Error("failed to close database connection", "error", err)
				return err
			}
			logger.Info("database connection closed")
			return nil
		},
	})
}

// registerEventDispatcherLifecycle starts/stops the best-effort dispatcher
// (metrics/tracing side-channel), independent of the outbox's at-least-once
// delivery guarantee.
func registerEventDispatcherLifecycle(lc fx.Lifecycle, dispatcher domain.EventDispatcher, logger domain.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := dispatcher.Start(); err != nil {
				logger.Error("failed to start event dispatcher", "error", err)
				return err
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := dispatcher.Close(); err != nil {
				logger.Error("failed to close event dispatcher", "error", err)
				return err
			}
			return nil
		},
	})
}

// registerBatcherLifecycle ties the batcher's background flush loop to the
// fx app's lifetime: Stop flushes every pending batch synchronously before
// the process exits, per spec.md §4.3's shutdown contract.
func registerBatcherLifecycle(lc fx.Lifecycle, batcher *TransactionBatcher, logger domain.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			batcher.Stop()
			logger.Info("transaction batcher stopped")
			return nil
		},
	})
}

// registerOutboxProcessorLifecycle starts the lease/deliver/settle loop on
// app start and drains it on stop, independently of command servicing per
// spec.md §4.6.
func registerOutboxProcessorLifecycle(lc fx.Lifecycle, processor *outbox.Processor, logger domain.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			processor.Start()
			logger.Info("outbox processor started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			processor.Stop()
			logger.Info("outbox processor stopped")
			return nil
		},
	})
}

// DatabaseProvider creates a database connection from config.
func DatabaseProvider(config *Config) (*gorm.DB, error) {
	return NewDatabase(config.Database)
}

// EventStoreProvider creates the concrete GORM-backed event store, needed
// by UnitOfWorkProvider for its staging wrapper.
func EventStoreProvider(db *gorm.DB) (*GormEventStore, error) {
	return NewGormEventStore(db)
}

// EventStoreInterfaceProvider exposes the concrete store as domain.EventStore
// for consumers that only need the read path (Load/LoadFromVersion).
func EventStoreInterfaceProvider(store *GormEventStore) domain.EventStore {
	return store
}

// SnapshotStoreProvider creates the concrete GORM-backed snapshot store.
func SnapshotStoreProvider(db *gorm.DB) (*GormSnapshotStore, error) {
	return NewGormSnapshotStore(db)
}

// OutboxStoreProvider creates the concrete GORM-backed outbox store, used
// both by the Unit-of-Work (enqueue side) and the outbox processor
// (lease/settle side).
func OutboxStoreProvider(db *gorm.DB) (*GormOutboxStore, error) {
	return NewGormOutboxStore(db)
}

// VariantViewRepositoryProvider creates the variant_views repository.
func VariantViewRepositoryProvider(db *gorm.DB) (*readmodel.VariantViewRepository, error) {
	return readmodel.NewVariantViewRepository(db)
}

// ProductViewRepositoryProvider creates the product_views repository.
func ProductViewRepositoryProvider(db *gorm.DB) (*readmodel.ProductViewRepository, error) {
	return readmodel.NewProductViewRepository(db)
}

// CollectionViewRepositoryProvider creates the collection_views repository.
func CollectionViewRepositoryProvider(db *gorm.DB) (*readmodel.CollectionViewRepository, error) {
	return readmodel.NewCollectionViewRepository(db)
}

// ScheduleViewRepositoryProvider creates the schedule_views repository.
func ScheduleViewRepositoryProvider(db *gorm.DB) (*readmodel.ScheduleViewRepository, error) {
	return readmodel.NewScheduleViewRepository(db)
}

// BatcherProvider creates the transaction batcher tuned from config.
func BatcherProvider(db *gorm.DB, config *Config) *TransactionBatcher {
	return NewTransactionBatcher(db, config.Batcher)
}

// ProjectionRouterProvider creates the exhaustive event-name → read-model
// dispatcher.
func ProjectionRouterProvider() ProjectionRouter {
	return NewProjectionRouter()
}

// EventDispatcherProvider creates the best-effort in-process dispatcher
// used for metrics/tracing taps, independent of the outbox's durable
// delivery path.
func EventDispatcherProvider(config *Config) (domain.EventDispatcher, error) {
	return NewWatermillEventDispatcher(nil)
}

// LoggerProvider creates a logger based on config.
func LoggerProvider(config *Config) domain.Logger {
	return NewLogger(config.Logging.Level, config.Logging.Format)
}

// UnitOfWorkProvider wires every store, the batcher, the dispatcher, and
// the projection router into the scoped-resource Unit-of-Work.
func UnitOfWorkProvider(
	events *GormEventStore,
	snapshots *GormSnapshotStore,
	outboxStore *GormOutboxStore,
	variants *readmodel.VariantViewRepository,
	products *readmodel.ProductViewRepository,
	collections *readmodel.CollectionViewRepository,
	schedules *readmodel.ScheduleViewRepository,
	batcher *TransactionBatcher,
	dispatcher domain.EventDispatcher,
	projector ProjectionRouter,
) domain.UnitOfWork {
	return NewGormUnitOfWork(events, snapshots, outboxStore, variants, products, collections, schedules, batcher, dispatcher, projector)
}

// SchemaManagerProvider creates the idempotent-DDL schema manager.
func SchemaManagerProvider(db *gorm.DB) *SchemaManager {
	return NewSchemaManager(db)
}

// OutboxPublisherProvider selects the delivery transport: an HTTP webhook
// when config.Outbox.WebhookURL is set, otherwise an in-process Watermill
// publisher — the same swap-without-touching-the-processor design
// SPEC_FULL.md's Open Question decision calls for.
func OutboxPublisherProvider(config *Config) (outbox.Publisher, error) {
	if config.Outbox.WebhookURL != "" {
		return outbox.NewHTTPWebhookPublisher(config.Outbox.WebhookURL, nil), nil
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	return outbox.NewWatermillPublisher(pubSub, "domain-events"), nil
}

// OutboxProcessorProvider builds the lease/deliver/settle loop, tuned from
// config.Outbox.
func OutboxProcessorProvider(store *GormOutboxStore, publisher outbox.Publisher, config *Config, logger domain.Logger) *outbox.Processor {
	cfg := outbox.Config{
		LeaseDuration: time.Duration(config.Outbox.LeaseDurationMs) * time.Millisecond,
		MaxAttempts:   config.Outbox.MaxAttempts,
		BackoffBase:   time.Duration(config.Outbox.BackoffBaseMs) * time.Millisecond,
		WorkerCount:   config.Outbox.WorkerCount,
		BatchSize:     config.Outbox.BatchSize,
		PollInterval:  time.Duration(config.Outbox.PollIntervalMs) * time.Millisecond,
		ReapInterval:  5 * time.Second,
	}
	return outbox.NewProcessor(store, publisher, cfg, logger)
}
