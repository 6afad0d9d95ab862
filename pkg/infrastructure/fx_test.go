package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
	"github.com/slapcommerce/core/pkg/infrastructure/outbox"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestInfrastructureModule(t *testing.T) {
	app := fxtest.New(t,
		InfrastructureModule,
		fx.Invoke(func(
			config *Config,
			logger domain.Logger,
			eventStore domain.EventStore,
			eventDispatcher domain.EventDispatcher,
			unitOfWork domain.UnitOfWork,
			processor *outbox.Processor,
			schema *SchemaManager,
		) {
			if config == nil {
				t.Error("Config should not be nil")
			}
			if logger == nil {
				t.Error("Logger should not be nil")
			}
			if eventStore == nil {
				t.Error("EventStore should not be nil")
			}
			if eventDispatcher == nil {
				t.Error("EventDispatcher should not be nil")
			}
			if unitOfWork == nil {
				t.Error("UnitOfWork should not be nil")
			}
			if processor == nil {
				t.Error("outbox Processor should not be nil")
			}
			if schema == nil {
				t.Error("SchemaManager should not be nil")
			}

			logger.Info("test log message", "key", "value")
			logger.Debug("debug message")
			logger.Warn("warning message")
		}),
	)

	defer app.RequireStart().RequireStop()
}

func TestDatabaseProvider(t *testing.T) {
	config := &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
	}

	db, err := DatabaseProvider(config)
	if err != nil {
		t.Fatalf("DatabaseProvider failed: %v", err)
	}

	if db == nil {
		t.Error("Database should not be nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get SQL DB: %v", err)
	}

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("Database ping failed: %v", err)
	}
}

func TestEventStoreProvider(t *testing.T) {
	db, err := DatabaseProvider(&Config{Database: DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}})
	if err != nil {
		t.Fatalf("DatabaseProvider failed: %v", err)
	}
	if err := NewSchemaManager(db).Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	eventStore, err := EventStoreProvider(db)
	if err != nil {
		t.Fatalf("EventStoreProvider failed: %v", err)
	}
	if eventStore == nil {
		t.Error("EventStore should not be nil")
	}

	ctx := context.Background()
	envelopes, err := eventStore.Save(ctx, nil)
	if err != nil {
		t.Fatalf("EventStore.Save failed: %v", err)
	}
	if len(envelopes) != 0 {
		t.Errorf("Expected 0 envelopes, got %d", len(envelopes))
	}
}

func TestEventDispatcherProvider(t *testing.T) {
	config := &Config{Events: EventsConfig{Publisher: "channel"}}

	dispatcher, err := EventDispatcherProvider(config)
	if err != nil {
		t.Fatalf("EventDispatcherProvider failed: %v", err)
	}
	if dispatcher == nil {
		t.Error("EventDispatcher should not be nil")
	}

	ctx := context.Background()
	if err := dispatcher.Dispatch(ctx, nil); err != nil {
		t.Fatalf("EventDispatcher.Dispatch failed: %v", err)
	}
}

func TestLoggerProvider(t *testing.T) {
	config := &Config{Logging: LoggingConfig{Level: "info", Format: "text"}}

	logger := LoggerProvider(config)
	if logger == nil {
		t.Error("Logger should not be nil")
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warning message")
	logger.Debugf("debug formatted: %s", "test")
	logger.Infof("info formatted: %d", 42)
}

func TestUnitOfWorkProvider(t *testing.T) {
	config := &Config{Database: DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}}

	db, err := DatabaseProvider(config)
	if err != nil {
		t.Fatalf("DatabaseProvider failed: %v", err)
	}
	if err := NewSchemaManager(db).Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	events, err := EventStoreProvider(db)
	if err != nil {
		t.Fatalf("EventStoreProvider failed: %v", err)
	}
	snapshots, err := SnapshotStoreProvider(db)
	if err != nil {
		t.Fatalf("SnapshotStoreProvider failed: %v", err)
	}
	outboxStore, err := OutboxStoreProvider(db)
	if err != nil {
		t.Fatalf("OutboxStoreProvider failed: %v", err)
	}
	variants, err := VariantViewRepositoryProvider(db)
	if err != nil {
		t.Fatalf("VariantViewRepositoryProvider failed: %v", err)
	}
	products, err := ProductViewRepositoryProvider(db)
	if err != nil {
		t.Fatalf("ProductViewRepositoryProvider failed: %v", err)
	}
	collections, err := CollectionViewRepositoryProvider(db)
	if err != nil {
		t.Fatalf("CollectionViewRepositoryProvider failed: %v", err)
	}
	schedules, err := ScheduleViewRepositoryProvider(db)
	if err != nil {
		t.Fatalf("ScheduleViewRepositoryProvider failed: %v", err)
	}
	batcher := BatcherProvider(db, &Config{Batcher: DefaultBatcherConfig()})
	defer batcher.Stop()

	dispatcher, err := EventDispatcherProvider(config)
	if err != nil {
		t.Fatalf("EventDispatcherProvider failed: %v", err)
	}
	projector := ProjectionRouterProvider()

	unitOfWork := UnitOfWorkProvider(events, snapshots, outboxStore, variants, products, collections, schedules, batcher, dispatcher, projector)
	if unitOfWork == nil {
		t.Error("UnitOfWork should not be nil")
	}

	ctx := context.Background()
	result, err := unitOfWork.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("UnitOfWork.WithTransaction failed: %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result, got %v", result)
	}
}

func TestOutboxPublisherProvider_DefaultsToWatermill(t *testing.T) {
	publisher, err := OutboxPublisherProvider(&Config{})
	if err != nil {
		t.Fatalf("OutboxPublisherProvider failed: %v", err)
	}
	if publisher == nil {
		t.Error("Publisher should not be nil")
	}
}

func TestOutboxPublisherProvider_UsesWebhookWhenConfigured(t *testing.T) {
	publisher, err := OutboxPublisherProvider(&Config{Outbox: OutboxTuning{WebhookURL: "http://example.invalid/hook"}})
	if err != nil {
		t.Fatalf("OutboxPublisherProvider failed: %v", err)
	}
	if _, ok := publisher.(*outbox.HTTPWebhookPublisher); !ok {
		t.Errorf("expected *outbox.HTTPWebhookPublisher, got %T", publisher)
	}
}

func TestLifecycleHooks(t *testing.T) {
	app := fxtest.New(t,
		InfrastructureModule,
		fx.StartTimeout(5*time.Second),
		fx.StopTimeout(5*time.Second),
	)

	defer app.RequireStart().RequireStop()
}
