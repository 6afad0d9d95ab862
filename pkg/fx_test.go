package pkg

import (
	"context"
	"testing"
	"time"

	"github.com/slapcommerce/core/pkg/application"
	"github.com/slapcommerce/core/pkg/domain"
	"github.com/slapcommerce/core/pkg/infrastructure"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestCoreModule(t *testing.T) {
	app := fxtest.New(t,
		CoreModule,
		fx.StartTimeout(10*time.Second),
		fx.StopTimeout(5*time.Second),
		fx.Invoke(func(
			config *infrastructure.Config,
			logger domain.Logger,
			eventStore domain.EventStore,
			eventDispatcher domain.EventDispatcher,
			unitOfWork domain.UnitOfWork,
			commandBus application.CommandBus,
			queryBus application.QueryBus,
			metrics application.MetricsCollector,
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
			if commandBus == nil {
				t.Error("CommandBus should not be nil")
			}
			if queryBus == nil {
				t.Error("QueryBus should not be nil")
			}
			if metrics == nil {
				t.Error("MetricsCollector should not be nil")
			}

			logger.Info("core module test", "status", "success")

			ctx := context.Background()
			envelopes, err := eventStore.Save(ctx, nil)
			if err != nil {
				t.Errorf("EventStore.Save failed: %v", err)
			}
			if len(envelopes) != 0 {
				t.Errorf("Expected 0 envelopes, got %d", len(envelopes))
			}

			if err := eventDispatcher.Dispatch(ctx, envelopes); err != nil {
				t.Errorf("EventDispatcher.Dispatch failed: %v", err)
			}

			result, err := unitOfWork.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) (interface{}, error) {
				return nil, nil
			})
			if err != nil {
				t.Errorf("UnitOfWork.WithTransaction failed: %v", err)
			}
			if result != nil {
				t.Errorf("Expected nil result, got %v", result)
			}
		}),
	)

	defer app.RequireStart().RequireStop()
}

func TestNewApp(t *testing.T) {
	app := NewApp()
	if app == nil {
		t.Error("NewApp should not return nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, 2*time.Second)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		t.Fatalf("App failed to start: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(ctx, 2*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		t.Fatalf("App failed to stop: %v", err)
	}
}

func TestNewAppWithAdditionalOptions(t *testing.T) {
	additionalOption := fx.Invoke(func() {})

	app := NewApp(additionalOption)
	if app == nil {
		t.Error("NewApp with additional options should not return nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, 2*time.Second)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		t.Fatalf("App with additional options failed to start: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(ctx, 2*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		t.Fatalf("App with additional options failed to stop: %v", err)
	}
}
