package application

import (
	"testing"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestApplicationModule(t *testing.T) {
	app := fxtest.New(t,
		ApplicationModule,
		fx.Invoke(func(
			commandBus CommandBus,
			queryBus QueryBus,
		) {
			if commandBus == nil {
				t.Error("CommandBus should not be nil")
			}
			if queryBus == nil {
				t.Error("QueryBus should not be nil")
			}
		}),
	)

	defer app.RequireStart().RequireStop()
}

func TestCommandBusProvider(t *testing.T) {
	bus := CommandBusProvider()
	if bus == nil {
		t.Error("CommandBus should not be nil")
	}
}

func TestQueryBusProvider(t *testing.T) {
	bus := QueryBusProvider()
	if bus == nil {
		t.Error("QueryBus should not be nil")
	}
}

func TestMetricsCollectorProvider(t *testing.T) {
	metrics := MetricsCollectorProvider()
	if metrics == nil {
		t.Error("MetricsCollector should not be nil")
	}
}
