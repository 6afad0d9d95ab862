package pkg

import (
	"github.com/slapcommerce/core/pkg/application"
	"github.com/slapcommerce/core/pkg/domain"
	"github.com/slapcommerce/core/pkg/infrastructure"
	"go.uber.org/fx"
)

// Module is an alias for CoreModule for convenience.
var Module = CoreModule

// CoreModule combines every layer module, plus the commerce command and
// query handlers, into the module a binary needs to wire the whole write
// and read path.
var CoreModule = fx.Options(
	domain.DomainModule,
	application.ApplicationModule,
	application.CommerceModule,
	infrastructure.InfrastructureModule,
)

// NewApp creates a new Fx application with CoreModule plus any caller-
// supplied options (additional handlers, test overrides, and so on).
func NewApp(additionalOptions ...fx.Option) *fx.App {
	options := []fx.Option{CoreModule}
	options = append(options, additionalOptions...)

	return fx.New(options...)
}

// RunApp creates and runs a new Fx application with graceful shutdown.
func RunApp(additionalOptions ...fx.Option) {
	app := NewApp(additionalOptions...)
	app.Run()
}
