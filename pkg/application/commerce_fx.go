package application

import "go.uber.org/fx"

// CommerceModule bundles every aggregate's command handlers plus the query
// handlers, so a caller only needs ApplicationModule (the bus/middleware
// plumbing) and this one module to get a fully wired command/query surface.
var CommerceModule = fx.Options(
	VariantCommandModule,
	ProductCommandModule,
	CollectionCommandModule,
	ScheduleCommandModule,
	QueryModule,
)
