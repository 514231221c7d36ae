package bench

import (
	"go.uber.org/fx"
)

// Module provides the benchmark domain and its HTTP routes.
var Module = fx.Module("bench",
	fx.Provide(NewService),
	fx.Provide(NewSampler),
	fx.Provide(NewLifecycle),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
