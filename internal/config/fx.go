package config

import "go.uber.org/fx"

// Module wires application and allocation configuration.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewAllocationConfigHolder,
	),
)
