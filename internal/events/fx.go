package events

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("events.bus",
	fx.Provide(func(lc fx.Lifecycle, bus *Bus) Publisher {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				bus.Wait()
				return nil
			},
		})
		return bus
	}),
	fx.Provide(NewBus),
)
