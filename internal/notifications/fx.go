package notifications

import (
	"github.com/qualitrace/qualitrace/internal/events"
	"go.uber.org/fx"
)

var Module = fx.Module("notifications",
	fx.Provide(NewSubscriber),
	fx.Invoke(func(sub *Subscriber, bus *events.Bus) {
		sub.Register(bus)
	}),
)
