package traceability

import (
	"github.com/qualitrace/qualitrace/internal/traceability/repository"
	"github.com/qualitrace/qualitrace/internal/traceability/service"
	"go.uber.org/fx"
)

var Module = fx.Module("traceability.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
