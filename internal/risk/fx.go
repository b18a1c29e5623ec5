package risk

import (
	"github.com/qualitrace/qualitrace/internal/risk/repository"
	"github.com/qualitrace/qualitrace/internal/risk/service"
	"go.uber.org/fx"
)

var Module = fx.Module("risk.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
