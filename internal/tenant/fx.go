package tenant

import (
	"github.com/qualitrace/qualitrace/internal/tenant/repository"
	"github.com/qualitrace/qualitrace/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
