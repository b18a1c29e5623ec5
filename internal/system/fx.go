package system

import (
	"github.com/qualitrace/qualitrace/internal/system/repository"
	"github.com/qualitrace/qualitrace/internal/system/service"
	"go.uber.org/fx"
)

var Module = fx.Module("system.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
