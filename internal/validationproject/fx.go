package validationproject

import (
	"github.com/qualitrace/qualitrace/internal/validationproject/repository"
	"github.com/qualitrace/qualitrace/internal/validationproject/service"
	"go.uber.org/fx"
)

var Module = fx.Module("validationproject.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
