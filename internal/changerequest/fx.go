package changerequest

import (
	"github.com/qualitrace/qualitrace/internal/changerequest/repository"
	"github.com/qualitrace/qualitrace/internal/changerequest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("changerequest.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
