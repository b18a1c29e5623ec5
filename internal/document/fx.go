package document

import (
	"github.com/qualitrace/qualitrace/internal/document/repository"
	"github.com/qualitrace/qualitrace/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
