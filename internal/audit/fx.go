package audit

import (
	"github.com/qualitrace/qualitrace/internal/audit/repository"
	"github.com/qualitrace/qualitrace/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
