package auth

import (
	"github.com/qualitrace/qualitrace/internal/auth/repository"
	"github.com/qualitrace/qualitrace/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(service.New),
)
