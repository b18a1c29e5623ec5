package drafts

import (
	"github.com/qualitrace/qualitrace/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.drafts",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if !cfg.Drafts.Enabled || cfg.Drafts.APIKey == "" {
		return &NoOpProvider{}
	}
	return NewOpenAI(Config{
		APIKey: cfg.Drafts.APIKey,
		Model:  cfg.Drafts.Model,
	})
}
