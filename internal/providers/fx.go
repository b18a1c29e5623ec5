package providers

import (
	"github.com/qualitrace/qualitrace/internal/providers/drafts"
	"github.com/qualitrace/qualitrace/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	drafts.Module,
)
