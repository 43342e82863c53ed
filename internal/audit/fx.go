package audit

import (
	"github.com/tokomart/tokomart/internal/audit/repository"
	"github.com/tokomart/tokomart/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
