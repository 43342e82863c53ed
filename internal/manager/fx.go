package manager

import (
	"go.uber.org/fx"

	"github.com/tokomart/tokomart/internal/manager/service"
)

var Module = fx.Module("manager.service",
	fx.Provide(service.NewService),
)
