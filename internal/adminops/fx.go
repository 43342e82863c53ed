package adminops

import (
	"go.uber.org/fx"

	"github.com/tokomart/tokomart/internal/adminops/service"
)

var Module = fx.Module("adminops.service",
	fx.Provide(service.NewService),
)
