package entitlement

import (
	"go.uber.org/fx"

	"github.com/tokomart/tokomart/internal/entitlement/repository"
	"github.com/tokomart/tokomart/internal/entitlement/service"
)

var Module = fx.Module("entitlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
