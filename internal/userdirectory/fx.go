package userdirectory

import (
	"go.uber.org/fx"

	"github.com/tokomart/tokomart/internal/userdirectory/repository"
	"github.com/tokomart/tokomart/internal/userdirectory/service"
)

var Module = fx.Module("userdirectory.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
