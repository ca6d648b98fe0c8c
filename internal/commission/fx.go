package commission

import (
	"go.uber.org/fx"

	"github.com/salasbeats/marketplace/internal/commission/repository"
	"github.com/salasbeats/marketplace/internal/commission/service"
)

var Module = fx.Module("commission",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
