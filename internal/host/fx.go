package host

import (
	"go.uber.org/fx"

	"github.com/salasbeats/marketplace/internal/host/repository"
	"github.com/salasbeats/marketplace/internal/host/service"
)

var Module = fx.Module("host",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
