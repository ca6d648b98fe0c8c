package booking

import (
	"go.uber.org/fx"

	"github.com/salasbeats/marketplace/internal/booking/repository"
	"github.com/salasbeats/marketplace/internal/booking/service"
)

var Module = fx.Module("booking",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
