package listing

import (
	"github.com/salasbeats/marketplace/internal/listing/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("listing",
	fx.Provide(repository.Provide),
)
