package payout

import (
	"go.uber.org/fx"

	bookingdomain "github.com/salasbeats/marketplace/internal/booking/domain"
	commissiondomain "github.com/salasbeats/marketplace/internal/commission/domain"
	hostdomain "github.com/salasbeats/marketplace/internal/host/domain"
	"github.com/salasbeats/marketplace/internal/payout/domain"
	"github.com/salasbeats/marketplace/internal/payout/repository"
	"github.com/salasbeats/marketplace/internal/payout/service"
	"github.com/salasbeats/marketplace/internal/payout/stripe"
)

var Module = fx.Module("payout",
	fx.Provide(repository.Provide),
	fx.Provide(func(repo domain.Repository) commissiondomain.PayoutReader { return repo }),
	fx.Provide(fx.Annotate(
		stripe.NewClient,
		fx.As(new(domain.Provider)),
		fx.As(new(domain.EventParser)),
		fx.As(new(bookingdomain.Refunder)),
		fx.As(new(hostdomain.AccountProvider)),
	)),
	fx.Provide(service.New),
)
