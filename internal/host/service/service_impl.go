package service

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/salasbeats/marketplace/internal/clock"
	"github.com/salasbeats/marketplace/internal/host/domain"
	listingdomain "github.com/salasbeats/marketplace/internal/listing/domain"
	"github.com/salasbeats/marketplace/pkg/db"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        domain.Repository
	ListingRepo listingdomain.Repository
	Provider    domain.AccountProvider `optional:"true"`
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	listingRepo listingdomain.Repository
	provider    domain.AccountProvider
}

func New(p Params) domain.Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("host.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		listingRepo: p.ListingRepo,
		provider:    p.Provider,
	}
}

func (s *service) Onboard(ctx context.Context, req domain.OnboardRequest) (*domain.Host, error) {
	existing, err := s.repo.FindByID(ctx, s.db, req.HostID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyOnboarded
	}

	now := s.clock.Now()
	host := &domain.Host{
		ID:          req.HostID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Country:     req.Country,
		Status:      domain.HostStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.provider != nil {
		account, err := s.provider.CreateAccount(ctx, req.Email, req.Country)
		if err != nil {
			return nil, err
		}
		host.AccountRef = account.Ref
		host.ChargesEnabled = account.ChargesEnabled
		host.PayoutsEnabled = account.PayoutsEnabled
		host.DetailsSubmitted = account.DetailsSubmitted
	}

	if err := s.repo.Insert(ctx, s.db, host); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyOnboarded
		}
		return nil, err
	}

	s.log.Info("host onboarded",
		zap.String("host_id", host.ID),
		zap.String("account_ref", host.AccountRef),
	)
	return host, nil
}

func (s *service) Get(ctx context.Context, id string) (*domain.Host, error) {
	host, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if host == nil {
		return nil, domain.ErrNotFound
	}
	return host, nil
}

// VerifyAccount refreshes the capability flags from the processor.
func (s *service) VerifyAccount(ctx context.Context, id string) (*domain.Host, error) {
	host, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if host.AccountRef == "" {
		return nil, domain.ErrNoAccount
	}
	if s.provider == nil {
		return host, nil
	}

	account, err := s.provider.RetrieveAccount(ctx, host.AccountRef)
	if err != nil {
		return nil, err
	}
	host.ChargesEnabled = account.ChargesEnabled
	host.PayoutsEnabled = account.PayoutsEnabled
	host.DetailsSubmitted = account.DetailsSubmitted
	host.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, host); err != nil {
		return nil, err
	}
	return host, nil
}

func (s *service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Host, error) {
	var host *domain.Host
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		host, err = s.repo.FindByID(ctx, tx, req.HostID)
		if err != nil {
			return err
		}
		if host == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		host.Status = req.Status
		host.StatusReason = req.Reason
		host.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, host); err != nil {
			return err
		}

		// Suspending a host takes their listings off the market with them.
		if req.Status == domain.HostStatusSuspended {
			suspended, err := s.listingRepo.SuspendAllForHost(ctx, tx, host.ID, req.Reason, now)
			if err != nil {
				return err
			}
			s.log.Info("listings suspended with host",
				zap.String("host_id", host.ID),
				zap.Int64("count", suspended),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("host status updated",
		zap.String("host_id", host.ID),
		zap.String("status", string(host.Status)),
	)
	return host, nil
}
