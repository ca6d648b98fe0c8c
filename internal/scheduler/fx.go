package scheduler

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/salasbeats/marketplace/internal/clock"
	commissiondomain "github.com/salasbeats/marketplace/internal/commission/domain"
	"github.com/salasbeats/marketplace/internal/config"
	"github.com/salasbeats/marketplace/internal/observability/metrics"
)

func provideLocker(cfg config.Config, log *zap.Logger) Locker {
	if cfg.RedisAddr == "" {
		return NewNoopLocker()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return NewRedisLocker(client, log)
}

func provideScheduler(log *zap.Logger, clk clock.Clock, locker Locker, m *metrics.SchedulerMetrics, commissions commissiondomain.Service) *Scheduler {
	cfg := DefaultConfig()
	return NewScheduler(log, clk, locker, m, cfg, Jobs(cfg, commissions))
}

func registerHooks(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
}

var Module = fx.Module("scheduler",
	fx.Provide(provideLocker),
	fx.Provide(provideScheduler),
	fx.Invoke(registerHooks),
)
