package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/salasbeats/marketplace/internal/authorization"
	"github.com/salasbeats/marketplace/internal/booking"
	bookingdomain "github.com/salasbeats/marketplace/internal/booking/domain"
	"github.com/salasbeats/marketplace/internal/clock"
	"github.com/salasbeats/marketplace/internal/commission"
	commissiondomain "github.com/salasbeats/marketplace/internal/commission/domain"
	"github.com/salasbeats/marketplace/internal/config"
	"github.com/salasbeats/marketplace/internal/host"
	hostdomain "github.com/salasbeats/marketplace/internal/host/domain"
	"github.com/salasbeats/marketplace/internal/listing"
	"github.com/salasbeats/marketplace/internal/observability"
	obsmiddleware "github.com/salasbeats/marketplace/internal/observability/logger"
	obsmetrics "github.com/salasbeats/marketplace/internal/observability/metrics"
	obstracing "github.com/salasbeats/marketplace/internal/observability/tracing"
	"github.com/salasbeats/marketplace/internal/payout"
	payoutdomain "github.com/salasbeats/marketplace/internal/payout/domain"
	"github.com/salasbeats/marketplace/internal/scheduler"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	listing.Module,
	booking.Module,
	commission.Module,
	host.Module,
	payout.Module,
	scheduler.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Log:   log.Named("http"),
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())
	r.Use(IdentityContext())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	authzSvc      authorization.Service
	bookingSvc    bookingdomain.Service
	commissionSvc commissiondomain.Service
	hostSvc       hostdomain.Service
	payoutSvc     payoutdomain.Service
	eventParser   payoutdomain.EventParser
	clock         clock.Clock
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	AuthzSvc      authorization.Service
	BookingSvc    bookingdomain.Service
	CommissionSvc commissiondomain.Service
	HostSvc       hostdomain.Service
	PayoutSvc     payoutdomain.Service
	EventParser   payoutdomain.EventParser
	Clock         clock.Clock
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		authzSvc:      p.AuthzSvc,
		bookingSvc:    p.BookingSvc,
		commissionSvc: p.CommissionSvc,
		hostSvc:       p.HostSvc,
		payoutSvc:     p.PayoutSvc,
		eventParser:   p.EventParser,
		clock:         p.Clock,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(AuthRequired())

	api.GET("/availability", s.CheckAvailability)

	api.POST("/bookings", s.Authorized(authorization.ObjectBooking, authorization.ActionBookingCreate), s.CreateBooking)
	api.GET("/bookings/:id", s.GetBooking)
	api.POST("/bookings/:id/status", s.Authorized(authorization.ObjectBooking, authorization.ActionBookingTransition), s.TransitionBooking)
	api.POST("/bookings/:id/cancel", s.Authorized(authorization.ObjectBooking, authorization.ActionBookingCancel), s.CancelBooking)
	api.POST("/bookings/:id/payment", s.AttachBookingPayment)

	api.POST("/commissions/calculate", s.Authorized(authorization.ObjectCommission, authorization.ActionCommissionCalculate), s.CalculateCommission)
	api.POST("/commissions/report", s.Authorized(authorization.ObjectReport, authorization.ActionReportGenerate), s.GenerateCommissionReport)

	api.POST("/hosts", s.Authorized(authorization.ObjectHost, authorization.ActionHostOnboard), s.OnboardHost)
	api.GET("/hosts/:id", s.GetHost)
	api.POST("/hosts/:id/verify", s.Authorized(authorization.ObjectHost, authorization.ActionHostVerify), s.VerifyHostAccount)
	api.GET("/hosts/:id/earnings", s.Authorized(authorization.ObjectHost, authorization.ActionEarningsView), s.HostEarnings)

	api.POST("/payouts", s.Authorized(authorization.ObjectPayout, authorization.ActionPayoutRequest), s.RequestPayout)
	api.GET("/payouts", s.Authorized(authorization.ObjectPayout, authorization.ActionPayoutRequest), s.ListPayouts)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin")
	admin.Use(AuthRequired())

	admin.PUT("/commission-rate", s.Authorized(authorization.ObjectCommission, authorization.ActionCommissionRateUpdate), s.UpdateCommissionRate)
	admin.PUT("/hosts/:id/status", s.Authorized(authorization.ObjectHost, authorization.ActionHostStatusUpdate), s.UpdateHostStatus)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments", s.PaymentWebhook)
}
