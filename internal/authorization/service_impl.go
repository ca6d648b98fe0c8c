package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/salasbeats/marketplace/internal/identity"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectBooking    = "booking"
	ObjectCommission = "commission"
	ObjectPayout     = "payout"
	ObjectHost       = "host"
	ObjectReport     = "report"
)

const (
	ActionBookingCreate     = "booking.create"
	ActionBookingTransition = "booking.transition"
	ActionBookingCancel     = "booking.cancel"

	ActionCommissionCalculate  = "commission.calculate"
	ActionCommissionRateUpdate = "commission.rate_update"

	ActionPayoutRequest = "payout.request"

	ActionHostOnboard      = "host.onboard"
	ActionHostVerify       = "host.verify"
	ActionHostStatusUpdate = "host.status_update"

	ActionReportGenerate = "report.generate"
	ActionEarningsView   = "earnings.view"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission_denied")
)

// Service answers "may this caller perform this action".
type Service interface {
	Authorize(ctx context.Context, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, object, action string) error {
	caller, ok := identity.CallerFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	subject := fmt.Sprintf("role:%s", strings.ToLower(string(caller.Role)))
	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("caller", caller.ID),
			zap.String("role", string(caller.Role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrPermissionDenied
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:user", ObjectBooking, ActionBookingCreate},
		{"role:user", ObjectBooking, ActionBookingTransition},
		{"role:user", ObjectBooking, ActionBookingCancel},
		{"role:user", ObjectCommission, ActionCommissionCalculate},
		{"role:user", ObjectHost, ActionHostOnboard},

		{"role:host", ObjectPayout, ActionPayoutRequest},
		{"role:host", ObjectHost, ActionHostVerify},
		{"role:host", ObjectHost, ActionEarningsView},

		{"role:admin", ObjectCommission, ActionCommissionRateUpdate},
		{"role:admin", ObjectHost, ActionHostStatusUpdate},
		{"role:admin", ObjectReport, ActionReportGenerate},
	}
	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return err
		}
	}

	// Hosts inherit user permissions, admins inherit host permissions.
	groupings := [][]string{
		{"role:host", "role:user"},
		{"role:admin", "role:host"},
	}
	for _, g := range groupings {
		if _, err := enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return err
		}
	}
	return nil
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
