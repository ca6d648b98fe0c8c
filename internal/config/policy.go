package config

import (
	"errors"
	"log"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RefundTier refunds the given fraction when the booking starts strictly more
// than MinHours from now. Tiers are evaluated from the largest MinHours down;
// no matching tier means no refund.
type RefundTier struct {
	MinHours float64 `mapstructure:"minHours"`
	Fraction float64 `mapstructure:"fraction"`
}

// MarketplacePolicy is the hot-reloadable business policy of the platform.
type MarketplacePolicy struct {
	DefaultCommissionRate float64      `mapstructure:"defaultCommissionRate"`
	RefundTiers           []RefundTier `mapstructure:"refundTiers"`
	MinPayoutAmount       float64      `mapstructure:"minPayoutAmount"`
}

func DefaultMarketplacePolicy() MarketplacePolicy {
	return MarketplacePolicy{
		DefaultCommissionRate: 0.15,
		RefundTiers: []RefundTier{
			{MinHours: 24, Fraction: 1.0},
			{MinHours: 12, Fraction: 0.5},
		},
		MinPayoutAmount: 1,
	}
}

// RefundFraction resolves the refund fraction for a booking starting
// hoursUntilStart from now. Comparisons are strictly greater-than: a booking
// starting in exactly 24 hours does not qualify for the 24h tier.
func (p MarketplacePolicy) RefundFraction(hoursUntilStart float64) float64 {
	tiers := append([]RefundTier(nil), p.RefundTiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinHours > tiers[j].MinHours })
	for _, tier := range tiers {
		if hoursUntilStart > tier.MinHours {
			return tier.Fraction
		}
	}
	return 0
}

// PolicyHolder exposes the current MarketplacePolicy and follows file changes.
type PolicyHolder struct {
	current atomic.Value // holds MarketplacePolicy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("marketplace")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/marketplace")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MARKETPLACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultMarketplacePolicy()
		v.SetDefault("policy.defaultCommissionRate", defaults.DefaultCommissionRate)
		v.SetDefault("policy.refundTiers", defaults.RefundTiers)
		v.SetDefault("policy.minPayoutAmount", defaults.MinPayoutAmount)
	}

	var policy MarketplacePolicy
	if err := v.UnmarshalKey("policy", &policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		var next MarketplacePolicy
		if err := v.UnmarshalKey("policy", &next); err != nil {
			log.Printf("policy reload skipped: %v", err)
			return
		}
		if err := validatePolicy(next); err != nil {
			log.Printf("policy reload skipped: %v", err)
			return
		}
		holder.current.Store(next)
	})

	return holder, nil
}

// NewStaticPolicyHolder returns a holder pinned to the given policy, for tests.
func NewStaticPolicyHolder(policy MarketplacePolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *PolicyHolder) Current() MarketplacePolicy {
	if h == nil {
		return DefaultMarketplacePolicy()
	}
	if v, ok := h.current.Load().(MarketplacePolicy); ok {
		return v
	}
	return DefaultMarketplacePolicy()
}

func validatePolicy(p MarketplacePolicy) error {
	if p.DefaultCommissionRate < 0 || p.DefaultCommissionRate > 1 {
		return errors.New("defaultCommissionRate must be between 0 and 1")
	}
	for _, tier := range p.RefundTiers {
		if tier.MinHours < 0 {
			return errors.New("refund tier minHours must not be negative")
		}
		if tier.Fraction < 0 || tier.Fraction > 1 {
			return errors.New("refund tier fraction must be between 0 and 1")
		}
	}
	if p.MinPayoutAmount < 0 {
		return errors.New("minPayoutAmount must not be negative")
	}
	return nil
}
