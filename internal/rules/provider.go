package rules

import (
	"context"
	"errors"
)

// ErrConfigMissing means no commission configuration exists. Every money
// movement fails closed until an operator seeds one.
var ErrConfigMissing = errors.New("commission config missing")

// Config is the global commission/bonus configuration. Rates are carried as
// basis points so commission math stays in integers end to end.
type Config struct {
	CommissionRateBps int64 `json:"commission_rate_bps"` // 0..10000
	PlatformFee       int64 `json:"platform_fee"`        // flat, minor units

	FirstContentBonus      int64 `json:"first_content_bonus"`
	FirstSaleBonus         int64 `json:"first_sale_bonus"`
	ProfileCompletionBonus int64 `json:"profile_completion_bonus"`
	ReferralBonus          int64 `json:"referral_bonus"`
	WelcomeBonus           int64 `json:"welcome_bonus"`

	WithdrawalMin int64 `json:"withdrawal_min"`
	WithdrawalMax int64 `json:"withdrawal_max"`
}

// Provider exposes the configuration in effect right now. Callers snapshot
// the result once per logical operation so retries stay deterministic.
type Provider interface {
	Current(ctx context.Context) (Config, error)
}

// Static is a fixed-config provider, used by tests and the seeding utility.
type Static struct {
	Config Config
}

func (s Static) Current(context.Context) (Config, error) {
	return s.Config, nil
}

// Missing always fails closed.
type Missing struct{}

func (Missing) Current(context.Context) (Config, error) {
	return Config{}, ErrConfigMissing
}
