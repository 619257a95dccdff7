package rules

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGProvider reads the commission_config singleton row. A missing row fails
// closed: no transfer proceeds without known rates.
type PGProvider struct {
	pool *pgxpool.Pool
}

func NewPGProvider(pool *pgxpool.Pool) *PGProvider {
	return &PGProvider{pool: pool}
}

func (p *PGProvider) Current(ctx context.Context) (Config, error) {
	var cfg Config
	err := p.pool.QueryRow(ctx,
		`SELECT commission_rate_bps, platform_fee,
		        first_content_bonus, first_sale_bonus, profile_completion_bonus,
		        referral_bonus, welcome_bonus,
		        withdrawal_min, withdrawal_max
		 FROM commission_config WHERE singleton`).
		Scan(&cfg.CommissionRateBps, &cfg.PlatformFee,
			&cfg.FirstContentBonus, &cfg.FirstSaleBonus, &cfg.ProfileCompletionBonus,
			&cfg.ReferralBonus, &cfg.WelcomeBonus,
			&cfg.WithdrawalMin, &cfg.WithdrawalMax)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{}, ErrConfigMissing
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save upserts the singleton row. Used by the admin surface and the seeding
// utility.
func (p *PGProvider) Save(ctx context.Context, cfg Config) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO commission_config
		 (singleton, commission_rate_bps, platform_fee,
		  first_content_bonus, first_sale_bonus, profile_completion_bonus,
		  referral_bonus, welcome_bonus, withdrawal_min, withdrawal_max)
		 VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (singleton) DO UPDATE SET
		   commission_rate_bps = EXCLUDED.commission_rate_bps,
		   platform_fee = EXCLUDED.platform_fee,
		   first_content_bonus = EXCLUDED.first_content_bonus,
		   first_sale_bonus = EXCLUDED.first_sale_bonus,
		   profile_completion_bonus = EXCLUDED.profile_completion_bonus,
		   referral_bonus = EXCLUDED.referral_bonus,
		   welcome_bonus = EXCLUDED.welcome_bonus,
		   withdrawal_min = EXCLUDED.withdrawal_min,
		   withdrawal_max = EXCLUDED.withdrawal_max`,
		cfg.CommissionRateBps, cfg.PlatformFee,
		cfg.FirstContentBonus, cfg.FirstSaleBonus, cfg.ProfileCompletionBonus,
		cfg.ReferralBonus, cfg.WelcomeBonus, cfg.WithdrawalMin, cfg.WithdrawalMax)
	return err
}
