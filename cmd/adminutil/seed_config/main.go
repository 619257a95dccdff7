package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/fanvault/ledger/internal/db"
	"github.com/fanvault/ledger/internal/rules"
)

func main() {
	rateBps := flag.Int64("rate-bps", 2000, "commission rate in basis points")
	platformFee := flag.Int64("platform-fee", 0, "flat platform fee in minor units")
	firstContent := flag.Int64("first-content-bonus", 0, "first content bonus in minor units")
	firstSale := flag.Int64("first-sale-bonus", 0, "first sale bonus in minor units")
	profileBonus := flag.Int64("profile-bonus", 0, "profile completion bonus in reward points")
	referralBonus := flag.Int64("referral-bonus", 0, "referral bonus in reward points")
	welcomeBonus := flag.Int64("welcome-bonus", 0, "welcome bonus in minor units")
	withdrawMin := flag.Int64("withdraw-min", 100000, "minimum withdrawal in minor units")
	withdrawMax := flag.Int64("withdraw-max", 100000000, "maximum withdrawal in minor units")
	flag.Parse()

	if *rateBps < 0 || *rateBps > 10000 {
		log.Fatalf("rate-bps must be within [0, 10000], got %d", *rateBps)
	}
	if *withdrawMin <= 0 || *withdrawMax < *withdrawMin {
		log.Fatalf("withdrawal bounds must satisfy 0 < min <= max")
	}

	_ = godotenv.Load()
	db.Init()

	provider := rules.NewPGProvider(db.Conn)
	cfg := rules.Config{
		CommissionRateBps:      *rateBps,
		PlatformFee:            *platformFee,
		FirstContentBonus:      *firstContent,
		FirstSaleBonus:         *firstSale,
		ProfileCompletionBonus: *profileBonus,
		ReferralBonus:          *referralBonus,
		WelcomeBonus:           *welcomeBonus,
		WithdrawalMin:          *withdrawMin,
		WithdrawalMax:          *withdrawMax,
	}
	if err := provider.Save(context.Background(), cfg); err != nil {
		log.Fatalf("failed to save commission config: %v", err)
	}

	fmt.Printf("Commission config seeded: rate=%dbps fee=%d withdraw=[%d, %d]\n",
		cfg.CommissionRateBps, cfg.PlatformFee, cfg.WithdrawalMin, cfg.WithdrawalMax)
}
