package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fanvault/ledger/internal/admin"
	"github.com/fanvault/ledger/internal/alerts"
	"github.com/fanvault/ledger/internal/db"
	"github.com/fanvault/ledger/internal/escrow"
	"github.com/fanvault/ledger/internal/ledger"
	mware "github.com/fanvault/ledger/internal/middleware"
	"github.com/fanvault/ledger/internal/payments"
	"github.com/fanvault/ledger/internal/purchase"
	"github.com/fanvault/ledger/internal/rewards"
	"github.com/fanvault/ledger/internal/rules"
	"github.com/fanvault/ledger/internal/wallet"
	"github.com/fanvault/ledger/internal/withdraw"
)

func main() {
	_ = godotenv.Load()

	// Init subsystems
	db.Init()
	alerts.Init()
	defer alerts.Close()

	// Engine wiring. One store, one rules provider, one reward evaluator
	// shared by every money path.
	store := ledger.NewPGStore(db.Conn)
	provider := rules.NewPGProvider(db.Conn)
	evaluator := rewards.New(store, provider)
	exec := ledger.NewExecutor(store, provider, ledger.WithAfterHook(evaluator))
	escrowSvc := escrow.New(store, provider, escrow.WithAfterHook(evaluator))
	withdrawSvc := withdraw.New(store, provider)

	payH := &payments.Handler{
		Exec: exec,
		OnDeposit: func(userID string, amount int64) {
			if err := alerts.EnqueueDepositCredited(userID, amount); err != nil {
				log.Printf("alerts: deposit notice failed: %v", err)
			}
		},
	}
	walletH := &wallet.Handler{
		Store:    store,
		Withdraw: withdrawSvc,
		OnWithdrawRequested: func(userID string, amount int64) {
			if err := alerts.EnqueueWithdrawalRequested(userID, amount); err != nil {
				log.Printf("alerts: withdrawal notice failed: %v", err)
			}
		},
	}
	purchaseH := &purchase.Handler{Exec: exec}
	escrowH := &escrow.Handler{
		Svc: escrowSvc,
		OnReleased: func(sellerID string, net int64) {
			if err := alerts.EnqueueEscrowReleased(sellerID, net); err != nil {
				log.Printf("alerts: escrow release notice failed: %v", err)
			}
		},
		OnRefunded: func(buyerID string, amount int64) {
			if err := alerts.EnqueueEscrowRefunded(buyerID, amount); err != nil {
				log.Printf("alerts: escrow refund notice failed: %v", err)
			}
		},
	}
	rewardsH := &rewards.Handler{Eval: evaluator}
	adminH := &admin.Handler{Store: store}
	adminWithdrawH := &admin.WithdrawalHandler{
		Svc: withdrawSvc,
		OnCompleted: func(userID string, amount int64) {
			if err := alerts.EnqueueWithdrawalCompleted(userID, amount); err != nil {
				log.Printf("alerts: payout notice failed: %v", err)
			}
		},
		OnFailed: func(userID string, amount int64) {
			if err := alerts.EnqueueWithdrawalFailed(userID, amount); err != nil {
				log.Printf("alerts: payout failure notice failed: %v", err)
			}
		},
	}
	configH := &admin.ConfigHandler{Provider: provider}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Health
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/ready", func(c echo.Context) error {
		if db.Conn == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db not initialized"})
		}
		if err := db.Conn.Ping(context.Background()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Payment provider webhook. Authenticated by signature, not JWT.
	e.POST("/payments/notify", payH.Notify)

	// Authenticated group
	g := e.Group("")
	g.Use(mware.JWTMiddleware)

	// Wallet
	g.GET("/wallet/balance", walletH.Balance)
	g.GET("/wallet/entries", walletH.Entries)
	g.POST("/wallet/topup", payH.TopupInit)
	g.POST("/wallet/withdraw", walletH.RequestWithdraw, mware.RequireRoles("creator", "partner"))

	// Purchases and call billing
	g.POST("/purchases", purchaseH.Purchase)
	g.POST("/calls/settle", purchaseH.SettleCall)

	// Escrow
	g.POST("/escrow/hold", escrowH.Hold)

	// Milestone hooks from the content/profile services
	g.POST("/rewards/content-posted", rewardsH.ContentPosted, mware.RequireRoles("service", "admin"))
	g.POST("/rewards/profile-completed", rewardsH.ProfileCompleted, mware.RequireRoles("service", "admin"))

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(mware.JWTMiddleware)
	adminGroup.Use(mware.AdminGuard)
	adminGroup.GET("/stats", admin.Stats)
	adminGroup.GET("/wallets", adminH.ListWallets)
	adminGroup.GET("/wallets/:id", adminH.Wallet)
	adminGroup.GET("/entries", adminH.RecentEntries)
	adminGroup.GET("/obligations", adminH.Obligations)
	adminGroup.POST("/escrow/:id/release", escrowH.Release)
	adminGroup.POST("/escrow/:id/refund", escrowH.Refund)
	adminGroup.GET("/withdrawals/pending", adminWithdrawH.Pending)
	adminGroup.POST("/withdrawals/:id/complete", adminWithdrawH.Complete)
	adminGroup.POST("/withdrawals/:id/fail", adminWithdrawH.Fail)
	adminGroup.GET("/config", configH.Get)
	adminGroup.PUT("/config", configH.Update)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("API server listening on :%s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
