package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres
func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
	}

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureWalletsTable()
	ensureLedgerEntriesTable()
	ensureEscrowObligationsTable()
	ensureCommissionConfigTable()
	ensureMilestonesTable()
}

// ensureWalletsTable creates the wallets table if missing
func ensureWalletsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS wallets (
            user_id UUID PRIMARY KEY,
            balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
            escrow BIGINT NOT NULL DEFAULT 0 CHECK (escrow >= 0),
            total_earned BIGINT NOT NULL DEFAULT 0,
            total_spent BIGINT NOT NULL DEFAULT 0,
            currency TEXT NOT NULL DEFAULT 'NGN',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to create wallets table: %v", err)
	}
}

// ensureLedgerEntriesTable creates the append-only entries table. The partial
// unique index on (account_id, external_ref) is what makes webhook replays
// collide instead of double-crediting.
func ensureLedgerEntriesTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS ledger_entries (
            id UUID PRIMARY KEY,
            account_id UUID NOT NULL,
            amount BIGINT NOT NULL CHECK (amount > 0),
            direction TEXT NOT NULL CHECK (direction IN ('debit','credit')),
            kind TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL CHECK (status IN ('pending','success','failed')),
            counterparty_ref TEXT NOT NULL,
            external_ref TEXT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_entries_account_created ON ledger_entries(account_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_entries_counterparty ON ledger_entries(counterparty_ref);
        CREATE INDEX IF NOT EXISTS idx_entries_pending_withdrawals ON ledger_entries(status) WHERE kind = 'withdrawal' AND status = 'pending';
        CREATE UNIQUE INDEX IF NOT EXISTS uq_entries_account_external_ref ON ledger_entries(account_id, external_ref) WHERE external_ref IS NOT NULL;
    `)
	if err != nil {
		log.Printf("failed to create ledger_entries table: %v", err)
	}
}

// ensureEscrowObligationsTable creates the obligations table, indexed by
// status for settlement sweeps
func ensureEscrowObligationsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS escrow_obligations (
            id TEXT PRIMARY KEY,
            buyer_id UUID NOT NULL,
            seller_id UUID NOT NULL,
            amount BIGINT NOT NULL CHECK (amount > 0),
            status TEXT NOT NULL CHECK (status IN ('held','released_to_seller','refunded_to_buyer')),
            hold_entry_id UUID NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            settled_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_obligations_status ON escrow_obligations(status);
    `)
	if err != nil {
		log.Printf("failed to create escrow_obligations table: %v", err)
	}
}

// ensureCommissionConfigTable creates the singleton config table. The row
// itself is seeded by cmd/adminutil/seed_config — transfers fail closed
// until it exists.
func ensureCommissionConfigTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS commission_config (
            singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
            commission_rate_bps BIGINT NOT NULL CHECK (commission_rate_bps BETWEEN 0 AND 10000),
            platform_fee BIGINT NOT NULL DEFAULT 0 CHECK (platform_fee >= 0),
            first_content_bonus BIGINT NOT NULL DEFAULT 0,
            first_sale_bonus BIGINT NOT NULL DEFAULT 0,
            profile_completion_bonus BIGINT NOT NULL DEFAULT 0,
            referral_bonus BIGINT NOT NULL DEFAULT 0,
            welcome_bonus BIGINT NOT NULL DEFAULT 0,
            withdrawal_min BIGINT NOT NULL DEFAULT 0,
            withdrawal_max BIGINT NOT NULL DEFAULT 0
        )`)
	if err != nil {
		log.Printf("failed to create commission_config table: %v", err)
	}
}

// ensureMilestonesTable creates the per-user milestone flags. referred_by is
// written by the profile service; the reward evaluator owns the rest.
func ensureMilestonesTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS milestones (
            user_id UUID PRIMARY KEY,
            has_made_first_deposit BOOLEAN NOT NULL DEFAULT FALSE,
            has_made_first_sale BOOLEAN NOT NULL DEFAULT FALSE,
            has_posted_first_content BOOLEAN NOT NULL DEFAULT FALSE,
            has_completed_profile BOOLEAN NOT NULL DEFAULT FALSE,
            referred_by UUID NULL,
            referrals_count BIGINT NOT NULL DEFAULT 0,
            reward_points BIGINT NOT NULL DEFAULT 0
        )`)
	if err != nil {
		log.Printf("failed to create milestones table: %v", err)
	}
}
