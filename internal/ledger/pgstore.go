package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore runs atomic units as serializable Postgres transactions. Conflicts
// surface as SQLSTATE 40001/40P01 and are mapped to ErrSerialization for the
// retry wrapper; the (account_id, external_ref) unique index maps 23505 to
// ErrDuplicateEntry for the idempotency guard.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Atomic(ctx context.Context, fn func(ops Ops) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgOps{tx: tx}); err != nil {
		return mapPGError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPGError(err)
	}
	return nil
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return ErrSerialization
		case "23505":
			return ErrDuplicateEntry
		}
	}
	return err
}

type pgOps struct {
	tx pgx.Tx
}

func (o *pgOps) Account(ctx context.Context, id string) (Account, error) {
	return scanAccount(o.tx.QueryRow(ctx,
		`SELECT user_id, balance, escrow, total_earned, total_spent, currency, created_at
		 FROM wallets WHERE user_id = $1`, id))
}

func (o *pgOps) EnsureAccount(ctx context.Context, id string) (Account, error) {
	_, err := o.tx.Exec(ctx,
		`INSERT INTO wallets (user_id, balance, escrow, total_earned, total_spent, currency)
		 VALUES ($1, 0, 0, 0, 0, $2)
		 ON CONFLICT (user_id) DO NOTHING`, id, DefaultCurrency)
	if err != nil {
		return Account{}, err
	}
	return o.Account(ctx, id)
}

func (o *pgOps) ApplyBalance(ctx context.Context, id string, delta int64) error {
	ct, err := o.tx.Exec(ctx,
		`UPDATE wallets SET balance = balance + $1 WHERE user_id = $2 AND balance + $1 >= 0`,
		delta, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		if _, err := o.Account(ctx, id); errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return ErrInsufficientFunds
	}
	return nil
}

func (o *pgOps) ApplyEscrow(ctx context.Context, id string, delta int64) error {
	ct, err := o.tx.Exec(ctx,
		`UPDATE wallets SET escrow = escrow + $1 WHERE user_id = $2 AND escrow + $1 >= 0`,
		delta, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		if _, err := o.Account(ctx, id); errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return ErrInvalidState
	}
	return nil
}

func (o *pgOps) AddLifetime(ctx context.Context, id string, earned, spent int64) error {
	_, err := o.tx.Exec(ctx,
		`UPDATE wallets SET total_earned = total_earned + $1, total_spent = total_spent + $2
		 WHERE user_id = $3`, earned, spent, id)
	return err
}

func (o *pgOps) AppendEntry(ctx context.Context, e Entry) error {
	_, err := o.tx.Exec(ctx,
		`INSERT INTO ledger_entries
		 (id, account_id, amount, direction, kind, description, status, counterparty_ref, external_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)`,
		e.ID, e.AccountID, e.Amount, e.Direction, e.Kind, e.Description, e.Status,
		e.CounterpartyRef, e.ExternalRef, e.CreatedAt)
	return err
}

func (o *pgOps) EntryByID(ctx context.Context, id string) (Entry, error) {
	return scanEntry(o.tx.QueryRow(ctx, selectEntry+` WHERE id = $1`, id))
}

func (o *pgOps) EntryByExternalRef(ctx context.Context, accountID, externalRef string) (Entry, error) {
	return scanEntry(o.tx.QueryRow(ctx,
		selectEntry+` WHERE account_id = $1 AND external_ref = $2`, accountID, externalRef))
}

func (o *pgOps) EntriesByCounterpartyRef(ctx context.Context, ref string) ([]Entry, error) {
	rows, err := o.tx.Query(ctx,
		selectEntry+` WHERE counterparty_ref = $1 ORDER BY created_at, id`, ref)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (o *pgOps) SetEntryStatus(ctx context.Context, id string, from, to EntryStatus) error {
	ct, err := o.tx.Exec(ctx,
		`UPDATE ledger_entries SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		if _, err := o.EntryByID(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrInvalidState
	}
	return nil
}

func (o *pgOps) CreateObligation(ctx context.Context, ob Obligation) error {
	_, err := o.tx.Exec(ctx,
		`INSERT INTO escrow_obligations (id, buyer_id, seller_id, amount, status, hold_entry_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ob.ID, ob.BuyerID, ob.SellerID, ob.Amount, ob.Status, ob.HoldEntryID, ob.CreatedAt)
	return err
}

func (o *pgOps) Obligation(ctx context.Context, id string) (Obligation, error) {
	return scanObligation(o.tx.QueryRow(ctx, selectObligation+` WHERE id = $1`, id))
}

func (o *pgOps) SettleObligation(ctx context.Context, id string, to ObligationStatus) error {
	ct, err := o.tx.Exec(ctx,
		`UPDATE escrow_obligations SET status = $1, settled_at = NOW()
		 WHERE id = $2 AND status = $3`, to, id, ObligationHeld)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		if _, err := o.Obligation(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrInvalidState
	}
	return nil
}

func (o *pgOps) Milestones(ctx context.Context, userID string) (Milestones, error) {
	var m Milestones
	err := o.tx.QueryRow(ctx,
		`SELECT user_id, has_made_first_deposit, has_made_first_sale, has_posted_first_content,
		        has_completed_profile, COALESCE(referred_by, ''), referrals_count, reward_points
		 FROM milestones WHERE user_id = $1`, userID).
		Scan(&m.UserID, &m.HasMadeFirstDeposit, &m.HasMadeFirstSale, &m.HasPostedFirstContent,
			&m.HasCompletedProfile, &m.ReferredBy, &m.ReferralsCount, &m.RewardPoints)
	if errors.Is(err, pgx.ErrNoRows) {
		return Milestones{UserID: userID}, nil
	}
	if err != nil {
		return Milestones{}, err
	}
	return m, nil
}

func (o *pgOps) SaveMilestones(ctx context.Context, m Milestones) error {
	_, err := o.tx.Exec(ctx,
		`INSERT INTO milestones
		 (user_id, has_made_first_deposit, has_made_first_sale, has_posted_first_content,
		  has_completed_profile, referred_by, referrals_count, reward_points)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		 ON CONFLICT (user_id) DO UPDATE SET
		   has_made_first_deposit = EXCLUDED.has_made_first_deposit,
		   has_made_first_sale = EXCLUDED.has_made_first_sale,
		   has_posted_first_content = EXCLUDED.has_posted_first_content,
		   has_completed_profile = EXCLUDED.has_completed_profile,
		   referrals_count = EXCLUDED.referrals_count,
		   reward_points = EXCLUDED.reward_points`,
		m.UserID, m.HasMadeFirstDeposit, m.HasMadeFirstSale, m.HasPostedFirstContent,
		m.HasCompletedProfile, m.ReferredBy, m.ReferralsCount, m.RewardPoints)
	return err
}

// Reporting reads, pool-backed.

func (s *PGStore) AccountByID(ctx context.Context, id string) (Account, error) {
	return scanAccount(s.pool.QueryRow(ctx,
		`SELECT user_id, balance, escrow, total_earned, total_spent, currency, created_at
		 FROM wallets WHERE user_id = $1`, id))
}

func (s *PGStore) Accounts(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, balance, escrow, total_earned, total_spent, currency, created_at
		 FROM wallets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) AccountEntries(ctx context.Context, accountID string, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		selectEntry+` WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (s *PGStore) RecentEntries(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		selectEntry+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (s *PGStore) PendingWithdrawals(ctx context.Context) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		selectEntry+` WHERE kind = $1 AND status = $2 ORDER BY created_at`,
		KindWithdrawal, StatusPending)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (s *PGStore) ObligationsByStatus(ctx context.Context, status ObligationStatus) ([]Obligation, error) {
	rows, err := s.pool.Query(ctx,
		selectObligation+` WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Obligation
	for rows.Next() {
		ob, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ob)
	}
	return out, rows.Err()
}

const selectEntry = `SELECT id, account_id, amount, direction, kind, description, status,
	counterparty_ref, COALESCE(external_ref, ''), created_at FROM ledger_entries`

const selectObligation = `SELECT id, buyer_id, seller_id, amount, status, hold_entry_id,
	created_at, settled_at FROM escrow_obligations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Balance, &a.Escrow, &a.TotalEarned, &a.TotalSpent, &a.Currency, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.AccountID, &e.Amount, &e.Direction, &e.Kind, &e.Description,
		&e.Status, &e.CounterpartyRef, &e.ExternalRef, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func scanObligation(row rowScanner) (Obligation, error) {
	var ob Obligation
	err := row.Scan(&ob.ID, &ob.BuyerID, &ob.SellerID, &ob.Amount, &ob.Status,
		&ob.HoldEntryID, &ob.CreatedAt, &ob.SettledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Obligation{}, ErrNotFound
	}
	if err != nil {
		return Obligation{}, err
	}
	return ob, nil
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
