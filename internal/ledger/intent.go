package ledger

import "fmt"

// Payee is one recipient of a transfer and its share of the net amount in
// basis points. Shares across all payees must sum to exactly 10000.
type Payee struct {
	AccountID string `json:"account_id"`
	ShareBps  int64  `json:"share_bps"`
}

// Intent is the executor's input contract: one logical money movement before
// commission and bonus computation. It is never persisted.
type Intent struct {
	// PayerID is empty for pure credits (deposits, rewards): money entering
	// the system rather than moving between members.
	PayerID        string
	Payees         []Payee
	GrossAmount    int64
	Kind           Kind
	Description    string
	IdempotencyKey string
	ContentRef     string
}

// CreditIntent builds a single-payee credit with no payer, the shape used by
// deposit confirmations.
func CreditIntent(accountID string, amount int64, kind Kind, description, idempotencyKey string) Intent {
	return Intent{
		Payees:         []Payee{{AccountID: accountID, ShareBps: totalBps}},
		GrossAmount:    amount,
		Kind:           kind,
		Description:    description,
		IdempotencyKey: idempotencyKey,
	}
}

// Validate enforces the intent-level policy: positive amount, no self-trade,
// shares summing to exactly 100%. Runs at intent creation, outside any
// atomic unit.
func (in Intent) Validate() error {
	if in.GrossAmount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidIntent)
	}
	if len(in.Payees) == 0 {
		return fmt.Errorf("%w: at least one payee required", ErrInvalidIntent)
	}
	if in.Kind == "" {
		return fmt.Errorf("%w: kind required", ErrInvalidIntent)
	}
	var sum int64
	for _, p := range in.Payees {
		if p.AccountID == "" {
			return fmt.Errorf("%w: payee account id required", ErrInvalidIntent)
		}
		if p.ShareBps <= 0 {
			return fmt.Errorf("%w: payee share must be positive", ErrInvalidIntent)
		}
		if in.PayerID != "" && p.AccountID == in.PayerID {
			return fmt.Errorf("%w: payer cannot be a payee", ErrInvalidIntent)
		}
		sum += p.ShareBps
	}
	if sum != totalBps {
		return fmt.Errorf("%w: payee shares sum to %d bps, want %d", ErrInvalidIntent, sum, totalBps)
	}
	return nil
}

// hasPayer reports whether the intent moves money between members, which is
// what makes it commissionable.
func (in Intent) hasPayer() bool { return in.PayerID != "" }
