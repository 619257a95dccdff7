package ledger

import "time"

// PlatformAccountID is the reserved id of the singleton platform wallet.
// Commission credits and escrowed funds live here.
const PlatformAccountID = "00000000-0000-0000-0000-000000000001"

// DefaultCurrency is the single supported unit per account.
const DefaultCurrency = "NGN"

// Account is a balance-holding wallet owned by one user or by the platform.
// Balances are integer minor units, never floating point.
type Account struct {
	ID          string    `json:"id"`
	Balance     int64     `json:"balance"`
	Escrow      int64     `json:"escrow"`
	TotalEarned int64     `json:"total_earned"`
	TotalSpent  int64     `json:"total_spent"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

type Kind string

const (
	KindDeposit          Kind = "deposit"
	KindPurchase         Kind = "purchase"
	KindSubscriptionFee  Kind = "subscription_fee"
	KindGift             Kind = "gift"
	KindTicket           Kind = "ticket"
	KindCallFee          Kind = "call_fee"
	KindCommission       Kind = "commission"
	KindCredit           Kind = "credit"
	KindReward           Kind = "reward"
	KindWelcomeBonus     Kind = "welcome_bonus"
	KindWithdrawal       Kind = "withdrawal"
	KindWithdrawalRefund Kind = "withdrawal_refund"
	KindEscrowHold       Kind = "escrow_hold"
	KindEscrowRelease    Kind = "escrow_release"
	KindEscrowRefund     Kind = "escrow_refund"
)

type EntryStatus string

const (
	StatusPending EntryStatus = "pending"
	StatusSuccess EntryStatus = "success"
	StatusFailed  EntryStatus = "failed"
)

// Entry is one immutable record of a single-account balance change. The only
// permitted mutation is the pending -> success|failed settlement transition
// (escrow holds and withdrawal requests).
type Entry struct {
	ID              string      `json:"id"`
	AccountID       string      `json:"account_id"`
	Amount          int64       `json:"amount"` // magnitude, always > 0
	Direction       Direction   `json:"direction"`
	Kind            Kind        `json:"kind"`
	Description     string      `json:"description"`
	Status          EntryStatus `json:"status"`
	CounterpartyRef string      `json:"counterparty_ref"`
	ExternalRef     string      `json:"external_ref,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

type ObligationStatus string

const (
	ObligationHeld     ObligationStatus = "held"
	ObligationReleased ObligationStatus = "released_to_seller"
	ObligationRefunded ObligationStatus = "refunded_to_buyer"
)

// Obligation is money held by the platform between payment and delivery
// confirmation. The sum of all held obligations equals the platform
// account's escrow balance.
type Obligation struct {
	ID          string           `json:"id"`
	BuyerID     string           `json:"buyer_id"`
	SellerID    string           `json:"seller_id"`
	Amount      int64            `json:"amount"`
	Status      ObligationStatus `json:"status"`
	HoldEntryID string           `json:"hold_entry_id"`
	CreatedAt   time.Time        `json:"created_at"`
	SettledAt   *time.Time       `json:"settled_at,omitempty"`
}

// Milestones are the one-time reward flags for a user. The row is owned by
// the profile collaborator; only the reward evaluator writes the flags.
type Milestones struct {
	UserID                string `json:"user_id"`
	HasMadeFirstDeposit   bool   `json:"has_made_first_deposit"`
	HasMadeFirstSale      bool   `json:"has_made_first_sale"`
	HasPostedFirstContent bool   `json:"has_posted_first_content"`
	HasCompletedProfile   bool   `json:"has_completed_profile"`
	ReferredBy            string `json:"referred_by,omitempty"`
	ReferralsCount        int64  `json:"referrals_count"`
	RewardPoints          int64  `json:"reward_points"`
}
