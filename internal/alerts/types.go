package alerts

import "time"

// Task type constants
const (
	TaskDepositCredited     = "wallet:deposit_credited"
	TaskWithdrawalRequested = "wallet:withdrawal_requested"
	TaskWithdrawalCompleted = "wallet:withdrawal_completed"
	TaskWithdrawalFailed    = "wallet:withdrawal_failed"
	TaskEscrowReleased      = "wallet:escrow_released"
	TaskEscrowRefunded      = "wallet:escrow_refunded"
	TaskAdminAlert          = "wallet:admin_alert"
)

// EmailEnvelope is the rendered notification, ready to deliver.
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// WalletEventPayload covers every wallet-side notification: who it concerns
// and how much moved, in minor units.
type WalletEventPayload struct {
	UserID   string        `json:"user_id"`
	Amount   int64         `json:"amount"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// AdminAlertPayload flags something an operator should look at.
type AdminAlertPayload struct {
	Severity string        `json:"severity"` // info|warning|critical
	Message  string        `json:"message"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}
