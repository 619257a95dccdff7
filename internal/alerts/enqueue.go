package alerts

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

var client *asynq.Client

// RedisOpt builds the Redis connection options from the environment.
func RedisOpt() asynq.RedisClientOpt {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		if host := os.Getenv("REDIS_HOST"); host != "" {
			port := os.Getenv("REDIS_PORT")
			if port == "" {
				port = "6379"
			}
			redisAddr = host + ":" + port
		} else {
			redisAddr = "127.0.0.1:6379"
		}
	}
	return asynq.RedisClientOpt{Addr: redisAddr}
}

// Init creates the shared enqueue client. The API process only enqueues;
// the worker binary runs the consumer.
func Init() {
	client = asynq.NewClient(RedisOpt())
	log.Printf("alerts: client ready (addr=%s)", RedisOpt().Addr)
}

// Close releases the enqueue client.
func Close() {
	if client != nil {
		_ = client.Close()
	}
}

func ensureClient() *asynq.Client {
	if client == nil {
		Init()
	}
	return client
}

func enqueueWalletEvent(taskType, queue, userID string, amount int64, subject, body string) error {
	payload := WalletEventPayload{
		UserID: userID,
		Amount: amount,
		Envelope: EmailEnvelope{
			To:      opsMailbox(),
			Subject: subject,
			Body:    body,
		},
		SentAt: time.Now(),
	}
	b, _ := json.Marshal(payload)
	_, err := ensureClient().Enqueue(asynq.NewTask(taskType, b), asynq.Queue(queue))
	return err
}

// EnqueueDepositCredited records a confirmed top-up.
func EnqueueDepositCredited(userID string, amount int64) error {
	return enqueueWalletEvent(TaskDepositCredited, "emails", userID, amount,
		"Wallet funded",
		fmt.Sprintf("Wallet %s was credited %d minor units from a payment provider deposit.", userID, amount))
}

// EnqueueWithdrawalRequested records a new payout request awaiting review.
func EnqueueWithdrawalRequested(userID string, amount int64) error {
	return enqueueWalletEvent(TaskWithdrawalRequested, "alerts", userID, amount,
		"Withdrawal requested",
		fmt.Sprintf("Wallet %s requested a payout of %d minor units. Review it in the admin queue.", userID, amount))
}

// EnqueueWithdrawalCompleted records a payout sent.
func EnqueueWithdrawalCompleted(userID string, amount int64) error {
	return enqueueWalletEvent(TaskWithdrawalCompleted, "emails", userID, amount,
		"Withdrawal completed",
		fmt.Sprintf("Payout of %d minor units for wallet %s was sent.", amount, userID))
}

// EnqueueWithdrawalFailed records a payout rejection and refund.
func EnqueueWithdrawalFailed(userID string, amount int64) error {
	return enqueueWalletEvent(TaskWithdrawalFailed, "emails", userID, amount,
		"Withdrawal failed",
		fmt.Sprintf("Payout for wallet %s failed. %d minor units were returned to the balance.", userID, amount))
}

// EnqueueEscrowReleased records funds paid out of escrow to a seller.
func EnqueueEscrowReleased(sellerID string, net int64) error {
	return enqueueWalletEvent(TaskEscrowReleased, "emails", sellerID, net,
		"Escrow released",
		fmt.Sprintf("Escrow released: wallet %s received %d minor units net of commission.", sellerID, net))
}

// EnqueueEscrowRefunded records an escrow returned to the buyer.
func EnqueueEscrowRefunded(buyerID string, amount int64) error {
	return enqueueWalletEvent(TaskEscrowRefunded, "emails", buyerID, amount,
		"Escrow refunded",
		fmt.Sprintf("Escrow refunded: wallet %s got back %d minor units.", buyerID, amount))
}

// EnqueueAdminAlert sends an operator alert.
func EnqueueAdminAlert(severity, message string) error {
	payload := AdminAlertPayload{
		Severity: severity,
		Message:  message,
		Envelope: EmailEnvelope{To: opsMailbox(), Subject: "Operator alert", Body: message},
		SentAt:   time.Now(),
	}
	b, _ := json.Marshal(payload)
	_, err := ensureClient().Enqueue(asynq.NewTask(TaskAdminAlert, b), asynq.Queue("alerts"))
	return err
}

func opsMailbox() string {
	if to := os.Getenv("OPS_EMAIL"); to != "" {
		return to
	}
	return "ops@fanvault.local"
}
