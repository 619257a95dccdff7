package alerts

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

// Run starts the consumer and blocks. Only the worker binary calls this.
func Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskDepositCredited, handleWalletEvent)
	mux.HandleFunc(TaskWithdrawalRequested, handleWalletEvent)
	mux.HandleFunc(TaskWithdrawalCompleted, handleWalletEvent)
	mux.HandleFunc(TaskWithdrawalFailed, handleWalletEvent)
	mux.HandleFunc(TaskEscrowReleased, handleWalletEvent)
	mux.HandleFunc(TaskEscrowRefunded, handleWalletEvent)
	mux.HandleFunc(TaskAdminAlert, handleAdminAlert)

	server := asynq.NewServer(RedisOpt(), asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
			"alerts": 5,
		},
	})
	return server.Run(mux)
}

func handleWalletEvent(_ context.Context, t *asynq.Task) error {
	var p WalletEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("alerts: %s send failed: %v", t.Type(), err)
		return err
	}
	log.Printf("alerts: %s sent -> user=%s amount=%d", t.Type(), p.UserID, p.Amount)
	return nil
}

func handleAdminAlert(_ context.Context, t *asynq.Task) error {
	var p AdminAlertPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("alerts: admin alert send failed: %v", err)
		return err
	}
	log.Printf("alerts: admin alert sent -> severity=%s", p.Severity)
	return nil
}
