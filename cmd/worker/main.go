package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/fanvault/ledger/internal/alerts"
)

func main() {
	_ = godotenv.Load()

	if err := alerts.ConfigureMailerFromEnv(); err != nil {
		log.Printf("worker: mailer not configured, deliveries will fail: %v", err)
	}

	log.Println("worker: consuming alert queues")
	if err := alerts.Run(); err != nil {
		log.Fatalf("worker stopped: %v", err)
	}
}
