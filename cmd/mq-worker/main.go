package main // mq-worker consumes notification dispatch events

import (
	"log"
	"os"

	"github.com/joho/godotenv" // .env loading for local development

	"github.com/iliyamo/room-reservation/internal/queue"
)

// The worker runs next to the API server and drains the
// notification.dispatch queue. It blocks until the broker connection
// is lost beyond recovery.
func main() {
	_ = godotenv.Load()
	if err := queue.StartNotificationConsumer(os.Getenv("RABBITMQ_URL")); err != nil {
		log.Fatalf("notification consumer stopped: %v", err)
	}
}
