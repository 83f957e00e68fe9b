package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vidora/vidora-backend/config"
	"github.com/vidora/vidora-backend/pkg/helpers"
	"github.com/vidora/vidora-backend/pkg/media"
)

// media_worker drains the media cleanup queue and deletes orphaned objects
// (replaced avatars and cover images) from the bucket.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-media-worker", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQMediaQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.GCSBucket == "" {
		log.Fatal("GCS bucket not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}
	if _, err := ch.QueueDeclare(cfg.RabbitMQMediaQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQMediaQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx := context.Background()
	gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
	if err != nil {
		log.Fatalf("gcs client: %v", err)
	}
	defer func() { _ = gcsClient.Close() }()
	store := helpers.NewGCSMedia(gcsClient, cfg.GCSBucket)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			var job media.CleanupJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				logger.WithError(err).Warn("bad cleanup message")
				_ = msg.Nack(false, false)
				continue
			}
			if job.ObjectURL == "" {
				_ = msg.Ack(false)
				continue
			}

			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := store.DeleteByURL(c, job.ObjectURL)
			cancel()
			if err != nil {
				logger.WithError(err).WithField("object_url", job.ObjectURL).Warn("cleanup delete failed")
				// requeue once; the broker drops it on the second failure
				_ = msg.Nack(false, !msg.Redelivered)
				continue
			}
			logger.WithField("object_url", job.ObjectURL).Info("deleted orphaned media object")
			_ = msg.Ack(false)
		}
	}()

	logger.Infof("media worker consuming from %q", cfg.RabbitMQMediaQueue)
	<-stop
	logger.Info("shutting down media worker")
	_ = ch.Close()
	<-done
}
