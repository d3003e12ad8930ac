package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shoplane/marketplace-api/internal/config"
	"github.com/shoplane/marketplace-api/internal/events"
	kafkax "github.com/shoplane/marketplace-api/internal/kafka"
	"github.com/shoplane/marketplace-api/internal/mail"
	"github.com/shoplane/marketplace-api/internal/notify"
	"github.com/shoplane/marketplace-api/internal/postgres"
	"github.com/shoplane/marketplace-api/internal/redisx"
	"github.com/shoplane/marketplace-api/internal/reservation"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Notification consumers
	svc := &notify.Service{Redis: rdb, Sender: mail.LogSender{}}

	group := getenv("NOTIFY_GROUP", "notify-svc")
	created := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicOrderCreated, cfg.ConsumerWorkers)
	paid := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicOrderPaid, cfg.ConsumerWorkers)

	go func() {
		log.Printf("notify consumer started: group=%s topic=%s", group, events.TopicOrderCreated)
		if err := created.Start(ctx, svc.HandleOrderCreated); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()
	go func() {
		log.Printf("notify consumer started: group=%s topic=%s", group, events.TopicOrderPaid)
		if err := paid.Start(ctx, svc.HandleOrderPaid); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// Expired-hold sweeper
	mgr := &reservation.Manager{Store: &reservation.PgStore{DB: db}}
	sweeper := &reservation.Sweeper{Manager: mgr, Interval: cfg.SweepInterval}
	sweeper.Start(ctx)

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down worker...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
