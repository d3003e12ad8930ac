package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/shoplane/marketplace-api/internal/auth"
	"github.com/shoplane/marketplace-api/internal/config"
	"github.com/shoplane/marketplace-api/internal/coupon"
	"github.com/shoplane/marketplace-api/internal/events"
	"github.com/shoplane/marketplace-api/internal/httpx"
	"github.com/shoplane/marketplace-api/internal/inventory"
	kafkax "github.com/shoplane/marketplace-api/internal/kafka"
	"github.com/shoplane/marketplace-api/internal/order"
	"github.com/shoplane/marketplace-api/internal/payment"
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

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pPaid := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderPaid, 1024)
	pPaid.Start(ctx)
	pStock := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicStockChanged, 1024)
	pStock.Start(ctx)

	// Services
	ledger := &inventory.Ledger{
		Store:    &inventory.PgStore{DB: db},
		Producer: pStock,
		Service:  cfg.ServiceName,
	}
	holds := &reservation.Manager{Store: &reservation.PgStore{DB: db}}
	workflow := &order.Workflow{
		Store:    &order.Repo{DB: db},
		Holds:    holds,
		Producer: pCreated,
		Hold:     cfg.ReservationHold,
		Service:  cfg.ServiceName,
	}
	settlement := &payment.Settlement{
		Store:    &payment.Repo{DB: db},
		Orders:   &order.Repo{DB: db},
		Holds:    holds,
		Ledger:   ledger,
		Producer: pPaid,
		Service:  cfg.ServiceName,
	}
	engine := &coupon.Engine{Store: &coupon.PgStore{DB: db}}

	// Router & handlers
	router := httpx.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(&auth.RedisProvider{RDB: rdb}))
		(&httpx.OrdersHandler{Workflow: workflow, Redis: rdb}).Register(r)
		(&httpx.PaymentsHandler{Settlement: settlement, Redis: rdb, Secret: cfg.WebhookSecret}).Register(r)
		(&httpx.CouponsHandler{Engine: engine}).Register(r)
		(&httpx.InventoryHandler{Ledger: ledger}).Register(r)
		(&httpx.ReservationsHandler{Manager: holds, Hold: cfg.ReservationHold}).Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	pCreated.Close()
	pPaid.Close()
	pStock.Close()
	cancel()
	pCreated.WaitClosed()
	pPaid.WaitClosed()
	pStock.WaitClosed()
}
