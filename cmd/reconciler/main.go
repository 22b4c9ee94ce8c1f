package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/config"
	"github.com/ariefcatur/go-checkout-core.git/internal/history"
	"github.com/ariefcatur/go-checkout-core.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-checkout-core.git/internal/kafka"
	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
	"github.com/ariefcatur/go-checkout-core.git/internal/payments"
	"github.com/ariefcatur/go-checkout-core.git/internal/postgres"
	"github.com/ariefcatur/go-checkout-core.git/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config load")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, 4)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicNotifications, 256, log)
	prod.Start(ctx)
	notifier := &kafkax.Notifier{P: prod, Service: cfg.ServiceName + "-reconciler"}

	recorder := history.NewRecorder(&history.PgStore{DB: db}, log)
	ledger := inventory.NewLedger(&inventory.PgStore{DB: db}, log)
	repo := &orders.PgRepo{DB: db}
	engine := orders.NewEngine(repo, orders.DefaultRules(repo, ledger, notifier), recorder, log)

	rec := &payments.Reconciler{
		Engine:      engine,
		Orders:      repo,
		Redis:       rdb,
		Log:         log,
		ServiceName: cfg.ServiceName + "-reconciler",
	}

	group := getenv("RECONCILER_GROUP", "payment-reconciler")
	workers := mustAtoi(os.Getenv("RECONCILER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicNotifications, workers, log)

	go func() {
		log.WithFields(logrus.Fields{"group": group, "workers": workers}).Info("reconciler consumer started")
		if err := cons.Start(ctx, rec.HandlePaymentEvent); err != nil {
			log.WithError(err).Error("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down reconciler...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
