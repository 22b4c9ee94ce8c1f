package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/cart"
	"github.com/ariefcatur/go-checkout-core.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-core.git/internal/config"
	"github.com/ariefcatur/go-checkout-core.git/internal/history"
	"github.com/ariefcatur/go-checkout-core.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-checkout-core.git/internal/kafka"
	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
	"github.com/ariefcatur/go-checkout-core.git/internal/postgres"
	"github.com/ariefcatur/go-checkout-core.git/internal/redisx"
	"github.com/bsm/redislock"
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
	notifier := &kafkax.Notifier{P: prod, Service: cfg.ServiceName + "-sweeper"}

	recorder := history.NewRecorder(&history.PgStore{DB: db}, log)
	ledger := inventory.NewLedger(&inventory.PgStore{DB: db}, log)
	repo := &orders.PgRepo{DB: db}
	carts := &cart.RedisStore{RDB: rdb}
	factory := orders.NewFactory(repo, ledger, carts, recorder, notifier, log, cfg.OrderNumberPrefix, cfg.ReservationTTL)
	manager := checkout.NewManager(&checkout.PgStore{DB: db}, carts, checkout.NewStructValidator(), factory, ledger, log, cfg.SessionTTL)

	locker := redislock.New(rdb)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	go func() {
		log.WithField("interval", cfg.SweepInterval.String()).Info("sweeper started")
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepOnce(ctx, locker, manager, ledger, log)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down sweeper...")
	cancel()
	prod.Close()
	prod.WaitClosed()
}

// sweepOnce: leader lock di redis biar cuma satu instance yang menyapu
// per interval. Gagal dapat lock -> instance lain lagi jalan, skip.
func sweepOnce(ctx context.Context, locker *redislock.Client, manager *checkout.Manager, ledger *inventory.Ledger, log logrus.FieldLogger) {
	key := fmt.Sprintf(redisx.KeySweepLock, "checkout")
	lock, err := locker.Obtain(ctx, key, 30*time.Second, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return
		}
		log.WithError(err).Warn("sweep lock failed")
		return
	}
	defer func() { _ = lock.Release(ctx) }()

	sessions, err := manager.AbandonExpired(ctx)
	if err != nil {
		log.WithError(err).Warn("session sweep failed")
	}
	reservations, err := ledger.ReleaseExpired(ctx)
	if err != nil {
		log.WithError(err).Warn("reservation sweep failed")
	}
	if sessions > 0 || reservations > 0 {
		log.WithFields(logrus.Fields{
			"sessions_abandoned":    sessions,
			"reservations_released": reservations,
		}).Info("sweep pass done")
	}
}
