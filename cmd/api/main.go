package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-checkout-core.git/internal/cart"
	"github.com/ariefcatur/go-checkout-core.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-core.git/internal/config"
	"github.com/ariefcatur/go-checkout-core.git/internal/history"
	"github.com/ariefcatur/go-checkout-core.git/internal/httpx"
	"github.com/ariefcatur/go-checkout-core.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-checkout-core.git/internal/kafka"
	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
	"github.com/ariefcatur/go-checkout-core.git/internal/payments"
	"github.com/ariefcatur/go-checkout-core.git/internal/postgres"
	"github.com/ariefcatur/go-checkout-core.git/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
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

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, 10)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer + notifier
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicNotifications, 1024, log)
	prod.Start(ctx)
	notifier := &kafkax.Notifier{P: prod, Service: cfg.ServiceName}

	// Domain wiring
	recorder := history.NewRecorder(&history.PgStore{DB: db}, log)
	ledger := inventory.NewLedger(&inventory.PgStore{DB: db}, log)
	repo := &orders.PgRepo{DB: db}
	carts := &cart.RedisStore{RDB: rdb}

	engine := orders.NewEngine(repo, orders.DefaultRules(repo, ledger, notifier), recorder, log)
	factory := orders.NewFactory(repo, ledger, carts, recorder, notifier, log, cfg.OrderNumberPrefix, cfg.ReservationTTL)
	addrValidator := checkout.NewStructValidator()
	manager := checkout.NewManager(&checkout.PgStore{DB: db}, carts, addrValidator, factory, ledger, log, cfg.SessionTTL)

	maxAmount, err := decimal.NewFromString(cfg.AutoConfirmMaxAmount)
	if err != nil {
		log.WithError(err).Fatal("bad AUTO_CONFIRM_MAX_AMOUNT")
	}
	payClient := payments.NewHTTPClient(cfg.PaymentServiceURL)
	workflow := payments.NewWorkflow(
		&payments.PgStore{DB: db}, payClient, engine, repo, recorder, notifier,
		payments.DefaultAutoRules(maxAmount, cfg.AutoConfirmMinTrust), log,
	)

	// Handlers
	router := httpx.NewRouter()
	(&httpx.CheckoutHandler{Manager: manager, Redis: rdb}).Register(router)
	(&httpx.OrdersHandler{Repo: repo, Engine: engine, Recorder: recorder, Redis: rdb, Addresses: addrValidator}).Register(router)
	(&httpx.PaymentsHandler{Workflow: workflow}).Register(router)
	(&httpx.InventoryHandler{Ledger: ledger, ReservationTTL: cfg.ReservationTTL}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
