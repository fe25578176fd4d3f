// Package app собирает зависимости сервиса заказов и управляет их жизненным циклом.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orders-ms/internal/health"
	"github.com/vladislavdragonenkov/orders-ms/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders-ms/internal/messaging/rabbit"
	"github.com/vladislavdragonenkov/orders-ms/internal/metrics"
	"github.com/vladislavdragonenkov/orders-ms/internal/service/orders"
	"github.com/vladislavdragonenkov/orders-ms/internal/service/outbox"
	"github.com/vladislavdragonenkov/orders-ms/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders-ms/internal/storage/postgres"
	"github.com/vladislavdragonenkov/orders-ms/internal/version"
)

// Run поднимает хранилище, транспорт и фоновые воркеры и блокируется
// до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	healthHandler := healthcheck.NewHandler(version.String())

	var (
		repo       domain.OrderRepository
		outboxRepo domain.OutboxRepository
		store      *postgres.Store
	)
	switch cfg.Storage.Driver {
	case "postgres":
		var err error
		store, err = postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("failed to close postgres store")
			}
		}()

		if err := store.MigrateUp(ctx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		repo = postgres.NewOrderRepository(store)
		outboxRepo = postgres.NewOutboxRepository(store)

		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}))
		logger.Info("postgres storage initialized")
	case "memory":
		memOutbox := memory.NewOutboxRepository()
		repo = memory.NewOrderRepository(memOutbox)
		outboxRepo = memOutbox
		logger.Warn("using in-memory storage, data will not survive a restart")
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	rabbitClient, err := rabbit.Connect(cfg.Rabbit.URL)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer func() {
		if err := rabbitClient.Close(); err != nil {
			logger.WithError(err).Warn("failed to close rabbitmq client")
		}
	}()
	healthHandler.RegisterChecker("rabbitmq", healthcheck.NewSimpleChecker("rabbitmq", rabbitClient.Ping))

	rpcMetrics := metrics.NewRPCMetrics()

	catalogClient, err := rabbit.NewCatalogClient(
		rabbitClient.Channel(),
		rabbit.WithCatalogQueue(cfg.Rabbit.CatalogQueue),
		rabbit.WithCatalogTimeout(cfg.Rabbit.CatalogTimeout),
		rabbit.WithCatalogMetrics(rpcMetrics),
	)
	if err != nil {
		return fmt.Errorf("init catalog client: %w", err)
	}

	svc := orders.NewService(repo, catalogClient, logger.WithField("layer", "service"))

	router := rabbit.NewRouter(
		rabbitClient.Channel(),
		rabbit.WithPrefetch(cfg.Rabbit.Prefetch),
		rabbit.WithCallTimeout(cfg.Rabbit.CallTimeout),
		rabbit.WithRPCMetrics(rpcMetrics),
	)
	rabbit.NewOrderHandlers(svc).Register(router)
	if err := router.Start(ctx); err != nil {
		return fmt.Errorf("start rpc router: %w", err)
	}
	logger.Info("rpc router started")

	// Kafka-egress опционален: без него события копятся в outbox.
	var kafkaProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		kafkaProducer, err = kafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer func() {
			if err := kafkaProducer.Close(); err != nil {
				logger.WithError(err).Warn("failed to close kafka producer")
			}
		}()

		publisher := kafka.NewOutboxPublisher(kafkaProducer, cfg.Kafka.TopicEvents)
		worker := outbox.NewWorker(
			outboxRepo,
			publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithPollInterval(cfg.Outbox.PollInterval),
			outbox.WithBatchSize(cfg.Outbox.BatchSize),
			outbox.WithMaxAttempts(cfg.Outbox.MaxAttempts),
		)
		go worker.Run(ctx)
		logger.WithField("brokers", cfg.Kafka.Brokers).Info("kafka producer and outbox worker started")
	}

	metricsSrv := startMetricsServer(ctx, cfg.App.HTTPAddr, logger, healthHandler)

	logger.WithField("version", version.String()).Info("orders service started")
	<-ctx.Done()

	logger.Info("shutdown signal received")
	shutdownHTTP(metricsSrv, logger)
	return ctx.Err()
}

// startMetricsServer запускает HTTP-обработчики /metrics, /healthz и /livez.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
