package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ms-invoicing/internal/analytics"
	"ms-invoicing/internal/cache"
	"ms-invoicing/internal/catalog"
	"ms-invoicing/internal/config"
	"ms-invoicing/internal/invoice"
	"ms-invoicing/internal/kafka"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"
	"ms-invoicing/internal/registration"
	"ms-invoicing/internal/sse"
	"ms-invoicing/internal/store"
	"ms-invoicing/internal/students"
	"ms-invoicing/internal/web"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type ledgerPublisher interface {
	PublishLedgerEvent(ctx context.Context, evt models.LedgerEvent) error
}

// connectCache returns nil when Redis is disabled or unreachable; a nil
// cache always misses, so stats are computed from the store instead.
func connectCache(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*cache.StatsCache, func()) {
	if !cfg.Enabled {
		log.Info("REDIS", "Stats cache disabled")
		return nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	statsCache := cache.NewStatsCache(client, cfg.StatsTTL)
	if err := statsCache.Ping(ctx); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis unreachable at %s, continuing without stats cache: %v", cfg.Addr, err))
		client.Close()
		return nil, func() {}
	}

	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return statsCache, func() { client.Close() }
}

// startLedgerEvents picks where ledger events go. With Kafka every instance
// consumes every event into its own hub; without it the hub is fed directly.
func startLedgerEvents(ctx context.Context, cfg config.KafkaConfig, hub *sse.LedgerHub, log *logger.Logger) (ledgerPublisher, func()) {
	if !cfg.Enabled {
		log.Info("KAFKA", "Kafka disabled, ledger events stay in process")
		return hub, func() {}
	}

	topics := []string{cfg.Topics.RegistrationCreated, cfg.Topics.RegistrationPaid}
	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, topics, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}

	producer := kafka.NewProducer(cfg.Brokers, cfg.Topics, log)
	log.Info("KAFKA", "Kafka producer initialized successfully")

	// a group per instance, so that every instance sees every event
	groupID := fmt.Sprintf("%s-%s", cfg.GroupID, uuid.NewString()[:8])
	consumer := kafka.NewConsumer(cfg.Brokers, topics, groupID, log)
	go func() {
		if err := consumer.Start(ctx, hub.Broadcast); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Ledger consumer stopped: %v", err))
		}
	}()

	return producer, func() {
		if err := consumer.Close(); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Failed to close consumer: %v", err))
		}
		if err := producer.Close(); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
}

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.Options{Dir: cfg.Log.Dir, Service: "invoicing", Level: cfg.Log.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", "Starting invoicing service initialization")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rules, err := store.ParseRules(cfg.Store.Deny)
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	if len(cfg.Store.Deny) > 0 {
		log.LogSecurity("STORE_RULES", "denying "+rules.String())
	}

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open %s store: %v", cfg.Database.Driver, err))
	}
	defer db.Close()
	log.Info("DATABASE", fmt.Sprintf("✅ %s store ready, schema up to date", cfg.Database.Driver))
	st := store.New(db, rules)

	statsCache, closeCache := connectCache(ctx, cfg.Redis, log)
	defer closeCache()

	hub := sse.NewLedgerHub()
	publisher, closeEvents := startLedgerEvents(ctx, cfg.Kafka, hub, log)
	defer closeEvents()

	studentService := students.NewService(st.Students, statsCache, log)
	catalogService := catalog.NewService(st.Events, st.Segments, statsCache, log)
	registrationService := registration.NewService(st, publisher, statsCache, log, cfg.Invoice.Prefix)
	invoiceService := invoice.NewService(st, publisher, statsCache, log, cfg.Invoice)
	analyticsService := analytics.NewService(analytics.NewDB(db, rules), studentService, catalogService, statsCache, log)

	log.Info("HTTP", "Setting up router and middleware")
	handler, err := web.NewRouter(web.Deps{
		Students:     studentService,
		Catalog:      catalogService,
		Registration: registrationService,
		Invoices:     invoiceService,
		Analytics:    analyticsService,
		Hub:          hub,
		Logger:       log,
		Web:          cfg.Web,
	})
	if err != nil {
		log.Fatal("HTTP", err.Error())
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	// ledger streams never go idle, so end them when shutdown starts
	server.RegisterOnShutdown(hub.Close)

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Invoicing service running on %s", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Invoicing service shutdown complete")
	}
}
