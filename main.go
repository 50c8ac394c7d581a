package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/config"
	"github.com/NomadCrew/nomad-crew-settlement/db"
	"github.com/NomadCrew/nomad-crew-settlement/handlers"
	"github.com/NomadCrew/nomad-crew-settlement/internal/events"
	"github.com/NomadCrew/nomad-crew-settlement/internal/fx"
	"github.com/NomadCrew/nomad-crew-settlement/internal/payment"
	"github.com/NomadCrew/nomad-crew-settlement/internal/store"
	"github.com/NomadCrew/nomad-crew-settlement/internal/store/memstore"
	"github.com/NomadCrew/nomad-crew-settlement/internal/store/postgres"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/NomadCrew/nomad-crew-settlement/middleware"
	settlementSvc "github.com/NomadCrew/nomad-crew-settlement/models/settlement/service"
	"github.com/NomadCrew/nomad-crew-settlement/router"
	"github.com/NomadCrew/nomad-crew-settlement/services"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flags := config.GetFeatureFlags()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Storage
	var (
		st   store.Store
		pool *pgxpool.Pool
	)
	switch cfg.Database.Driver {
	case config.DriverMemory:
		st = memstore.New()
	default:
		if cfg.Database.RunMigrations {
			if err := db.RunMigrations(cfg.Database.URL()); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
		pool, err = config.InitPostgresPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		st = postgres.NewStore(pool)
	}

	// Redis backs event publishing and the FX rate cache; both are optional.
	var redisClient *redis.Client
	if flags.EnableEventPublishing || cfg.FX.CacheEnabled {
		redisClient, err = config.InitRedis(&cfg.Redis)
		switch {
		case err == nil:
			defer func() { _ = redisClient.Close() }()
		case cfg.IsProduction():
			log.Fatalf("Failed to connect to Redis: %v", err)
		default:
			log.Warnw("Redis unavailable; event publishing and FX caching disabled", "error", err)
			redisClient = nil
		}
	}

	var publisher types.EventPublisher
	if redisClient != nil && flags.EnableEventPublishing {
		publisher = events.NewRedisPublisher(redisClient,
			time.Duration(cfg.EventService.PublishTimeoutSeconds)*time.Second)
	}

	// FX
	fxOpts := []fx.Option{}
	if cfg.FX.EODAPIURL != "" {
		fxOpts = append(fxOpts, fx.WithRateSource(fx.NewEODClient(
			cfg.FX.EODAPIURL, cfg.FX.APIKey, time.Duration(cfg.FX.TimeoutSeconds)*time.Second)))
	}
	if redisClient != nil && cfg.FX.CacheEnabled {
		fxOpts = append(fxOpts, fx.WithRateCache(fx.NewRedisRateCache(redisClient)))
	}
	if cfg.FX.RatesFile != "" {
		table, err := fx.LoadRateTable(cfg.FX.RatesFile)
		if err != nil {
			log.Fatalf("Failed to load FX rate table: %v", err)
		}
		fxOpts = append(fxOpts, fx.WithRateTable(table))
	}
	fxProvider := fx.NewProvider(&cfg.Payment, fxOpts...)

	// Payments
	realGateway := payment.NewHTTPGateway(
		cfg.Payment.APIURL,
		cfg.Payment.APIKey,
		time.Duration(cfg.Payment.TimeoutSeconds)*time.Second,
		payment.WithReturnURL(cfg.Payment.ReturnURL),
	)
	gateway := payment.NewRouter(realGateway, payment.NewMockGateway(), cfg.Server.Environment, cfg.Payment, flags)

	workerPool := services.NewWorkerPool(cfg.WorkerPool)
	workerPool.Start()

	settlementService := settlementSvc.NewSettlementService(st, fxProvider, publisher, workerPool)
	paymentService := settlementSvc.NewPaymentService(st, fxProvider, gateway, publisher, workerPool)
	statusCoordinator := settlementSvc.NewStatusCoordinator(st.Events(), publisher, workerPool)

	// Literal nils keep the health checks from pinging an unset dependency.
	var healthService *services.HealthService
	switch {
	case pool != nil && redisClient != nil:
		healthService = services.NewHealthService(pool, redisClient, cfg.Server.Version)
	case pool != nil:
		healthService = services.NewHealthService(pool, nil, cfg.Server.Version)
	case redisClient != nil:
		healthService = services.NewHealthService(nil, redisClient, cfg.Server.Version)
	default:
		healthService = services.NewHealthService(nil, nil, cfg.Server.Version)
	}

	validator, err := middleware.NewJWTValidator(&cfg.Server)
	if err != nil {
		log.Fatalf("Failed to create JWT validator: %v", err)
	}

	r := router.SetupRouter(router.Dependencies{
		Config:             cfg,
		JWTValidator:       validator,
		SettlementHandler:  handlers.NewSettlementHandler(settlementService),
		PaymentHandler:     handlers.NewPaymentHandler(paymentService),
		EventStatusHandler: handlers.NewEventStatusHandler(statusCoordinator),
		HealthHandler:      handlers.NewHealthHandler(healthService),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownTimeout := time.Duration(cfg.WorkerPool.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		log.Warnw("Worker pool did not drain before timeout", "error", err)
	}
	log.Info("Server stopped")
}
