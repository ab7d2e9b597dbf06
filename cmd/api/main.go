package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"game-economy-service/config"
	httpadapter "game-economy-service/internal/adapter/http"
	"game-economy-service/internal/adapter/storage/postgres"
	redisadapter "game-economy-service/internal/adapter/storage/redis"
	"game-economy-service/internal/core/ports"
	"game-economy-service/internal/service"
	"game-economy-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer pool.Close()

	redisClient, err := redisadapter.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()

	// Repositories
	balanceRepo := postgres.NewBalanceRepo(pool)
	ledgerRepo := postgres.NewLedgerRepo(pool)
	purchaseRepo := postgres.NewPurchaseRepo(pool)
	packageRepo := postgres.NewPackageRepo(pool)
	aggregateRepo := postgres.NewAggregateRepo(pool)
	transactor := postgres.NewTransactor(pool)

	// Caches
	catalogCache := redisadapter.NewCatalogCache(redisClient)
	completionCache := redisadapter.NewCompletionCache(redisClient)

	// Services
	ledgerService := service.NewLedgerService(balanceRepo, ledgerRepo, aggregateRepo, transactor, log)
	purchaseService := service.NewPurchaseService(
		purchaseRepo, packageRepo, balanceRepo, ledgerRepo, aggregateRepo,
		transactor, catalogCache, completionCache, cfg.Catalog.CacheTTL, log,
	)
	analyticsService := service.NewAnalyticsService(balanceRepo, ledgerRepo, purchaseRepo, aggregateRepo, log)

	router := httpadapter.NewRouter(httpadapter.RouterDeps{
		Ledger:    ledgerService,
		Purchases: purchaseService,
		Analytics: analyticsService,
		Checkers: []ports.HealthChecker{
			postgres.NewHealthCheck(pool),
			redisadapter.NewHealthCheck(redisClient),
		},
		Log:  log,
		Mode: cfg.Server.Mode,
	})

	server := &nethttp.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
