package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sui-wrapped/internal/api"
	"github.com/sui-wrapped/internal/config"
	"github.com/sui-wrapped/internal/fetcher"
	"github.com/sui-wrapped/internal/indexer"
	"github.com/sui-wrapped/internal/logging"
	"github.com/sui-wrapped/internal/pricing"
	"github.com/sui-wrapped/internal/rpc"
	"github.com/sui-wrapped/internal/stats"
	"github.com/sui-wrapped/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("failed to load config")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.NewPostgresDB(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer db.Close()

	redisClient, err := storage.NewRedisClient(ctx, cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	walletRepo := storage.NewWalletRepository(db)
	txRepo := storage.NewTransactionRepository(db)
	statsRepo := storage.NewStatsRepository(db)
	snapshotCache := storage.NewSnapshotCache(redisClient, cfg.Cache.SnapshotTTL, logger)

	pool, err := rpc.NewEndpointPool(cfg.RPC.Endpoints)
	if err != nil {
		logger.WithError(err).Fatal("failed to build endpoint pool")
	}
	client := rpc.NewClient(pool, cfg.RPC, logger)
	pageFetcher := fetcher.NewFetcher(client, cfg.Indexer.PageSize, logger)

	engine := stats.NewEngine(txRepo, statsRepo, logger)
	pipeline := indexer.NewPipeline(walletRepo, txRepo, pageFetcher, engine,
		snapshotCache, cfg.Indexer.MaxRecords, logger)
	statusSvc := indexer.NewStatusService(walletRepo, statsRepo, snapshotCache, pipeline, logger)

	priceSvc := pricing.NewService(pricing.NewCoinGeckoSource(cfg.Pricing), cfg.Pricing.CacheTTL, logger)

	server := api.NewServer(cfg.Server, cfg.RateLimit, statusSvc, priceSvc, db, redisClient, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Fatal("http server failed")
		}
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
