// Command recover runs one batch of the IPFS recovery pipeline. Intended for
// cron: the exit code is non-zero when any notice in the batch failed, so an
// alerting wrapper only has to check the status.
//
// Do not run two instances against the same database concurrently; the
// pipeline takes no distributed lock.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/JGooseK41/NFTServiceApp-sub006/internal/audit"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/config"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/db"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/ipfs"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/recovery"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/registry"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/storage"
	"github.com/JGooseK41/NFTServiceApp-sub006/pkg/logger"
	"github.com/JGooseK41/NFTServiceApp-sub006/pkg/metrics"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Logging.Environment, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	database, err := db.Initialize(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	collector := metrics.NewCollector()
	auditor := audit.NewRecorder(database, zapLogger)
	reg := registry.NewRegistry(database, zapLogger)
	store := storage.NewManager(database, cfg.Storage.BasePath, reg, auditor, zapLogger, collector)
	fetcher := ipfs.NewFetcher(cfg.IPFS.NodeAPI, cfg.IPFS.Gateways, cfg.IPFS.GatewayTimeout, zapLogger)

	pipeline := recovery.NewPipeline(database, fetcher, store, zapLogger, collector,
		cfg.Recovery.BatchSize, cfg.Recovery.ItemDelay)

	summary, err := pipeline.Run(context.Background())
	if err != nil {
		zapLogger.Fatal("Recovery batch aborted", zap.Error(err))
	}

	zapLogger.Info("Recovery batch complete",
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))

	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}
