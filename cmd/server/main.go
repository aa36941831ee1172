package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JGooseK41/NFTServiceApp-sub006/internal/access"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/api"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/audit"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/config"
	"github.com/JGooseK41/NFTServiceApp-sub006/internal/db"
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

	config.LogConfig(cfg, zapLogger)

	database, err := db.Initialize(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	collector := metrics.NewCollector()
	auditor := audit.NewRecorder(database, zapLogger)
	reg := registry.NewRegistry(database, zapLogger)
	store := storage.NewManager(database, cfg.Storage.BasePath, reg, auditor, zapLogger, collector)
	gate := access.NewGate(database, reg, store, auditor, zapLogger, collector)

	router := api.NewRouter(zapLogger, collector, store, gate, reg)
	router.SetupRoutes()

	srv := router.Server(":"+cfg.Server.Port, cfg.Server)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zapLogger.Info("Server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Warn("Server shutdown incomplete", zap.Error(err))
	}

	if sqlDB, err := database.DB(); err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server gracefully stopped")
}
