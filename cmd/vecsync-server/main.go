// Package main provides the entry point for the vecsync status daemon.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/vecsync-go/internal/config"
	"github.com/raphaelgruber/vecsync-go/internal/content"
	"github.com/raphaelgruber/vecsync-go/internal/db"
	"github.com/raphaelgruber/vecsync-go/internal/metrics"
	"github.com/raphaelgruber/vecsync-go/internal/provider"
	"github.com/raphaelgruber/vecsync-go/internal/scheduler"
	"github.com/raphaelgruber/vecsync-go/internal/server"
	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("vecsync-server starting",
		"version", version,
		"surrealdb_url", cfg.SurrealDBURL,
		"addr", cfg.ServerAddr,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}

	dbClient, err := db.NewClient(ctx, dbCfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = dbClient.Close(context.Background())
	}()

	if err := dbClient.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	// Load collections
	collections, err := config.LoadCollections(cfg.CollectionsFile)
	if err != nil {
		logger.Error("failed to load collections", "error", err)
		os.Exit(1)
	}
	logger.Info("collections loaded", "count", len(collections.IDs()))

	// Wire the orchestrator
	stats := metrics.NewCollector()
	providerClient := provider.NewClient(provider.Config{
		APIKey:  cfg.ProviderAPIKey,
		BaseURL: cfg.ProviderBaseURL,
		OrgID:   cfg.ProviderOrgID,
		Metrics: stats,
		Logger:  logger,
	})

	jobs := db.NewJobs(dbClient)
	records := db.NewRecords(dbClient)
	orch := vsync.New(
		jobs,
		records,
		content.NewFileSource(cfg.ContentDir),
		providerClient,
		collections,
		scheduler.New(logger),
		vsync.Options{BatchSize: cfg.BatchSize, Metrics: stats, Logger: logger},
	)

	// Run the status server (blocks until signal)
	srv := server.New(cfg.ServerAddr, orch, jobs, records, stats, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
