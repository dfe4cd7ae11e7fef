package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"monexa/internal/amqp"
	"monexa/internal/config"
	"monexa/internal/log"
	"monexa/internal/storage"
	"monexa/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting import worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.WithComponent(log.ComponentAMQP).Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	importWorker := worker.NewImportWorker(store, cfg.SyncBatchSize)

	// Recover batches whose events were missed while the worker was down.
	if err := importWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup check failed", "error", err)
		// Keep going; the periodic sweep retries.
	}

	go func() {
		err := amqpClient.ConsumeWithReconnect(ctx, func(msg *amqp.ImportEventMessage) error {
			return importWorker.HandleEvent(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption failed", "error", err)
		}
		cancel()
	}()

	// Periodic sweep for batches whose events were lost.
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := importWorker.ProcessPending(ctx); err != nil {
					logger.Error("Pending sweep failed", "error", err)
				} else if n > 0 {
					logger.Info("Caught up pending batches", "count", n)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received",
			log.FieldOperation, log.OpShutdown, "signal", sig.String())
		cancel()
	case <-ctx.Done():
	}

	logger.Info("Import worker stopped")
}
