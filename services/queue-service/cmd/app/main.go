package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"knowhow/pkg/logger"
	"knowhow/services/queue-service/config"
	"knowhow/services/queue-service/internal/client"
	handlers "knowhow/services/queue-service/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log = log.With("service", "queue-service")

	if cfg.ServiceRoleKey == "" {
		log.Fatal("SERVICE_ROLE_KEY is required")
	}

	catalog, err := client.NewCatalogClient(cfg.CatalogSvcURL)
	if err != nil {
		log.Fatal("Failed to connect to Catalog Service", "error", err)
	}
	defer catalog.Close()

	handler := handlers.NewQueueHandler(catalog.Client, cfg.ServiceRoleKey, cfg.QueueName, cfg.CallTimeout, log)
	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           handlers.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Queue Service running", "addr", cfg.Port, "queue", cfg.QueueName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to run server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
}
