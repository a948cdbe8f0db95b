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
	"knowhow/services/web/internal/client"
	"knowhow/services/web/internal/config"
	"knowhow/services/web/internal/invalidation"
	"knowhow/services/web/internal/middleware"
	"knowhow/services/web/internal/querycache"
	"knowhow/services/web/internal/remote"
	"knowhow/services/web/internal/resources"
	"knowhow/services/web/internal/session"
	"knowhow/services/web/internal/sse"
	handlers "knowhow/services/web/internal/transport/http"
	"knowhow/services/web/internal/views"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
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
	log = log.With("service", "web")
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Without redis the rate limits are off; everything else still works.
	var limiter *middleware.RateLimiter
	rdb := redis.NewClient(&redis.Options{Addr: cfg.REDIS_ADDR})
	defer rdb.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, rate limiting disabled", "addr", cfg.REDIS_ADDR, "error", err)
	} else {
		limiter = middleware.NewRateLimiter(rdb)
		log.Info("Connected to Redis", "addr", cfg.REDIS_ADDR)
	}
	cancelPing()

	catalog, err := client.NewCatalogClient(cfg.CatalogSvcURL)
	if err != nil {
		log.Fatal("Failed to connect to Catalog Service", "error", err)
	}
	defer catalog.Close()
	log.Info("Catalog Service client ready", "addr", cfg.CatalogSvcURL)

	rc := remote.NewClient(catalog.Collections, cfg.FunctionsURL, cfg.AnonKey, &http.Client{Timeout: cfg.FetchTimeout})
	cache := querycache.New(querycache.Options{
		FetchTimeout: cfg.FetchTimeout,
		IdleTTL:      cfg.CacheIdleTTL,
		Logger:       log,
	})
	defer cache.Close()

	set := resources.NewSet(rc, cache)
	pages := views.NewBuilder(set)
	mutator := invalidation.NewMutator(rc, cache, log)
	sessions := session.NewService(catalog.Auth, cache, log)

	hub := sse.NewHub(log, cfg.SSEHeartbeat)
	live := handlers.NewLiveHandler(hub, pages, cfg.SearchDebounce, log)
	defer live.Close()

	router := handlers.NewRouter(handlers.Handlers{
		Auth:       handlers.NewAuthHandler(sessions, log),
		Courses:    handlers.NewCourseHandler(pages, mutator),
		Users:      handlers.NewUserHandler(pages),
		Generation: handlers.NewGenerationHandler(mutator, log),
		Live:       live,
	}, handlers.RouterConfig{
		AllowedOrigins: cfg.Origins(),
		Session:        middleware.Session(sessions, log),
		Limiter:        limiter,
		GenerateLimit:  cfg.GenerateLimit,
		GenerateWindow: cfg.GenerateWindow,
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Web front end running", "addr", cfg.Port)
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
