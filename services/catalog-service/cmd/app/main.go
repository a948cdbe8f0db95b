package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"knowhow/pkg/logger"
	"knowhow/services/catalog-service/config"
	"knowhow/services/catalog-service/internal/application/usecase"
	"knowhow/services/catalog-service/internal/infrastructure/cache"
	"knowhow/services/catalog-service/internal/infrastructure/queue"
	"knowhow/services/catalog-service/internal/infrastructure/repository"
	"knowhow/services/catalog-service/internal/infrastructure/security"
	grpc_server "knowhow/services/catalog-service/internal/transport/grpc"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
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
	log = log.With("service", "catalog-service")

	if cfg.AccessSecret == "" || cfg.ServiceRoleKey == "" {
		log.Fatal("ACCESS_SECRET and SERVICE_ROLE_KEY are required")
	}

	db, err := openDB(cfg)
	if err != nil {
		log.Fatal("DB connect failed", "error", err)
	}
	if err := db.AutoMigrate(repository.Models()...); err != nil {
		log.Fatal("DB migrate failed", "error", err)
	}
	if cfg.SeedDemo {
		seeded, err := repository.SeedDemo(context.Background(), db)
		if err != nil {
			log.Fatal("DB seed failed", "error", err)
		}
		if seeded {
			log.Info("DB seeded with a demo course")
		}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DialTimeout: 5 * time.Second})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		log.Fatal("Redis connect failed", "error", err)
	}
	defer rdb.Close()

	var sender usecase.QueueSender
	switch cfg.QueueDriver {
	case "pgmq":
		sender = queue.NewPGMQSender(db)
	default:
		sender = queue.NewRedisStreamSender(rdb, cfg.QueueMaxLen)
	}

	collections := usecase.NewCollectionUseCase(repository.NewCollectionRepository(db), sender, log)
	auth := usecase.NewAuthUseCase(
		repository.NewAccountRepository(db),
		cache.NewTokenCache(rdb),
		security.NewPasswordHasher(cfg.BcryptCost),
		security.NewTokenManager(cfg.AccessSecret, cfg.AccessTTL),
		log,
	)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatal("Listen failed", "error", err)
	}

	s, hs := grpc_server.NewServer(auth, collections, cfg.ServiceRoleKey, log)

	go func() {
		log.Info("Catalog Service running", "addr", cfg.GRPCPort, "queue_driver", cfg.QueueDriver)
		if err := s.Serve(lis); err != nil {
			log.Fatal("Serve failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("Shutting down server...")
	hs.Shutdown()
	s.GracefulStop()
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
	if cfg.DBDriver == "sqlite" {
		return gorm.Open(sqlite.Open(cfg.SQLitePath), gcfg)
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	return gorm.Open(postgres.Open(dsn), gcfg)
}
