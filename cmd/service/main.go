package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory-core/config"
	"inventory-core/internal/cache"
	"inventory-core/internal/cleanup"
	"inventory-core/internal/producer"
	"inventory-core/internal/repository"
	"inventory-core/internal/service"
	"inventory-core/pkg/database"
	"inventory-core/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	var cacheClient service.CacheClient
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer rc.Close()
		cacheClient = rc
	}

	var events service.EventProducer
	if cfg.Kafka.Enabled {
		p := producer.NewInventoryProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer p.Close()
		events = p
	}

	repos := repository.New(db)
	svc := service.NewInventoryService(repos, cacheClient, events, log, service.Options{
		MaxRetries:     cfg.Inventory.MaxRetries,
		RetryBackoff:   cfg.Inventory.RetryBackoff,
		ReservationTTL: cfg.Inventory.ReservationTTL,
		CacheTTL:       time.Duration(cfg.Redis.TTLSeconds) * time.Second,
		MatchMode:      service.ParseMatchMode(cfg.Inventory.VariantMatchMode),
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Фоновый sweep истёкших резерваций
	sched := cleanup.NewScheduler(cleanup.NewCleanupService(db, log), log, cfg.Cleanup.SweepInterval)
	sched.Start(ctx)
	defer sched.Stop()

	// Sanity-чтение при старте: база доступна и схема на месте
	if value, err := svc.GetStockValue(ctx); err != nil {
		log.Fatal("startup stock value read failed", zap.Error(err))
	} else {
		log.Info("inventory core started", zap.Int64("stock_value_cents", value))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down inventory core...")
	stop()
	log.Info("inventory core stopped gracefully")
}
