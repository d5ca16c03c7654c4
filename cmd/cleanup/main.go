package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"inventory-core/config"
	"inventory-core/internal/cleanup"
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

	cleanupSvc := cleanup.NewCleanupService(db, log)

	ctx := context.Background()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "expired":
			log.Info("running expired reservations cleanup")
			if err := cleanupSvc.CleanupExpiredReservations(ctx); err != nil {
				log.Fatal("failed to cleanup expired reservations", zap.Error(err))
			}
		case "orphaned":
			log.Info("running orphaned reservations cleanup")
			if err := cleanupSvc.CleanupOrphanedReservations(ctx); err != nil {
				log.Fatal("failed to cleanup orphaned reservations", zap.Error(err))
			}
		case "watch":
			sched := cleanup.NewScheduler(cleanupSvc, log, cfg.Cleanup.SweepInterval)
			sched.Start(ctx)
			defer sched.Stop()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			log.Info("stopping reservation sweep")
			return
		case "all":
			fallthrough
		default:
			log.Info("running full cleanup")
			if err := cleanupSvc.RunFullCleanup(ctx); err != nil {
				log.Fatal("failed to run full cleanup", zap.Error(err))
			}
		}
	} else {
		fmt.Println("Usage: go run cmd/cleanup/main.go [expired|orphaned|watch|all]")
		fmt.Println("  expired  - remove expired reservations only")
		fmt.Println("  orphaned - remove reservations of deleted products")
		fmt.Println("  watch    - run the periodic sweep until interrupted")
		fmt.Println("  all      - run full cleanup (default)")
		os.Exit(1)
	}

	log.Info("cleanup completed successfully")
}
