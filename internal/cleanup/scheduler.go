package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Scheduler struct {
	cleanup  *CleanupService
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
}

func NewScheduler(cleanup *CleanupService, log *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		cleanup:  cleanup,
		log:      log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start запускает периодический sweep истёкших резерваций
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting reservation sweep scheduler", zap.Duration("interval", s.interval))
	go s.runExpiredSweep(ctx)
}

func (s *Scheduler) Stop() {
	s.log.Info("stopping reservation sweep scheduler")
	close(s.stopCh)
}

func (s *Scheduler) runExpiredSweep(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Выполняем сразу при старте
	if err := s.cleanup.CleanupExpiredReservations(ctx); err != nil {
		s.log.Error("initial expired reservations sweep failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if err := s.cleanup.CleanupExpiredReservations(ctx); err != nil {
				s.log.Error("expired reservations sweep failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("reservation sweep stopped")
			return
		case <-ctx.Done():
			s.log.Info("reservation sweep cancelled")
			return
		}
	}
}

// RunOnceNow выполняет полную очистку немедленно (для тестирования)
func (s *Scheduler) RunOnceNow(ctx context.Context) error {
	return s.cleanup.RunFullCleanup(ctx)
}
