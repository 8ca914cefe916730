package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/upload"
	"go.uber.org/zap"
)

// UploadSweeper то, что умеет чистить буфер загрузок
type UploadSweeper interface {
	Sweep(ctx context.Context) (upload.SweepStats, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sweeper       UploadSweeper
	sweepInterval time.Duration
	logger        *zap.Logger
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(sweeper UploadSweeper, sweepInterval time.Duration, logger *zap.Logger) *Scheduler {
	if sweepInterval <= 0 {
		sweepInterval = upload.DefaultSweepInterval
	}
	return &Scheduler{
		sweeper:       sweeper,
		sweepInterval: sweepInterval,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("sweep_interval", s.sweepInterval))

	s.wg.Add(1)
	go s.runUploadSweepTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

// runUploadSweepTask периодически чистит брошенные загрузки
func (s *Scheduler) runUploadSweepTask(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepUploads(ctx)
		case <-s.stopChan:
			s.logger.Info("Upload sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Upload sweep task cancelled")
			return
		}
	}
}

func (s *Scheduler) sweepUploads(ctx context.Context) {
	stats, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("Failed to sweep uploads", zap.Error(err))
		return
	}

	if stats.Expired == 0 && stats.Evicted == 0 {
		s.logger.Debug("Upload sweep: nothing to clean", zap.Int64("memory_usage", stats.MemoryUsage))
		return
	}

	s.logger.Info("Upload sweep completed",
		zap.Int("expired", stats.Expired),
		zap.Int("evicted", stats.Evicted),
		zap.Int64("freed_bytes", stats.FreedBytes),
		zap.Int64("memory_usage", stats.MemoryUsage))
}
