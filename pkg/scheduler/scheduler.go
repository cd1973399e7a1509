package scheduler

import (
	"context"
	"lesson_platform_backend/pkg/logger"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Purger 清理过期数据的任务
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler 后台定时任务
type Scheduler struct {
	scheduler *gocron.Scheduler
}

func New() *Scheduler {
	return &Scheduler{scheduler: gocron.NewScheduler(time.UTC)}
}

// SchedulePurge 按固定间隔执行清理，启动时先执行一次
func (s *Scheduler) SchedulePurge(name string, interval time.Duration, p Purger) error {
	if interval <= 0 {
		interval = time.Hour
	}
	_, err := s.scheduler.Every(interval).StartImmediately().Tag(name).Do(func() {
		n, err := p.PurgeExpired(context.Background())
		if err != nil {
			logger.Log.Error("Scheduled purge failed", zap.String("job", name), zap.Error(err))
			return
		}
		if n > 0 {
			logger.Log.Info("Scheduled purge finished", zap.String("job", name), zap.Int64("deleted", n))
		}
	})
	return err
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) Jobs() int {
	return s.scheduler.Len()
}
