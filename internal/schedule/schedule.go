package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Job описывает периодическую задачу
type Job struct {
	Name        string
	Interval    time.Duration // 0 отключает задачу
	Immediately bool          // первый запуск сразу после Start
	Run         func(ctx context.Context) error
}

// Scheduler запускает задачи каталога по расписанию
type Scheduler struct {
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger
}

// New регистрирует задачи; задачи с нулевым интервалом пропускаются
func New(logger *slog.Logger, jobs ...Job) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sch := &Scheduler{scheduler: s, ctx: ctx, cancel: cancel, logger: logger}

	for _, job := range jobs {
		if job.Interval <= 0 {
			logger.Info("job disabled", slog.String("job", job.Name))
			continue
		}

		opts := []gocron.JobOption{
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		}
		if job.Immediately {
			opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
		}

		if _, err := s.NewJob(gocron.DurationJob(job.Interval), gocron.NewTask(sch.wrap(job)), opts...); err != nil {
			cancel()
			_ = s.Shutdown()
			return nil, fmt.Errorf("failed to create job %s: %w", job.Name, err)
		}
		logger.Info("job scheduled", slog.String("job", job.Name), slog.Duration("interval", job.Interval))
	}

	return sch, nil
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		start := time.Now()
		if err := job.Run(s.ctx); err != nil {
			s.logger.ErrorContext(s.ctx, "job failed", slog.String("job", job.Name), slog.Any("error", err))
			return
		}
		s.logger.DebugContext(s.ctx, "job finished", slog.String("job", job.Name), slog.Duration("duration", time.Since(start)))
	}
}

// Start запускает планировщик
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Shutdown отменяет выполняющиеся задачи и останавливает планировщик
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}
