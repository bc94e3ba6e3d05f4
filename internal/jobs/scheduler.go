package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 5 * time.Minute

// DeadlineJobs - пакетные задачи по срокам конкурсов.
type DeadlineJobs interface {
	Sweep(ctx context.Context) (int, error)
	Remind(ctx context.Context, window time.Duration) (int, error)
}

// Schedule - расписания задач в формате cron.
type Schedule struct {
	Sweep          string
	Reminder       string
	ReminderWindow time.Duration
}

// Scheduler запускает задачи по расписанию.
type Scheduler struct {
	cron     *cron.Cron
	jobs     DeadlineJobs
	schedule Schedule
	logger   *zap.Logger
	base     context.Context
}

func NewScheduler(ctx context.Context, jobs DeadlineJobs, schedule Schedule, logger *zap.Logger) *Scheduler {
	cronLogger := cronZapLogger{logger.Sugar()}
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	return &Scheduler{cron: c, jobs: jobs, schedule: schedule, logger: logger, base: ctx}
}

// Start регистрирует задачи и запускает планировщик.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule.Sweep, s.RunSweep); err != nil {
		return fmt.Errorf("schedule deadline sweep %q: %w", s.schedule.Sweep, err)
	}
	s.logger.Info("scheduled deadline sweep", zap.String("schedule", s.schedule.Sweep))

	if _, err := s.cron.AddFunc(s.schedule.Reminder, s.RunReminder); err != nil {
		return fmt.Errorf("schedule deadline reminder %q: %w", s.schedule.Reminder, err)
	}
	s.logger.Info("scheduled deadline reminder", zap.String("schedule", s.schedule.Reminder))

	s.cron.Start()
	return nil
}

// Stop останавливает планировщик. Контекст завершится, когда закончатся текущие задачи.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) RunSweep() {
	ctx, cancel := context.WithTimeout(s.base, jobTimeout)
	defer cancel()

	moved, err := s.jobs.Sweep(ctx)
	if err != nil {
		s.logger.Error("deadline sweep failed", zap.Int("moved", moved), zap.Error(err))
		return
	}
	s.logger.Debug("deadline sweep finished", zap.Int("moved", moved))
}

func (s *Scheduler) RunReminder() {
	ctx, cancel := context.WithTimeout(s.base, jobTimeout)
	defer cancel()

	sent, err := s.jobs.Remind(ctx, s.schedule.ReminderWindow)
	if err != nil {
		s.logger.Error("deadline reminder failed", zap.Int("sent", sent), zap.Error(err))
		return
	}
	s.logger.Debug("deadline reminder finished", zap.Int("sent", sent))
}

// cronZapLogger подключает zap к cron.Logger.
type cronZapLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronZapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
