// internal/bot/scheduler.go
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs periodic jobs. A job still running when its next slot
// arrives is skipped, and a panicking job is recovered and logged.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	l := logger.Named("scheduler")
	cl := cronLogger{l.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: l,
		ctx:    context.Background(),
	}
}

// Every registers job to run once per period. Periods under a second are
// rounded up to one second.
func (s *Scheduler) Every(name string, period time.Duration, job func(ctx context.Context)) error {
	if period <= 0 {
		return fmt.Errorf("job %s: period must be positive", name)
	}
	s.cron.Schedule(cron.Every(period), cron.FuncJob(func() {
		if s.ctx.Err() != nil {
			return
		}
		job(s.ctx)
	}))
	s.logger.Info("Job scheduled", zap.String("job", name), zap.Duration("period", period))
	return nil
}

// Start begins running jobs with ctx passed to each invocation.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
