package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/itsm-service/internal/observability"
)

// Job is a periodic task. A zero Interval disables it.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on independent tickers until its context ends.
type Scheduler struct {
	jobs    []Job
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewScheduler builds a scheduler.
func NewScheduler(logger *zap.Logger, metrics *observability.Metrics, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{jobs: jobs, logger: logger, metrics: metrics}
}

// Start blocks until ctx is cancelled. A failing run is logged and retried on
// the next tick; it never stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		if job.Interval <= 0 || job.Run == nil {
			s.logger.Info("job disabled", zap.String("job", job.Name))
			continue
		}
		job := job
		g.Go(func() error {
			s.loop(ctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	s.logger.Info("job scheduled", zap.String("job", job.Name), zap.Duration("interval", job.Interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, job)
		}
	}
}

// RunOnce executes job a single time, recording its outcome.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
		s.metrics.RecordJob(job.Name, err)
		if err != nil {
			s.logger.Error("job failed", zap.String("job", job.Name), zap.Error(err))
			return
		}
		s.logger.Debug("job finished", zap.String("job", job.Name), zap.Duration("duration", time.Since(start)))
	}()
	return job.Run(ctx)
}
