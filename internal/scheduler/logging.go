package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/fieldbook/internal/observability/context"
	obslogger "github.com/smallbiznis/fieldbook/internal/observability/logger"
	"go.uber.org/zap"
)

// jobRun tracks one execution of a job for its start and finish log lines.
type jobRun struct {
	runID     string
	startedAt time.Time
	log       *zap.Logger
	processed int
}

func (r *jobRun) AddProcessed(count int) {
	if r != nil && count > 0 {
		r.processed += count
	}
}

// startRun tags ctx with the scheduler actor and logs the start of job.
func (s *Scheduler) startRun(ctx context.Context, job string) (context.Context, *jobRun) {
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	run := &jobRun{
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
	}
	run.log = obslogger.WithContext(ctx, s.log).With(
		zap.String("job", job),
		zap.String("run_id", run.runID),
	)
	run.log.Info("scheduler.job.start")
	return ctx, run
}

// finish logs the outcome. Failed runs are logged at warn.
func (r *jobRun) finish(now time.Time, err error) {
	fields := []zap.Field{
		zap.Int64("duration_ms", now.Sub(r.startedAt).Milliseconds()),
		zap.Int("processed_count", r.processed),
	}
	if err != nil {
		r.log.Warn("scheduler.job.finish", append(fields, zap.Error(err))...)
		return
	}
	r.log.Info("scheduler.job.finish", fields...)
}
