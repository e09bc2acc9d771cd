package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/clock"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
	"github.com/smallbiznis/fieldbook/internal/lock"
	obsmetrics "github.com/smallbiznis/fieldbook/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	InvoiceSvc invoicedomain.Service
	Locker     lock.Locker                  `optional:"true"`
	Metrics    *obsmetrics.SchedulerMetrics `optional:"true"`
	Config     Config                       `optional:"true"`
}

// Scheduler runs periodic document maintenance. Jobs take a distributed lock
// so only one replica does the work per tick.
type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	invoiceSvc invoicedomain.Service
	locker     lock.Locker
	metrics    *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.InvoiceSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		invoiceSvc: p.InvoiceSvc,
		locker:     p.Locker,
		metrics:    p.Metrics,
	}, nil
}

// runJob runs fn under the job's lock and timeout. A held lock or an
// expired timeout is not an error for the caller.
func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context, run *jobRun) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx, run := s.startRun(ctx, name)
	s.metrics.IncJobRun(name)

	err := lock.With(ctx, s.locker, "scheduler:"+name, func() error {
		return fn(ctx, run)
	})
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))

	switch {
	case errors.Is(err, lock.ErrNotObtained):
		s.metrics.IncJobSkipped(name)
		run.log.Debug("scheduler.job.skipped")
		return nil
	case err == nil:
		run.finish(s.clock.Now(), nil)
		return nil
	}

	run.finish(s.clock.Now(), err)
	s.metrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.IncJobTimeout(name)
		run.log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context, *jobRun) error
	}{
		{JobMarkOverdue, s.MarkOverdueJob},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()

	for {
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// MarkOverdueJob moves sent invoices past their due date to overdue.
func (s *Scheduler) MarkOverdueJob(ctx context.Context, run *jobRun) error {
	asOf := s.clock.Now()
	resp, err := s.invoiceSvc.MarkOverdue(ctx, invoicedomain.MarkOverdueRequest{AsOf: &asOf})
	if err != nil {
		return err
	}

	run.AddProcessed(len(resp.Invoices))
	s.metrics.AddProcessed(JobMarkOverdue, len(resp.Invoices))
	for _, inv := range resp.Invoices {
		run.log.Info("invoice.overdue",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("number", inv.Number),
		)
	}
	return nil
}
