package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clock"
	obsmetrics "github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/ratelimit"
	summarydomain "github.com/smallbiznis/orderdesk/internal/summary/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobHourlySummary = "hourly_summary"

	hourlySummaryLockKey = "scheduler:hourly_summary"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	Log        *zap.Logger
	SummarySvc summarydomain.Service
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     Config                       `optional:"true"`
	Locker     *ratelimit.Locker            `optional:"true"`
	Metrics    *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	summarySvc summarydomain.Service
	locker     *ratelimit.Locker
	metrics    *obsmetrics.SchedulerMetrics

	// running guards against a tick starting while the previous one is
	// still in flight on this instance.
	running sync.Mutex
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.SummarySvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = obsmetrics.Scheduler()
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		summarySvc: p.SummarySvc,
		locker:     p.Locker,
		metrics:    metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		s.metrics.SetLastSuccess(name, s.clock.Now())
		return nil
	}

	// A deadline is a soft timeout: counted, logged, not returned.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce fires a single aggregation tick unless one is already in flight
// here or, with redis configured, on another instance.
func (s *Scheduler) RunOnce(parent context.Context) error {
	if !s.running.TryLock() {
		s.logSkipped(parent, JobHourlySummary, obsmetrics.SchedulerSkipReasonOverlap, nil)
		return nil
	}
	defer s.running.Unlock()

	release, acquired := s.acquireDistributed(parent)
	if !acquired {
		return nil
	}

	err := s.runJob(parent, JobHourlySummary, s.cfg.JobTimeout, s.HourlySummaryJob)
	release(err != nil)
	return err
}

// acquireDistributed takes the shared lease when a locker is configured.
// The lease is kept after a successful run so other instances skip this
// hour; it is released early only when the run failed.
func (s *Scheduler) acquireDistributed(ctx context.Context) (func(failed bool), bool) {
	noop := func(bool) {}
	if s.locker == nil {
		return noop, true
	}

	token, ok, err := s.locker.TryLock(ctx, hourlySummaryLockKey, s.cfg.lockTTL())
	if err != nil {
		s.logSkipped(ctx, JobHourlySummary, obsmetrics.SchedulerSkipReasonLockFailed, err)
		return noop, false
	}
	if !ok {
		s.logSkipped(ctx, JobHourlySummary, obsmetrics.SchedulerSkipReasonLockHeld, nil)
		return noop, false
	}
	return func(failed bool) {
		if !failed {
			return
		}
		if err := s.locker.Release(context.WithoutCancel(ctx), hourlySummaryLockKey, token); err != nil {
			s.log.Warn("release scheduler lock failed", zap.Error(err))
		}
	}, true
}

// HourlySummaryJob aggregates the trailing hour of orders.
func (s *Scheduler) HourlySummaryJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobHourlySummary)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	summary, err := s.summarySvc.RunAggregationTick(ctx)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.hourly_summary.failed", JobHourlySummary, err)
		return err
	}

	run.AddProcessed(int(summary.TotalOrders))
	s.metrics.AddBatchProcessed(JobHourlySummary, "orders", int(summary.TotalOrders))
	return nil
}

// RunForever ticks until ctx is canceled. A failed or skipped tick is not
// retried; the next one covers only its own hour.
func (s *Scheduler) RunForever(ctx context.Context) {
	now := s.clock.Now()
	delay := s.cfg.firstDelay(now)
	nextRun := now.Add(delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	s.log.Info("scheduler started",
		zap.Duration("interval", s.cfg.RunInterval),
		zap.Bool("align_to_hour", s.cfg.AlignToHour),
		zap.Time("first_run", nextRun),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		nextRun = nextRun.Add(s.cfg.RunInterval)
		wait := nextRun.Sub(s.clock.Now())
		if wait < 0 {
			// Missed ticks are dropped rather than replayed.
			missed := (-wait)/s.cfg.RunInterval + 1
			nextRun = nextRun.Add(missed * s.cfg.RunInterval)
			wait = nextRun.Sub(s.clock.Now())
		}
		timer.Reset(wait)
	}
}
