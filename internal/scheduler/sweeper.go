package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/middleware"
)

// Sweeper periodically returns stale in-progress mappings to pending and redelivers
// unacknowledged approval events.
type Sweeper struct {
	worker portssvc.ClassificationWorkerSvc
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
}

// NewSweeper registers the sweep on a cron schedule such as "@every 1m" or "*/5 * * * *".
// An unparseable schedule is a configuration error.
func NewSweeper(worker portssvc.ClassificationWorkerSvc, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "sweeper"))

	cl := cronLogger{logger: logger}
	s := &Sweeper{
		worker: worker,
		logger: logger,
		ctx:    context.Background(),
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("%w: invalid sweep schedule %q: %v", apperrors.ErrConfiguration, schedule, err)
	}
	return s, nil
}

// Start begins running the schedule in the background. ctx is passed to every sweep.
func (s *Sweeper) Start(ctx context.Context) {
	s.ctx = middleware.WithLogger(ctx, s.logger)
	s.cron.Start()
	s.logger.Info("Stale claim sweeper started")
}

// Stop halts the schedule and returns a context that is done once a running sweep finishes.
func (s *Sweeper) Stop() context.Context {
	s.logger.Info("Stopping stale claim sweeper")
	return s.cron.Stop()
}

func (s *Sweeper) sweep() {
	released, err := s.worker.SweepStaleClaims(s.ctx)
	if err != nil {
		s.logger.Error("Stale claim sweep failed", slog.String("error", err.Error()), slog.Int("released", released))
		return
	}
	if released > 0 {
		s.logger.Info("Stale claim sweep released mappings", slog.Int("released", released))
	}

	redelivered, err := s.worker.RedeliverApprovalEvents(s.ctx)
	if err != nil {
		s.logger.Error("Approval redelivery failed", slog.String("error", err.Error()))
		return
	}
	if redelivered > 0 {
		s.logger.Info("Redelivered approval events", slog.Int("redelivered", redelivered))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)...)
}
