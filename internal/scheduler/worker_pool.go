package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/middleware"
)

// WorkerPool runs several classification workers side by side. Each worker polls
// the store for claimable mappings; when a poll finds nothing it sleeps for the
// poll interval, otherwise it polls again straight away.
type WorkerPool struct {
	worker       portssvc.ClassificationWorkerSvc
	workerCount  int
	pollInterval time.Duration
	logger       *slog.Logger

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
}

// NewWorkerPool creates a pool. It does nothing until Start is called.
func NewWorkerPool(worker portssvc.ClassificationWorkerSvc, workerCount int, pollInterval time.Duration, logger *slog.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		worker:       worker,
		workerCount:  workerCount,
		pollInterval: pollInterval,
		logger:       logger.With(slog.String("component", "worker_pool")),
		stop:         make(chan struct{}),
	}
}

// Start launches the worker goroutines. ctx bounds in-flight work: cancelling it
// aborts gateway calls, and the stale-claim sweep later recovers their mappings.
// Pass a context that outlives the shutdown signal so Shutdown's grace period applies.
func (wp *WorkerPool) Start(ctx context.Context) {
	ctx, wp.cancel = context.WithCancel(ctx)
	wp.logger.Info("Starting worker pool", slog.Int("workers", wp.workerCount))

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.run(ctx, i)
	}
}

func (wp *WorkerPool) run(ctx context.Context, id int) {
	defer wp.wg.Done()

	logger := wp.logger.With(slog.Int("worker_id", id))
	ctx = middleware.WithLogger(ctx, logger)
	logger.Debug("Worker started")

	for {
		select {
		case <-wp.stop:
			logger.Debug("Worker stopping")
			return
		case <-ctx.Done():
			logger.Debug("Worker context cancelled")
			return
		default:
		}

		processed, err := wp.worker.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Error("Classification pass failed", slog.String("error", err.Error()))
		}
		if processed > 0 && err == nil {
			continue
		}

		select {
		case <-wp.stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(wp.pollInterval):
		}
	}
}

// Shutdown stops polling and waits for in-flight passes to finish. If they do not
// finish within timeout their context is cancelled. It reports whether the
// workers drained on their own.
func (wp *WorkerPool) Shutdown(timeout time.Duration) bool {
	wp.logger.Info("Worker pool: initiating graceful shutdown", slog.Duration("timeout", timeout))
	wp.stopOnce.Do(func() { close(wp.stop) })

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	graceful := true
	select {
	case <-done:
	case <-time.After(timeout):
		graceful = false
		wp.logger.Warn("Worker pool: timeout reached, cancelling in-flight work")
		if wp.cancel != nil {
			wp.cancel()
		}
		<-done
	}
	if wp.cancel != nil {
		wp.cancel()
	}
	wp.logger.Info("Worker pool: shutdown complete", slog.Bool("graceful", graceful))
	return graceful
}
