package loop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"discord-antinuke-bot/internal/metrics"

	"go.uber.org/zap"
)

// ErrStopped is returned by Submit once the loop has exited
var ErrStopped = errors.New("event loop stopped")

// Job is one unit of work. It runs to completion, platform calls included,
// before the next job starts.
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

// Loop is the single consumer that serializes all state-touching work.
// Producers call Submit; exactly one goroutine calls Run.
type Loop struct {
	jobs    chan queued
	done    chan struct{}
	logger  *zap.Logger
	running atomic.Bool
}

type queued struct {
	job      Job
	enqueued time.Time
}

// New creates a loop with room for size pending jobs
func New(size int, logger *zap.Logger) *Loop {
	if size < 1 {
		size = 1
	}
	return &Loop{
		jobs:   make(chan queued, size),
		done:   make(chan struct{}),
		logger: logger.Named("loop"),
	}
}

// Submit queues job, blocking while the queue is full. Jobs are never dropped;
// Submit gives up only when ctx ends or the loop has stopped.
func (l *Loop) Submit(ctx context.Context, job Job) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}

	select {
	case l.jobs <- queued{job: job, enqueued: time.Now()}:
		metrics.QueueDepth.Set(float64(len(l.jobs)))
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes jobs in submission order until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("event loop already running")
	}
	defer close(l.done)

	l.logger.Info("event loop started", zap.Int("capacity", cap(l.jobs)))
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("event loop stopped", zap.Int("pending", len(l.jobs)))
			return ctx.Err()
		case q := <-l.jobs:
			metrics.QueueDepth.Set(float64(len(l.jobs)))
			l.exec(ctx, q)
		}
	}
}

// Pending returns the number of queued jobs
func (l *Loop) Pending() int {
	return len(l.jobs)
}

func (l *Loop) exec(ctx context.Context, q queued) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("job panicked", zap.String("job", q.job.Name), zap.Any("panic", r))
		}
		metrics.JobLatency.Observe(time.Since(start).Seconds())
	}()

	if wait := start.Sub(q.enqueued); wait > time.Second {
		l.logger.Warn("job waited in queue", zap.String("job", q.job.Name), zap.Duration("wait", wait))
	}
	q.job.Run(ctx)
}
