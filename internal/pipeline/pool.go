// Package pipeline runs clip jobs through download, subtitle adjustment,
// transcode, and publish stages on a bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueFull indicates the job queue is at capacity and cannot accept
// more work.
var ErrQueueFull = errors.New("job queue is full")

// Task is a unit of work executed by the pool.
type Task func(ctx context.Context)

// Pool is a fixed-size worker pool with a bounded queue. Submit never
// blocks: when the queue is full it fails fast with ErrQueueFull so the
// caller can apply backpressure.
type Pool struct {
	workers int
	queue   chan Task
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		workers: workers,
		queue:   make(chan Task, queueSize),
		logger:  logger,
	}
}

// Start launches the workers. Tasks run until the context is cancelled or
// Stop drains the queue.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("worker pool started",
		slog.Int("workers", p.workers),
		slog.Int("queue_size", cap(p.queue)),
	)
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With(slog.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Error("task panicked", slog.Any("panic", r))
					}
				}()
				task(ctx)
			}()
		}
	}
}

// Submit enqueues a task, failing fast with ErrQueueFull when the queue is
// at capacity.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return errors.New("worker pool is stopped")
	}

	// Non-blocking send under the lock so Stop cannot close the queue
	// between the check and the send.
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects further submissions and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// QueueDepth returns the number of queued tasks awaiting a worker.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}
