package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/menulens/menu-digitizer/internal/pipeline"
)

// ErrQueueFull is returned when the task buffer is saturated; the caller keeps
// the job QUEUED and a later poll picks it up again.
var ErrQueueFull = errors.New("digitization queue is full")

// ErrQueueClosed is returned by Enqueue after Shutdown has begun.
var ErrQueueClosed = errors.New("digitization queue is closed")

// Pool is an in-process worker pool draining digitization tasks. One failed
// job never stops the workers.
type Pool struct {
	logger  *slog.Logger
	proc    *pipeline.Processor
	tasks   chan Task
	group   *errgroup.Group
	closing sync.Once

	mu     sync.RWMutex
	closed bool
}

func NewPool(logger *slog.Logger, proc *pipeline.Processor, workers, buffer int) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = workers * 4
	}
	return &Pool{
		logger: logger,
		proc:   proc,
		tasks:  make(chan Task, buffer),
	}
}

// Start launches the workers. They exit when the queue is closed and drained,
// or when ctx is canceled.
func (p *Pool) Start(ctx context.Context, workers int) {
	g, ctx := errgroup.WithContext(ctx)
	p.group = g
	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case task, ok := <-p.tasks:
					if !ok {
						return nil
					}
					p.run(ctx, worker, task)
				}
			}
		})
	}
}

func (p *Pool) run(ctx context.Context, worker int, task Task) {
	start := time.Now()
	if err := p.proc.ProcessJob(ctx, task.JobID); err != nil {
		p.logger.Error("async.task.failed",
			"worker", worker,
			"job_id", task.JobID,
			"trace_id", task.TraceID,
			"queued_ms", start.Sub(task.SubmittedAt).Milliseconds(),
			"err", err,
		)
		return
	}
	p.logger.Info("async.task.ok",
		"worker", worker,
		"job_id", task.JobID,
		"trace_id", task.TraceID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// Enqueue is non-blocking. The read lock pairs with Shutdown's write lock so a
// send never races the channel close.
func (p *Pool) Enqueue(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for in-flight work, up to ctx.
func (p *Pool) Shutdown(ctx context.Context) {
	p.closing.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})
	if p.group == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		p.logger.Warn("async.shutdown.timeout")
	case <-done:
		p.logger.Info("async.shutdown.ok")
	}
}
