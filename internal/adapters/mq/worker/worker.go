// Package worker drains the ingestion queue into the event repository.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/spendlens/internal/adapters/mq/queue"
	"github.com/okian/spendlens/pkg/logger"
	"github.com/okian/spendlens/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Appender stores an event; false means the id was already stored.
type Appender interface {
	Append(ctx context.Context, e queue.Event) (bool, error)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// Worker consumes events until its queue is drained or ctx ends.
type Worker struct {
	queue    Queue
	appender Appender
	name     string
	log      logger.Logger
	done     chan struct{}
	active   *activeCounter
}

// New creates a worker.
func New(q Queue, appender Appender, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		appender: appender,
		name:     "worker",
		log:      logger.Nop(),
		done:     make(chan struct{}),
		active:   &activeCounter{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.Named(w.name)
	return w
}

// Run processes events until the queue channel closes or ctx is done.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.log.Error(ctx, "error storing event", logger.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(ctx context.Context, e queue.Event) error { //nolint:gocritic // hugeParam: received by value from the channel
	start := time.Now()
	w.active.add(1)
	defer func() {
		w.active.add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	stored, err := w.appender.Append(ctx, e)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "append_error")
		return fmt.Errorf("append event %s: %w", e.ID, err)
	}
	if !stored {
		metrics.RecordEventDuplicate()
		w.log.Debug(ctx, "duplicate event ignored", logger.String("event_id", e.ID))
		return nil
	}
	metrics.RecordEventIngested()
	return nil
}

// activeCounter tracks busy workers across a pool.
type activeCounter struct {
	mu sync.Mutex
	n  int
}

func (c *activeCounter) add(d int) {
	c.mu.Lock()
	c.n += d
	n := c.n
	c.mu.Unlock()
	metrics.UpdateWorkerActiveCount(n)
}

// Pool runs several workers on one queue.
type Pool struct {
	workers []*Worker
	queue   Queue
	cancel  context.CancelFunc
	log     logger.Logger
}

// NewPool creates count workers; count < 1 means one per CPU.
func NewPool(count int, q Queue, appender Appender, opts ...Option) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}
	p := &Pool{workers: make([]*Worker, count), queue: q, log: logger.Nop()}
	shared := &activeCounter{}
	for i := range p.workers {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)), withCounter(shared))
		p.workers[i] = New(q, appender, wopts...)
	}
	if len(p.workers) > 0 {
		p.log = p.workers[0].log
	}
	metrics.UpdateWorkerCount(count)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets the workers drain it, and cancels them
// if ctx or the pool timeout expires first.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.log.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var err error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.log.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			err = fmt.Errorf("worker shutdown: %w", shutdownCtx.Err())
		}
		if err != nil {
			break
		}
	}
	if p.cancel != nil {
		p.cancel()
	}
	return err
}
