// Package worker drains the match queue and applies each match to the ladder.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/ladder/internal/domain/matchresult"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Processor applies one finalized match.
type Processor interface {
	Process(ctx context.Context, m model.MatchResult) (matchresult.Report, error)
}

// Queue defines how workers receive matches.
type Queue interface {
	Next(ctx context.Context) (model.MatchResult, bool)
	Close() error
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers    int   `json:"workers"`
	Active     int64 `json:"active"`
	Processed  int64 `json:"processed"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

type counters struct {
	active     atomic.Int64
	processed  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// InMemoryWorker pulls matches off a Queue until it is closed and drained.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string
	counters  *counters

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(queue Queue, processor Processor, opts ...Option) *InMemoryWorker {
	s := settings{name: "worker", logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	return newWorker(queue, processor, s.name, s.logger, &counters{})
}

func newWorker(queue Queue, processor Processor, name string, log logger.Logger, c *counters) *InMemoryWorker {
	return &InMemoryWorker{
		queue:     queue,
		processor: processor,
		name:      name,
		counters:  c,
		done:      make(chan struct{}),
		logger:    log.Named(name),
	}
}

// Run processes matches until the queue is drained or ctx is cancelled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	for {
		m, ok := w.queue.Next(ctx)
		if !ok {
			return
		}
		w.process(ctx, m)
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, m model.MatchResult) {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.counters.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.counters.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	report, err := w.processor.Process(ctx, m)
	switch {
	case err == nil:
		w.counters.processed.Add(1)
		if len(report.Failures) > 0 {
			w.logger.Warn(ctx, "match applied with failures",
				logger.String("match_id", m.MatchID),
				logger.Int("failed", len(report.Failures)))
		}
	case errors.Is(err, matchresult.ErrAlreadyApplied):
		w.counters.duplicates.Add(1)
		w.logger.Debug(ctx, "skipping already applied match", logger.String("match_id", m.MatchID))
	default:
		w.counters.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process_error")
		w.logger.Error(ctx, "match processing failed",
			logger.String("match_id", m.MatchID),
			logger.Error(err))
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	counters *counters

	startOnce sync.Once
	started   atomic.Bool

	logger logger.Logger
}

// NewPool creates a worker pool. A workerCount below one selects a default
// derived from the CPU count.
func NewPool(workerCount int, queue Queue, processor Processor, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	s := settings{name: "worker", logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		counters: &counters{},
		logger:   s.logger.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = newWorker(queue, processor, s.name+"-"+strconv.Itoa(i), s.logger, pool.counters)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Start launches every worker. Calling Start more than once has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.started.Store(true)
		for _, w := range p.workers {
			go w.Run(ctx)
		}
		p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
	})
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:    len(p.workers),
		Active:     p.counters.active.Load(),
		Processed:  p.counters.processed.Load(),
		Duplicates: p.counters.duplicates.Load(),
		Failed:     p.counters.failed.Load(),
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	p.logger.Info(ctx, "worker pool stopped")
	return nil
}
