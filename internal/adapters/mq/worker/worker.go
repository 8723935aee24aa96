// Package worker evaluates queued attempts and records their outcomes.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/formcheck/internal/domain/evaluation"
	"github.com/okian/formcheck/internal/domain/model"
	"github.com/okian/formcheck/internal/domain/pose"
	"github.com/okian/formcheck/pkg/logger"
	"github.com/okian/formcheck/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU(); evaluation is CPU bound
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Attempt abstracts what workers read off the queue.
type Attempt = model.Attempt

// Evaluator judges a pose sequence for an exercise.
type Evaluator interface {
	Assess(ctx context.Context, seq pose.Sequence, exercise string) (evaluation.Report, error)
}

// Recorder stores the outcome of an attempt.
type Recorder interface {
	Save(ctx context.Context, o model.Outcome) error
}

// Queue defines how workers receive attempts.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Attempt
}

// Worker processes attempts and records outcomes using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// tracker aggregates activity across the workers of a pool.
type tracker struct {
	size      int
	active    atomic.Int64
	processed atomic.Int64
}

func (t *tracker) begin() {
	if t == nil {
		return
	}
	active := t.active.Add(1)
	metrics.UpdateWorkerActiveCount(int(active))
	metrics.UpdateWorkerIdleCount(t.size - int(active))
}

func (t *tracker) end() {
	if t == nil {
		return
	}
	active := t.active.Add(-1)
	t.processed.Add(1)
	metrics.UpdateWorkerActiveCount(int(active))
	metrics.UpdateWorkerIdleCount(t.size - int(active))
}

// InMemoryWorker implements Worker for evaluating attempts.
type InMemoryWorker struct {
	queue     Queue
	evaluator Evaluator
	recorder  Recorder
	name      string
	now       func() time.Time
	tracker   *tracker

	// Shutdown control
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, evaluator Evaluator, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		evaluator: evaluator,
		recorder:  recorder,
		name:      "worker",
		now:       time.Now,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.Named(w.name)

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	attempts := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case a, ok := <-attempts:
			if !ok {
				return
			}
			if err := w.processAttempt(ctx, a); err != nil {
				w.logger.Error(ctx, "error processing attempt", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker once its current attempt is finished.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// processAttempt evaluates one attempt and saves its outcome. Evaluation
// failures become failed outcomes; only a store failure is returned.
func (w *InMemoryWorker) processAttempt(ctx context.Context, a Attempt) error { //nolint:gocritic // hugeParam: Attempt is passed by value for channel semantics
	w.tracker.begin()
	defer w.tracker.end()

	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	evalStart := time.Now()
	report, err := w.evaluator.Assess(ctx, a.Sequence, a.Exercise)
	metrics.RecordEvaluationLatency(a.Exercise, float64(time.Since(evalStart).Microseconds())/1000)

	outcome := NewOutcome(a, report, err, w.now())
	recordEvaluation(outcome, report)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "evaluation_error")
		w.logger.Warn(ctx, "attempt could not be judged",
			logger.String("attemptID", a.ID),
			logger.String("exercise", a.Exercise),
			logger.Error(err),
		)
	}

	if err := w.recorder.Save(ctx, outcome); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		metrics.RecordErrorByType("store_error", "high")
		return fmt.Errorf("save outcome for attempt %s: %w", a.ID, err)
	}

	w.logger.Debug(ctx, "attempt evaluated",
		logger.String("attemptID", a.ID),
		logger.Bool("correct", outcome.Correct),
		logger.String("status", string(outcome.Status)),
	)
	return nil
}

// NewOutcome builds the stored outcome of an attempt from its evaluation.
func NewOutcome(a Attempt, report evaluation.Report, err error, at time.Time) model.Outcome { //nolint:gocritic // hugeParam: value semantics match the queue payload
	o := model.Outcome{
		AttemptID:     a.ID,
		Exercise:      a.Exercise,
		Status:        model.StatusEvaluated,
		Correct:       report.Correct,
		Feedback:      report.Feedback,
		Side:          report.Side.String(),
		TorsoRange:    report.TorsoRange,
		ForearmMin:    report.ForearmMin,
		Frames:        report.Frames,
		SkippedFrames: report.SkippedFrames,
		SubmittedAt:   a.SubmittedAt,
		EvaluatedAt:   at,
	}
	for _, f := range report.Findings {
		o.Findings = append(o.Findings, string(f))
	}
	if err != nil {
		o.Status = model.StatusFailed
		o.Correct = false
		o.Feedback = evaluation.Message(err)
		o.Error = err.Error()
	}
	return o
}

func recordEvaluation(o model.Outcome, report evaluation.Report) { //nolint:gocritic // hugeParam: read-only
	result := metrics.ResultIncorrect
	switch {
	case o.Status == model.StatusFailed:
		result = metrics.ResultFailed
	case o.Correct:
		result = metrics.ResultCorrect
	}
	metrics.RecordEvaluation(o.Exercise, result)
	metrics.RecordSkippedFrames(report.SkippedFrames)
	for _, f := range o.Findings {
		metrics.RecordFinding(f)
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	tracker *tracker

	shutdown     chan struct{}
	shutdownOnce sync.Once

	lastProcessed     int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount selects a
// default based on the CPU count.
func NewPool(workerCount int, queue Queue, evaluator Evaluator, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	t := &tracker{size: workerCount}
	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             queue,
		tracker:           t,
		shutdown:          make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Nop(),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{}, opts...)
		workerOpts = append(workerOpts, WithName("worker-"+strconv.Itoa(i)), withTracker(t))
		pool.workers[i] = NewInMemoryWorker(queue, evaluator, recorder, workerOpts...)
	}
	base := &InMemoryWorker{logger: pool.logger}
	for _, opt := range opts {
		opt(base)
	}
	pool.logger = base.logger.Named("worker-pool")

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0.0)

	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of attempts the pool has finished.
func (p *Pool) Processed() int64 { return p.tracker.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}

	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	processed := p.tracker.processed.Load()
	if elapsed := now.Sub(p.lastProcessedTime).Seconds(); elapsed > 0 {
		metrics.UpdateWorkerMessagesPerSecond(float64(processed-p.lastProcessed) / elapsed)
	}
	p.lastProcessed = processed
	p.lastProcessedTime = now
}

// Stop stops all workers without draining the queue.
func (p *Pool) Stop(ctx context.Context) {
	p.shutdownOnce.Do(func() { close(p.shutdown) })
	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker stop timed out", logger.Int("worker_id", i))
		}
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	p.shutdownOnce.Do(func() { close(p.shutdown) })

	if timedOut {
		return fmt.Errorf("worker pool drain: %w", shutdownCtx.Err())
	}
	return nil
}
