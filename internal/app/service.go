// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	attemptqueue "github.com/okian/formcheck/internal/adapters/mq/queue"
	workerpool "github.com/okian/formcheck/internal/adapters/mq/worker"
	"github.com/okian/formcheck/internal/adapters/repository"
	"github.com/okian/formcheck/internal/domain/dedupe"
	"github.com/okian/formcheck/internal/domain/evaluation"
	"github.com/okian/formcheck/internal/domain/model"
	"github.com/okian/formcheck/internal/domain/pose"
	"github.com/okian/formcheck/pkg/logger"
	"github.com/okian/formcheck/pkg/metrics"
)

// Store kinds accepted by WithStoreKind.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

const (
	defaultQueueSize  = 10_000
	defaultDedupeSize = 50_000
	defaultSQLitePath = "formcheck.db"
)

// Service implements the API dependencies for the form-check system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	deduper   dedupe.Deduper
	queue     attemptqueue.Queue
	evaluator *evaluation.Evaluator
	pool      *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	thresholds  evaluation.Thresholds
	storeKind   string
	sqlitePath  string
	customStore repository.Store
	now         func() time.Time

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the attempt queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithThresholds overrides the bicep-curl limits.
func WithThresholds(t evaluation.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = t
	}
}

// WithStoreKind selects the outcome store: StoreMemory or StoreSQLite.
func WithStoreKind(kind string) Option {
	return func(s *Service) {
		if kind != "" {
			s.storeKind = kind
		}
	}
}

// WithSQLitePath sets the database file used by the SQLite store.
func WithSQLitePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.sqlitePath = path
		}
	}
}

// WithStore injects a ready-made store; it takes precedence over WithStoreKind.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.customStore = store
	}
}

// WithClock overrides the time source used to stamp attempts.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		thresholds:  evaluation.DefaultThresholds(),
		storeKind:   StoreMemory,
		sqlitePath:  defaultSQLitePath,
		now:         time.Now,
		logger:      logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.evaluator = evaluation.New(
		evaluation.WithLogger(s.logger.Named("evaluator")),
		evaluation.WithThresholds(s.thresholds),
	)

	return s
}

// Start initializes and starts the service components. Workers run until
// Stop is called; cancelling ctx only bounds start-up.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting form-check service...")

	store, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	s.store = store
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = attemptqueue.NewInMemoryQueue(
		attemptqueue.WithCapacity(s.queueSize),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.evaluator, s.store,
		workerpool.WithLogger(s.logger),
		workerpool.WithClock(s.now),
	)
	s.pool.Start(runCtx)

	s.started = true
	t := s.evaluator.Thresholds()
	s.logger.Info(ctx, "form-check service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("store", s.storeName()),
		logger.Float64("torsoRangeThreshold", t.TorsoRange),
		logger.Float64("forearmMinThreshold", t.ForearmMin),
	)

	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	if s.customStore != nil {
		return s.customStore, nil
	}
	switch s.storeKind {
	case StoreMemory:
		return repository.NewMemoryStore(), nil
	case StoreSQLite:
		store, err := repository.NewSQLiteStore(ctx, s.sqlitePath,
			repository.WithLogger(s.logger.Named("repository")),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, s.storeKind)
	}
}

func (s *Service) storeName() string {
	if s.customStore != nil {
		return "custom"
	}
	return s.storeKind
}

// Stop closes the queue, waits for workers to drain it and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping form-check service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	if err := s.failUnevaluated(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "form-check service stopped")
	return errors.Join(errs...)
}

// failUnevaluated marks attempts the workers never received as failed so
// their outcomes do not stay pending. The store is written even when ctx has
// expired, since the shutdown timeout is usually what left them behind.
func (s *Service) failUnevaluated(ctx context.Context) error {
	left := s.queue.Drain()
	if len(left) == 0 {
		return nil
	}
	s.logger.Warn(ctx, "attempts left unevaluated at shutdown", logger.Int("count", len(left)))

	saveCtx := context.WithoutCancel(ctx)
	var errs []error
	for _, a := range left {
		o := workerpool.NewOutcome(a, evaluation.Report{}, ErrStopped, s.now())
		o.Side = ""
		metrics.RecordErrorByComponent("service", "not_evaluated")
		if err := s.store.Save(saveCtx, o); err != nil {
			errs = append(errs, fmt.Errorf("fail attempt %s: %w", a.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Evaluate judges a sequence synchronously and stores the outcome under a
// fresh attempt ID. The returned error is the evaluation error, if any; the
// outcome always carries user-facing feedback. Unknown exercises are not
// stored.
func (s *Service) Evaluate(ctx context.Context, exercise string, seq pose.Sequence) (model.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Outcome{}, ErrNotStarted
	}

	a := model.Attempt{
		ID:          uuid.NewString(),
		Exercise:    exercise,
		Sequence:    seq,
		SubmittedAt: s.now(),
	}

	// Metric labels must not carry arbitrary client strings.
	label := evaluation.ExerciseUnknown.String()
	if ex, err := evaluation.ParseExercise(exercise); err == nil {
		label = ex.String()
	}

	start := time.Now()
	report, evalErr := s.evaluator.Assess(ctx, seq, exercise)
	metrics.RecordEvaluationLatency(label, float64(time.Since(start).Microseconds())/1000)

	outcome := workerpool.NewOutcome(a, report, evalErr, s.now())
	switch {
	case evalErr != nil:
		metrics.RecordEvaluation(label, metrics.ResultFailed)
	case outcome.Correct:
		metrics.RecordEvaluation(label, metrics.ResultCorrect)
	default:
		metrics.RecordEvaluation(label, metrics.ResultIncorrect)
	}
	if errors.Is(evalErr, evaluation.ErrUnrecognizedExercise) {
		return outcome, evalErr
	}

	if err := s.store.Save(ctx, outcome); err != nil {
		s.logger.Error(ctx, "failed to store outcome",
			logger.String("attemptID", a.ID),
			logger.Error(err),
		)
		return outcome, err
	}
	return outcome, evalErr
}

// Submit queues an attempt for asynchronous evaluation and returns its ID.
// duplicate is true when the ID was already submitted; in that case nothing
// is queued. A full queue yields ErrBackpressure and forgets the ID so the
// caller may retry.
func (s *Service) Submit(ctx context.Context, a model.Attempt) (id string, duplicate bool, err error) { //nolint:gocritic // hugeParam: value semantics match the queue payload
	if _, err := evaluation.ParseExercise(a.Exercise); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", false, ErrNotStarted
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, a.ID) {
		metrics.RecordAttemptDuplicate()
		s.logger.Debug(ctx, "duplicate attempt detected, skipping", logger.String("attemptID", a.ID))
		return a.ID, true, nil
	}
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = s.now()
	}

	pending := model.Outcome{
		AttemptID:   a.ID,
		Exercise:    a.Exercise,
		Status:      model.StatusPending,
		SubmittedAt: a.SubmittedAt,
	}
	if err := s.store.Save(ctx, pending); err != nil {
		s.deduper.Unrecord(ctx, a.ID)
		return "", false, err
	}

	if !s.queue.Enqueue(ctx, a) {
		s.deduper.Unrecord(ctx, a.ID)
		if err := s.store.Delete(ctx, a.ID); err != nil {
			s.logger.Error(ctx, "failed to remove pending outcome", logger.String("attemptID", a.ID), logger.Error(err))
		}
		metrics.RecordErrorByType("backpressure", "medium")
		return "", false, ErrBackpressure
	}

	metrics.RecordAttemptSubmitted()
	s.logger.Debug(ctx, "attempt queued",
		logger.String("attemptID", a.ID),
		logger.String("exercise", a.Exercise),
		logger.Int("frames", a.Sequence.Len()),
	)
	return a.ID, false, nil
}

// Outcome returns the stored outcome for an attempt.
func (s *Service) Outcome(ctx context.Context, id string) (model.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Outcome{}, ErrNotStarted
	}
	return s.store.Get(ctx, id)
}

// Recent returns up to n outcomes, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]model.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.Recent(ctx, n)
}

// SupportedExercises lists the exercise identifiers the service can judge.
func (s *Service) SupportedExercises() []string {
	exercises := evaluation.SupportedExercises()
	ids := make([]string, 0, len(exercises))
	for _, ex := range exercises {
		ids = append(ids, ex.String())
	}
	return ids
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	t := s.evaluator.Thresholds()
	stats := map[string]interface{}{
		"started":             s.started,
		"workerCount":         s.workerCount,
		"queueSize":           s.queueSize,
		"dedupeSize":          s.dedupeSize,
		"store":               s.storeName(),
		"torsoRangeThreshold": t.TorsoRange,
		"forearmMinThreshold": t.ForearmMin,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stored := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["storedOutcomes"] = stored
		stats["processed"] = s.pool.Processed()
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoredOutcomes(stored)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
