package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/formcheck/internal/domain/model"
	"github.com/okian/formcheck/pkg/metrics"
)

// MemoryStore is a map-backed Store. Outcomes are copied on the way in and
// out so callers never share slices with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	outcomes map[string]model.Outcome
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{outcomes: make(map[string]model.Outcome)}
}

// Save inserts or replaces an outcome.
func (s *MemoryStore) Save(_ context.Context, o model.Outcome) error { //nolint:gocritic // hugeParam: stored by value
	if o.AttemptID == "" {
		return ErrInvalidID
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.Lock()
	s.outcomes[o.AttemptID] = clone(o)
	n := len(s.outcomes)
	s.mu.Unlock()

	metrics.UpdateStoredOutcomes(n)
	return nil
}

// Get returns the outcome for attemptID.
func (s *MemoryStore) Get(_ context.Context, attemptID string) (model.Outcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	o, ok := s.outcomes[attemptID]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Outcome{}, fmt.Errorf("%w: %s", ErrNotFound, attemptID)
	}
	return clone(o), nil
}

// Delete removes the outcome for attemptID.
func (s *MemoryStore) Delete(_ context.Context, attemptID string) error {
	s.mu.Lock()
	delete(s.outcomes, attemptID)
	n := len(s.outcomes)
	s.mu.Unlock()

	metrics.UpdateStoredOutcomes(n)
	return nil
}

// Recent returns up to n outcomes ordered by submission time, newest first.
// Ties are broken by attempt ID.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]model.Outcome, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	all := make([]model.Outcome, 0, len(s.outcomes))
	for _, o := range s.outcomes {
		all = append(all, o)
	}
	s.mu.RUnlock()

	slices.SortFunc(all, func(a, b model.Outcome) int {
		if c := b.SubmittedAt.Compare(a.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.AttemptID, b.AttemptID)
	})
	if len(all) > n {
		all = all[:n]
	}
	for i := range all {
		all[i] = clone(all[i])
	}
	return all, nil
}

// Count returns the number of stored outcomes.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outcomes)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func clone(o model.Outcome) model.Outcome { //nolint:gocritic // hugeParam: value copy is the point
	o.Findings = slices.Clone(o.Findings)
	return o
}
