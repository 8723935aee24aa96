// Package repository stores evaluation outcomes keyed by attempt ID.
package repository

import (
	"context"

	"github.com/okian/formcheck/internal/domain/model"
)

// Store provides read/write access to attempt outcomes.
type Store interface {
	// Save inserts or replaces the outcome for o.AttemptID.
	Save(ctx context.Context, o model.Outcome) error

	// Get returns the outcome for an attempt.
	// Returns ErrNotFound if the attempt is unknown.
	Get(ctx context.Context, attemptID string) (model.Outcome, error)

	// Delete removes an outcome. Deleting an unknown attempt is not an error.
	Delete(ctx context.Context, attemptID string) error

	// Recent returns up to n outcomes, most recently submitted first.
	Recent(ctx context.Context, n int) ([]model.Outcome, error)

	// Count returns the number of stored outcomes.
	Count(ctx context.Context) int

	// Close releases the store's resources.
	Close() error
}
