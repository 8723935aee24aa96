// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/formcheck/internal/domain/pose"
)

// Status is the lifecycle state of a submitted attempt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusEvaluated Status = "evaluated"
	StatusFailed    Status = "failed"
)

// Attempt is one exercise repetition submitted for evaluation.
type Attempt struct {
	ID          string        // unique id for idempotency
	Exercise    string        // exercise identifier, e.g. "bicep_curl"
	Sequence    pose.Sequence // frames from the pose estimator
	SubmittedAt time.Time
}

// Outcome is the stored verdict for an attempt.
type Outcome struct {
	AttemptID string
	Exercise  string
	Status    Status
	Correct   bool
	Feedback  string
	Findings  []string

	Side          string
	TorsoRange    float64
	ForearmMin    float64
	Frames        int
	SkippedFrames int

	// Error holds the reason a failed attempt could not be judged.
	Error string

	SubmittedAt time.Time
	EvaluatedAt time.Time
}

// Done reports whether the attempt has left the pending state.
func (o Outcome) Done() bool { return o.Status != StatusPending }
