// Package loadtest drives a running formcheck service with synthetic curl
// attempts and verifies the verdicts it returns.
package loadtest

import (
	"time"

	"github.com/okian/formcheck/internal/domain/pose"
	"github.com/okian/formcheck/pkg/logger"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Attempts     int           // Number of attempts to generate
	Frames       int           // Frames per attempt, at least 3
	Workers      int           // Number of concurrent HTTP workers
	Timeout      time.Duration // HTTP request timeout
	Wait         time.Duration // How long to wait for outcomes
	PollInterval time.Duration // Delay between outcome polls
	Duplicates   int           // Resubmit every Nth attempt; 0 disables
	Seed         uint64        // Seed for reproducible attempts
	OutputFile   string        // Optional file for generated attempts
	Verbose      bool          // Log every mismatch and failure
	Logger       logger.Logger // Progress and result logging; nil discards
}

// Attempt is a generated submission together with its ground truth.
type Attempt struct {
	AttemptID string      `json:"attempt_id"`
	Exercise  string      `json:"exercise"`
	Poses     []pose.Pose `json:"poses"`

	Expected Expectation `json:"-"`
}

// Expectation is the verdict a correct evaluator must reach.
type Expectation struct {
	Correct bool    `json:"correct"`
	Side    string  `json:"side"`
	Swing   float64 `json:"swing"`
	Elbow   float64 `json:"elbow"`
}

// AckResponse represents the response from attempt submission.
type AckResponse struct {
	Status    string `json:"status"`
	AttemptID string `json:"attempt_id"`
	Duplicate bool   `json:"duplicate"`
}

// Outcome is the subset of the stored outcome the test checks.
type Outcome struct {
	AttemptID  string  `json:"attempt_id"`
	Status     string  `json:"status"`
	Correct    bool    `json:"correct"`
	Side       string  `json:"side"`
	TorsoRange float64 `json:"torso_range"`
	ForearmMin float64 `json:"forearm_min"`
	Error      string  `json:"error"`
}

// Stats holds test statistics.
type Stats struct {
	AttemptsGenerated  int
	AttemptsSubmitted  int
	AttemptsAccepted   int
	AttemptsDuplicate  int
	AttemptsRejected   int
	AttemptsFailed     int
	OutcomesRetrieved  int
	OutcomesPending    int
	VerdictsMatched    int
	VerdictsMismatched int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
