// Package evaluation judges whether a pose sequence is a correctly performed
// repetition of an exercise and produces feedback for the athlete.
//
// An Evaluator is stateless after construction and safe for concurrent use.
// It never mutates the sequences it is given.
package evaluation

import (
	"context"
	"errors"

	"github.com/okian/formcheck/internal/domain/pose"
	"github.com/okian/formcheck/pkg/logger"
)

// Messages returned by Evaluate for conditions that are not exercise feedback.
const (
	MessageUnrecognized = "Exercise String Not Recognized!!!"
	MessageInsufficient = "Insufficient pose data: no frame contains the shoulder, elbow, wrist, hip and neck of the tracked arm."
	MessageDegenerate   = "Degenerate pose data: the tracked arm's joints coincide in every usable frame."
)

// Finding names one failed form check.
type Finding string

const (
	FindingShoulderRotation Finding = "shoulder_rotation"
	FindingIncompleteCurl   Finding = "incomplete_curl"
)

// Report is the detailed outcome of one evaluation.
type Report struct {
	Exercise Exercise
	Correct  bool
	Feedback string
	Findings []Finding

	// Side is the arm the routine judged.
	Side pose.Side
	// TorsoRange is max-min of the upper-arm/torso angle, in degrees.
	TorsoRange float64
	// ForearmMin is the smallest upper-arm/forearm angle, in degrees.
	ForearmMin float64
	// Frames counts frames that contributed angles.
	Frames int
	// SkippedFrames counts complete frames dropped for zero-length limbs.
	SkippedFrames int
}

type handler func(ctx context.Context, seq pose.Sequence) (Report, error)

// Evaluator dispatches a pose sequence to the routine for its exercise.
type Evaluator struct {
	logger     logger.Logger
	thresholds Thresholds
	handlers   map[Exercise]handler
}

// New creates an Evaluator with configuration options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		logger:     logger.Nop(),
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.handlers = map[Exercise]handler{
		ExerciseBicepCurl: e.bicepCurl,
	}
	return e
}

// Thresholds returns the limits in effect.
func (e *Evaluator) Thresholds() Thresholds { return e.thresholds }

// Evaluate returns whether seq is a correct repetition of exercise and a
// non-empty, human-readable feedback string. Every failure, including an
// unknown exercise name, is reported as (false, message).
func (e *Evaluator) Evaluate(ctx context.Context, seq pose.Sequence, exercise string) (bool, string) {
	report, err := e.Assess(ctx, seq, exercise)
	if err != nil {
		return false, Message(err)
	}
	return report.Correct, report.Feedback
}

// Assess runs the routine for exercise and returns the full report. Errors
// wrap ErrUnrecognizedExercise, ErrInsufficientData or ErrDegenerateGeometry.
func (e *Evaluator) Assess(ctx context.Context, seq pose.Sequence, exercise string) (Report, error) {
	ex, err := ParseExercise(exercise)
	if err != nil {
		return Report{}, err
	}
	return e.AssessExercise(ctx, seq, ex)
}

// AssessExercise is Assess for an already parsed exercise.
func (e *Evaluator) AssessExercise(ctx context.Context, seq pose.Sequence, ex Exercise) (Report, error) {
	h, ok := e.handlers[ex]
	if !ok {
		return Report{}, ErrUnrecognizedExercise
	}
	report, err := h(ctx, seq)
	report.Exercise = ex
	return report, err
}

// Message maps an evaluation error onto the text Evaluate reports.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrUnrecognizedExercise):
		return MessageUnrecognized
	case errors.Is(err, ErrInsufficientData):
		return MessageInsufficient
	case errors.Is(err, ErrDegenerateGeometry):
		return MessageDegenerate
	default:
		return err.Error()
	}
}
