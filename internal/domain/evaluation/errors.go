package evaluation

import "errors"

// Sentinel kinds for evaluation errors. All of them describe expected states
// of valid input and are reported to callers, never raised as faults.
var (
	// ErrUnrecognizedExercise is returned for exercise names outside the supported set.
	ErrUnrecognizedExercise = errors.New("exercise not recognized")
	// ErrInsufficientData is returned when no frame carries every joint the routine needs.
	ErrInsufficientData = errors.New("insufficient pose data")
	// ErrDegenerateGeometry is returned when every usable frame has coincident joints.
	ErrDegenerateGeometry = errors.New("degenerate joint geometry")
)
