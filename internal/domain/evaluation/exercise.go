package evaluation

import "fmt"

// Exercise enumerates the exercises the evaluator can judge.
type Exercise int

const (
	ExerciseUnknown Exercise = iota
	ExerciseBicepCurl
)

var exerciseIDs = map[Exercise]string{
	ExerciseBicepCurl: "bicep_curl",
}

// String returns the wire identifier, e.g. "bicep_curl".
func (e Exercise) String() string {
	if id, ok := exerciseIDs[e]; ok {
		return id
	}
	return "unknown"
}

// ParseExercise maps an identifier onto its Exercise. Matching is exact.
func ParseExercise(name string) (Exercise, error) {
	for ex, id := range exerciseIDs {
		if id == name {
			return ex, nil
		}
	}
	return ExerciseUnknown, fmt.Errorf("%w: %q", ErrUnrecognizedExercise, name)
}

// SupportedExercises lists every known exercise in declaration order.
func SupportedExercises() []Exercise {
	out := make([]Exercise, 0, len(exerciseIDs))
	for ex := ExerciseUnknown + 1; ; ex++ {
		if _, ok := exerciseIDs[ex]; !ok {
			return out
		}
		out = append(out, ex)
	}
}
