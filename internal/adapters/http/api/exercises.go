package api

import "net/http"

// ExerciseDependencies lists the exercises the service can judge.
type ExerciseDependencies interface {
	SupportedExercises() []string
}

// ExercisesHandler handles exercise listing requests.
type ExercisesHandler struct {
	deps ExerciseDependencies
}

// NewExercisesHandler creates a new exercises handler.
func NewExercisesHandler(deps ExerciseDependencies) *ExercisesHandler {
	return &ExercisesHandler{deps: deps}
}

type exercisesResponse struct {
	Exercises []string `json:"exercises"`
}

// HandleExercises handles GET /exercises requests.
func (h *ExercisesHandler) HandleExercises(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, exercisesResponse{Exercises: h.deps.SupportedExercises()})
}
