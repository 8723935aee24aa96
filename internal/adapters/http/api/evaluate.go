package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/formcheck/internal/domain/evaluation"
	"github.com/okian/formcheck/internal/domain/model"
	"github.com/okian/formcheck/internal/domain/pose"
)

// EvaluateDependencies defines the interface for synchronous evaluation.
type EvaluateDependencies interface {
	Evaluate(ctx context.Context, exercise string, seq pose.Sequence) (model.Outcome, error)
}

// EvaluateHandler handles evaluate requests.
type EvaluateHandler struct {
	deps EvaluateDependencies
}

// NewEvaluateHandler creates a new evaluate handler.
func NewEvaluateHandler(deps EvaluateDependencies) *EvaluateHandler {
	return &EvaluateHandler{deps: deps}
}

// HandleEvaluate handles POST /evaluate requests.
//
// An unrecognised exercise is a verdict, not a failure: it answers 200 with
// correct=false and the fixed not-recognised feedback.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, seq, err := decodeAttempt(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	outcome, err := h.deps.Evaluate(r.Context(), req.Exercise, seq)
	switch {
	case err == nil, errors.Is(err, evaluation.ErrUnrecognizedExercise):
		writeJSON(w, http.StatusOK, newOutcomeResponse(outcome))
	case errors.Is(err, evaluation.ErrInsufficientData):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: "insufficient_data", Message: evaluation.Message(err)})
	case errors.Is(err, evaluation.ErrDegenerateGeometry):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Code: "degenerate_geometry", Message: evaluation.Message(err)})
	default:
		writeServiceError(w, op, err)
	}
}
