package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/formcheck/internal/adapters/repository"
	service "github.com/okian/formcheck/internal/app"
	"github.com/okian/formcheck/internal/domain/evaluation"
	"github.com/okian/formcheck/internal/domain/model"
)

// AttemptDependencies defines the interface for asynchronous attempts.
type AttemptDependencies interface {
	Submit(ctx context.Context, a model.Attempt) (id string, duplicate bool, err error)
	Outcome(ctx context.Context, id string) (model.Outcome, error)
	Recent(ctx context.Context, n int) ([]model.Outcome, error)
}

// AttemptsHandler handles attempt submission and lookup.
type AttemptsHandler struct {
	deps     AttemptDependencies
	maxLimit int
}

// NewAttemptsHandler creates a new attempts handler.
func NewAttemptsHandler(deps AttemptDependencies, maxLimit int) *AttemptsHandler {
	if maxLimit < 1 {
		maxLimit = DefaultMaxLimit
	}
	return &AttemptsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleAttempts handles POST /attempts and GET /attempts?limit=N.
func (h *AttemptsHandler) HandleAttempts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmit(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *AttemptsHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_attempt"
	req, seq, err := decodeAttempt(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	id, duplicate, err := h.deps.Submit(r.Context(), model.Attempt{
		ID:       strings.TrimSpace(req.AttemptID),
		Exercise: req.Exercise,
		Sequence: seq,
	})
	switch {
	case err == nil && duplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", AttemptID: id, Duplicate: true})
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", AttemptID: id})
	case errors.Is(err, evaluation.ErrUnrecognizedExercise):
		writeError(w, http.StatusBadRequest, "unknown_exercise", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	default:
		writeServiceError(w, op, err)
	}
}

func (h *AttemptsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_attempts"
	n := min(defaultLimit, h.maxLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	outcomes, err := h.deps.Recent(r.Context(), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	out := make([]outcomeResponse, 0, len(outcomes))
	for i := range outcomes {
		out = append(out, newOutcomeResponse(outcomes[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetAttempt handles GET /attempts/{id} requests.
func (h *AttemptsHandler) HandleGetAttempt(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_attempt"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/attempts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	outcome, err := h.deps.Outcome(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newOutcomeResponse(outcome))
}

// writeServiceError translates errors shared by every service call.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
