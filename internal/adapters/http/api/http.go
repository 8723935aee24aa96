// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/formcheck/internal/domain/model"
	"github.com/okian/formcheck/internal/domain/pose"
)

// Request body and listing limits.
const (
	maxBodyBytes    = 8 << 20
	DefaultMaxLimit = 100
	defaultLimit    = 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EvaluateDependencies
	AttemptDependencies
	ExerciseDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	evaluateHandler  *EvaluateHandler
	attemptsHandler  *AttemptsHandler
	exercisesHandler *ExercisesHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// size of GET /attempts listings; values below 1 use DefaultMaxLimit.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		evaluateHandler:  NewEvaluateHandler(deps),
		attemptsHandler:  NewAttemptsHandler(deps, maxLimit),
		exercisesHandler: NewExercisesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/evaluate", MetricsMiddleware(s.evaluateHandler.HandleEvaluate, "evaluate"))
	mux.HandleFunc("/attempts", MetricsMiddleware(s.attemptsHandler.HandleAttempts, "attempts"))
	mux.HandleFunc("/attempts/", MetricsMiddleware(s.attemptsHandler.HandleGetAttempt, "attempt"))
	mux.HandleFunc("/exercises", MetricsMiddleware(s.exercisesHandler.HandleExercises, "exercises"))
}

// attemptRequest mirrors the OpenAPI schema shared by POST /evaluate and
// POST /attempts. Exactly one of Poses or Keypoints carries the frames.
type attemptRequest struct {
	AttemptID string        `json:"attempt_id"`
	Exercise  string        `json:"exercise"`
	Poses     []pose.Pose   `json:"poses"`
	Keypoints [][][]float64 `json:"keypoints"`
}

func (a *attemptRequest) validate() error {
	switch {
	case strings.TrimSpace(a.Exercise) == "":
		return errors.New("missing exercise")
	case a.Poses != nil && a.Keypoints != nil:
		return errors.New("poses and keypoints are mutually exclusive")
	}
	return nil
}

func (a *attemptRequest) sequence() (pose.Sequence, error) {
	if a.Keypoints != nil {
		seq, err := pose.FromKeypoints(a.Keypoints)
		if err != nil {
			return pose.Sequence{}, fmt.Errorf("keypoints: %w", err)
		}
		return seq, nil
	}
	return pose.Sequence{Poses: a.Poses}, nil
}

// decodeAttempt reads and validates an attempt body.
func decodeAttempt(w http.ResponseWriter, r *http.Request) (attemptRequest, pose.Sequence, error) {
	var req attemptRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, pose.Sequence{}, err
	}
	if err := req.validate(); err != nil {
		return req, pose.Sequence{}, err
	}
	seq, err := req.sequence()
	if err != nil {
		return req, pose.Sequence{}, err
	}
	return req, seq, nil
}

// outcomeResponse is the wire form of a stored outcome.
type outcomeResponse struct {
	AttemptID     string   `json:"attempt_id"`
	Exercise      string   `json:"exercise"`
	Status        string   `json:"status"`
	Correct       bool     `json:"correct"`
	Feedback      string   `json:"feedback,omitempty"`
	Findings      []string `json:"findings,omitempty"`
	Side          string   `json:"side,omitempty"`
	TorsoRange    float64  `json:"torso_range"`
	ForearmMin    float64  `json:"forearm_min"`
	Frames        int      `json:"frames"`
	SkippedFrames int      `json:"skipped_frames"`
	Error         string   `json:"error,omitempty"`
	SubmittedAt   string   `json:"submitted_at,omitempty"`
	EvaluatedAt   string   `json:"evaluated_at,omitempty"`
}

func newOutcomeResponse(o model.Outcome) outcomeResponse { //nolint:gocritic // hugeParam: read-only copy
	return outcomeResponse{
		AttemptID:     o.AttemptID,
		Exercise:      o.Exercise,
		Status:        string(o.Status),
		Correct:       o.Correct,
		Feedback:      o.Feedback,
		Findings:      o.Findings,
		Side:          o.Side,
		TorsoRange:    o.TorsoRange,
		ForearmMin:    o.ForearmMin,
		Frames:        o.Frames,
		SkippedFrames: o.SkippedFrames,
		Error:         o.Error,
		SubmittedAt:   formatTime(o.SubmittedAt),
		EvaluatedAt:   formatTime(o.EvaluatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

type ackResponse struct {
	Status    string `json:"status"`
	AttemptID string `json:"attempt_id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
