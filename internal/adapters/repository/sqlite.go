package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/formcheck/internal/domain/model"
	"github.com/okian/formcheck/pkg/logger"
	"github.com/okian/formcheck/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	attempt_id     TEXT PRIMARY KEY,
	exercise       TEXT NOT NULL,
	status         TEXT NOT NULL,
	correct        INTEGER NOT NULL,
	feedback       TEXT NOT NULL,
	findings_json  TEXT,
	side           TEXT,
	torso_range    REAL NOT NULL DEFAULT 0,
	forearm_min    REAL NOT NULL DEFAULT 0,
	frames         INTEGER NOT NULL DEFAULT 0,
	skipped_frames INTEGER NOT NULL DEFAULT 0,
	error          TEXT,
	submitted_at   TEXT NOT NULL,
	evaluated_at   TEXT
);

CREATE INDEX IF NOT EXISTS outcomes_submitted_at ON outcomes (submitted_at DESC);
`

const upsertOutcome = `
INSERT INTO outcomes (
	attempt_id, exercise, status, correct, feedback, findings_json, side,
	torso_range, forearm_min, frames, skipped_frames, error, submitted_at, evaluated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (attempt_id) DO UPDATE SET
	exercise       = excluded.exercise,
	status         = excluded.status,
	correct        = excluded.correct,
	feedback       = excluded.feedback,
	findings_json  = excluded.findings_json,
	side           = excluded.side,
	torso_range    = excluded.torso_range,
	forearm_min    = excluded.forearm_min,
	frames         = excluded.frames,
	skipped_frames = excluded.skipped_frames,
	error          = excluded.error,
	submitted_at   = excluded.submitted_at,
	evaluated_at   = excluded.evaluated_at
`

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectOutcome = `
SELECT attempt_id, exercise, status, correct, feedback, findings_json, side,
	torso_range, forearm_min, frames, skipped_frames, error, submitted_at, evaluated_at
FROM outcomes`

// SQLiteStore persists outcomes in a SQLite database file.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	logger      logger.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and
// migrates its schema. path may be ":memory:".
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeout: defaultBusyTimeout,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection serialises writers and keeps ":memory:" databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", s.busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.db = db

	s.logger.Info(ctx, "sqlite store opened", logger.String("path", path))
	return s, nil
}

// Save inserts or replaces an outcome.
func (s *SQLiteStore) Save(ctx context.Context, o model.Outcome) error { //nolint:gocritic // hugeParam: stored by value
	if o.AttemptID == "" {
		return ErrInvalidID
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	var findings sql.NullString
	if len(o.Findings) > 0 {
		b, err := json.Marshal(o.Findings)
		if err != nil {
			return fmt.Errorf("marshal findings: %w", err)
		}
		findings = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, upsertOutcome,
		o.AttemptID, o.Exercise, string(o.Status), o.Correct, o.Feedback, findings, o.Side,
		o.TorsoRange, o.ForearmMin, o.Frames, o.SkippedFrames, nullString(o.Error),
		formatTime(o.SubmittedAt), nullString(formatTime(o.EvaluatedAt)),
	)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "write_failed")
		return fmt.Errorf("save outcome %s: %w", o.AttemptID, err)
	}
	return nil
}

// Get returns the outcome for attemptID.
func (s *SQLiteStore) Get(ctx context.Context, attemptID string) (model.Outcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	o, err := scanOutcome(s.db.QueryRowContext(ctx, selectOutcome+" WHERE attempt_id = ?", attemptID))
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Outcome{}, fmt.Errorf("%w: %s", ErrNotFound, attemptID)
	}
	if err != nil {
		return model.Outcome{}, fmt.Errorf("get outcome %s: %w", attemptID, err)
	}
	return o, nil
}

// Delete removes the outcome for attemptID.
func (s *SQLiteStore) Delete(ctx context.Context, attemptID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM outcomes WHERE attempt_id = ?", attemptID); err != nil {
		metrics.RecordErrorByComponent("repository", "write_failed")
		return fmt.Errorf("delete outcome %s: %w", attemptID, err)
	}
	return nil
}

// Recent returns up to n outcomes ordered by submission time, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]model.Outcome, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	rows, err := s.db.QueryContext(ctx, selectOutcome+" ORDER BY submitted_at DESC, attempt_id ASC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []model.Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

// Count returns the number of stored outcomes, or 0 if the query fails.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM outcomes").Scan(&n); err != nil {
		s.logger.Error(ctx, "count outcomes", logger.Error(err))
		return 0
	}
	metrics.UpdateStoredOutcomes(n)
	return n
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutcome(r rowScanner) (model.Outcome, error) {
	var (
		o                       model.Outcome
		status                  string
		findings, side, errText sql.NullString
		submitted, evaluated    sql.NullString
	)
	err := r.Scan(
		&o.AttemptID, &o.Exercise, &status, &o.Correct, &o.Feedback, &findings, &side,
		&o.TorsoRange, &o.ForearmMin, &o.Frames, &o.SkippedFrames, &errText, &submitted, &evaluated,
	)
	if err != nil {
		return model.Outcome{}, err
	}
	o.Status = model.Status(status)
	o.Side = side.String
	o.Error = errText.String
	if findings.Valid && findings.String != "" {
		if err := json.Unmarshal([]byte(findings.String), &o.Findings); err != nil {
			return model.Outcome{}, fmt.Errorf("decode findings: %w", err)
		}
	}
	if o.SubmittedAt, err = parseTime(submitted.String); err != nil {
		return model.Outcome{}, err
	}
	if o.EvaluatedAt, err = parseTime(evaluated.String); err != nil {
		return model.Outcome{}, err
	}
	return o, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
