package loadtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/formcheck/pkg/logger"
)

// Verification failures.
var (
	ErrNoOutcomes = errors.New("no outcomes to verify")
	ErrMismatch   = errors.New("verdicts disagree with generated ground truth")
	ErrIncomplete = errors.New("attempts left unevaluated")
)

// verifyResults compares every retrieved outcome with the verdict its
// attempt was generated for.
func verifyResults(ctx context.Context, cfg *Config, attempts []Attempt, outcomes map[string]Outcome, stats *Stats) error {
	log := cfg.Logger
	log.Info(ctx, "verifying results")

	if len(outcomes) == 0 {
		return ErrNoOutcomes
	}

	for i := range attempts {
		a := &attempts[i]
		o, ok := outcomes[a.AttemptID]
		if !ok {
			continue
		}
		if mismatch := compare(a.Expected, o); mismatch != "" {
			stats.VerdictsMismatched++
			if cfg.Verbose || stats.VerdictsMismatched == 1 {
				log.Warn(ctx, "verdict mismatch",
					logger.String("attemptID", a.AttemptID),
					logger.String("reason", mismatch),
					logger.Float64("swing", a.Expected.Swing),
					logger.Float64("elbow", a.Expected.Elbow),
					logger.Float64("torso_range", o.TorsoRange),
					logger.Float64("forearm_min", o.ForearmMin),
				)
			}
			continue
		}
		stats.VerdictsMatched++
	}

	var errs []error
	if stats.VerdictsMismatched > 0 {
		errs = append(errs, fmt.Errorf("%w: %d of %d", ErrMismatch, stats.VerdictsMismatched, len(outcomes)))
	}
	if stats.OutcomesPending > 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrIncomplete, stats.OutcomesPending))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	log.Info(ctx, "result verification completed", logger.Int("matched", stats.VerdictsMatched))
	return nil
}

// compare returns why o disagrees with e, or "" when it agrees.
func compare(e Expectation, o Outcome) string {
	switch {
	case o.Status != "evaluated":
		return fmt.Sprintf("status %s: %s", o.Status, o.Error)
	case o.Correct != e.Correct:
		return fmt.Sprintf("correct=%t, want %t", o.Correct, e.Correct)
	case o.Side != e.Side:
		return fmt.Sprintf("side %s, want %s", o.Side, e.Side)
	}
	return ""
}
