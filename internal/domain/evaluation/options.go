package evaluation

import "github.com/okian/formcheck/pkg/logger"

// Default bicep-curl thresholds in degrees, derived from reference attempts.
const (
	DefaultTorsoRangeThreshold = 35.0
	DefaultForearmMinThreshold = 70.0
)

// Thresholds holds the decision limits of the bicep-curl check. A feature
// fires only when strictly greater than its limit.
type Thresholds struct {
	// TorsoRange limits the spread of the upper-arm/torso angle.
	TorsoRange float64
	// ForearmMin limits the smallest upper-arm/forearm angle.
	ForearmMin float64
}

// DefaultThresholds returns the stock limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TorsoRange: DefaultTorsoRangeThreshold,
		ForearmMin: DefaultForearmMinThreshold,
	}
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger that receives diagnostics (side, features).
func WithLogger(l logger.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithThresholds overrides the bicep-curl limits. Non-positive fields keep
// their defaults.
func WithThresholds(t Thresholds) Option {
	return func(e *Evaluator) {
		if t.TorsoRange > 0 {
			e.thresholds.TorsoRange = t.TorsoRange
		}
		if t.ForearmMin > 0 {
			e.thresholds.ForearmMin = t.ForearmMin
		}
	}
}
