package loadtest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/okian/formcheck/internal/domain/evaluation"
	"github.com/okian/formcheck/internal/domain/pose"
	"github.com/okian/formcheck/pkg/logger"
)

// Skeleton geometry for generated curls, in pixels and degrees.
const (
	upperArmLength = 100.0
	forearmLength  = 90.0
	restingSwing   = 10.0  // upper-arm/torso angle at the bottom of the rep
	extendedElbow  = 170.0 // upper-arm/forearm angle at the bottom of the rep
	bandMargin     = 5.0   // distance kept from every threshold
	badSwingSpan   = 30.0
	badElbowSpan   = 40.0
	minGoodSwing   = 2.0
	minGoodElbow   = 30.0
)

// Fixed joints shared by every generated frame.
var (
	neck      = r2.Vec{X: 300, Y: 150}
	hip       = r2.Vec{X: 300, Y: 400}
	shoulders = map[pose.Side]r2.Vec{
		pose.SideRight: {X: 260, Y: 170},
		pose.SideLeft:  {X: 340, Y: 170},
	}
	down = r2.Vec{X: 0, Y: 1}
)

// generateAttempts creates cfg.Attempts attempts. Attempt i is a pure
// function of cfg.Seed and i, so reruns produce the same poses.
func generateAttempts(ctx context.Context, cfg *Config, t evaluation.Thresholds, stats *Stats) ([]Attempt, error) {
	log := cfg.Logger
	log.Info(ctx, "generating attempts", logger.Int("attempts", cfg.Attempts), logger.Int("frames", cfg.Frames))

	attempts := make([]Attempt, cfg.Attempts)

	type attemptResult struct {
		index   int
		attempt Attempt
		err     error
	}
	resultChan := make(chan attemptResult, cfg.Attempts)

	workerCount := min(cfg.Workers, cfg.Attempts)
	perWorker := cfg.Attempts / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * perWorker
		end := start + perWorker
		if worker == workerCount-1 {
			end = cfg.Attempts
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- attemptResult{index: i, err: ctx.Err()}
					return
				default:
					r := rand.New(rand.NewPCG(cfg.Seed, uint64(i))) //nolint:gosec // synthetic data, not security sensitive
					resultChan <- attemptResult{index: i, attempt: generateAttempt(r, cfg.Frames, t)}
				}
			}
		}(start, end)
	}

	for i := 0; i < cfg.Attempts; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during attempt generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate attempt %d: %w", result.index, result.err)
			}
			attempts[result.index] = result.attempt
		}
	}

	stats.AttemptsGenerated = len(attempts)
	log.Info(ctx, "generated attempts successfully", logger.Int("count", len(attempts)))
	return attempts, nil
}

// generateAttempt draws each check's pass/fail independently and picks
// feature values well inside the chosen band.
func generateAttempt(r *rand.Rand, frames int, t evaluation.Thresholds) Attempt {
	goodSwing := r.IntN(2) == 0
	goodElbow := r.IntN(2) == 0

	var swing, elbow float64
	if goodSwing {
		swing = uniform(r, minGoodSwing, t.TorsoRange-bandMargin)
	} else {
		swing = uniform(r, t.TorsoRange+bandMargin, t.TorsoRange+bandMargin+badSwingSpan)
	}
	if goodElbow {
		elbow = uniform(r, minGoodElbow, t.ForearmMin-bandMargin)
	} else {
		elbow = uniform(r, t.ForearmMin+bandMargin, min(t.ForearmMin+bandMargin+badElbowSpan, extendedElbow-bandMargin))
	}

	side := pose.SideRight
	if r.IntN(2) == 0 {
		side = pose.SideLeft
	}

	return Attempt{
		AttemptID: uuid.NewString(),
		Exercise:  evaluation.ExerciseBicepCurl.String(),
		Poses:     curlPoses(side, swing, elbow, frames),
		Expected: Expectation{
			Correct: goodSwing && goodElbow,
			Side:    side.String(),
			Swing:   swing,
			Elbow:   elbow,
		},
	}
}

// curlPoses renders one repetition of a curl on one side. The upper arm
// swings from restingSwing to restingSwing+swing degrees off the torso while
// the elbow closes from extendedElbow to elbow degrees; both peak at the
// middle frame. frames is rounded up to an odd count of at least three so
// the peak is sampled.
func curlPoses(side pose.Side, swing, elbow float64, frames int) []pose.Pose {
	frames = max(frames, 3)
	if frames%2 == 0 {
		frames++
	}
	dir := 1.0
	if side == pose.SideLeft {
		dir = -1
	}
	shoulder := shoulders[side]

	poses := make([]pose.Pose, frames)
	for k := range poses {
		s := math.Sin(math.Pi * float64(k) / float64(frames-1))
		if k == (frames-1)/2 {
			s = 1
		}
		torsoAngle := restingSwing + swing*s
		elbowAngle := extendedElbow - (extendedElbow-elbow)*s

		elbowPos := r2.Rotate(r2.Add(shoulder, r2.Scale(upperArmLength, down)), radians(torsoAngle)*dir, shoulder)
		upperArm := r2.Unit(r2.Sub(shoulder, elbowPos))
		wristPos := r2.Rotate(r2.Add(elbowPos, r2.Scale(forearmLength, upperArm)), radians(elbowAngle)*dir, elbowPos)

		p := &poses[k]
		p.Neck = joint(neck)
		if side == pose.SideRight {
			p.RShoulder, p.RElbow, p.RWrist, p.RHip = joint(shoulder), joint(elbowPos), joint(wristPos), joint(hip)
		} else {
			p.LShoulder, p.LElbow, p.LWrist, p.LHip = joint(shoulder), joint(elbowPos), joint(wristPos), joint(hip)
		}
	}
	return poses
}

func joint(v r2.Vec) pose.Joint { return pose.Joint{X: v.X, Y: v.Y, Exists: true} }

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func uniform(r *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + r.Float64()*(hi-lo)
}
