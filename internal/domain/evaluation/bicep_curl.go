package evaluation

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/formcheck/internal/domain/pose"
	"github.com/okian/formcheck/pkg/logger"
)

// Bicep-curl feedback text.
const (
	FeedbackShoulderRotation = "Your upper arm shows Significant Rotation around the shoulder when curling. " +
		"Try holding your upper arm still, parallel to your chest, and concentrate on rotating around your elbow only.\n"
	FeedbackIncompleteCurl = "You are Not Curling the weight all the way to the Top, up to your shoulders. " +
		"Try to curl your arm completely so that your forearm is parallel with your torso. It may help to use lighter weight.\n"
	FeedbackBicepCurlCorrect = "Exercise performed Correctly!!! Weight was lifted fully up, and upper arm did not move significantly!!!"
)

// bicepCurl judges a curl by how far the upper arm swings against the torso
// and how tightly the elbow closes.
func (e *Evaluator) bicepCurl(ctx context.Context, seq pose.Sequence) (Report, error) {
	side := selectSide(seq)
	e.logger.Debug(ctx, "exercise arm detected", logger.String("side", side.String()))

	report := Report{Side: side}

	frames := armFrames(seq, side)
	if len(frames) == 0 {
		return report, fmt.Errorf("%w: %d frames, none with %s shoulder, elbow, wrist, hip and neck",
			ErrInsufficientData, seq.Len(), side)
	}

	torsoAngles := make([]float64, 0, len(frames))
	forearmAngles := make([]float64, 0, len(frames))
	lastDegenerate := -1
	for _, f := range frames {
		torso, forearm, ok := f.angles()
		if !ok {
			report.SkippedFrames++
			lastDegenerate = f.index
			continue
		}
		torsoAngles = append(torsoAngles, torso)
		forearmAngles = append(forearmAngles, forearm)
	}
	if report.SkippedFrames > 0 {
		e.logger.Debug(ctx, "skipped frames with zero-length limbs",
			logger.Int("skipped", report.SkippedFrames),
			logger.Int("last_frame", lastDegenerate),
		)
	}
	if len(torsoAngles) == 0 {
		return report, fmt.Errorf("%w: all %d usable frames have coincident joints (last at frame %d)",
			ErrDegenerateGeometry, len(frames), lastDegenerate)
	}

	report.Frames = len(torsoAngles)
	report.TorsoRange = floats.Max(torsoAngles) - floats.Min(torsoAngles)
	report.ForearmMin = floats.Min(forearmAngles)

	e.logger.Debug(ctx, "bicep curl features",
		logger.Float64("torso_range", report.TorsoRange),
		logger.Float64("forearm_min", report.ForearmMin),
		logger.Int("frames", report.Frames),
	)

	report.Correct, report.Feedback, report.Findings = classifyBicepCurl(report.TorsoRange, report.ForearmMin, e.thresholds)
	return report, nil
}

// classifyBicepCurl applies both checks independently; feedback accumulates.
func classifyBicepCurl(torsoRange, forearmMin float64, t Thresholds) (bool, string, []Finding) {
	var (
		feedback strings.Builder
		findings []Finding
	)
	if torsoRange > t.TorsoRange {
		findings = append(findings, FindingShoulderRotation)
		feedback.WriteString(FeedbackShoulderRotation)
	}
	if forearmMin > t.ForearmMin {
		findings = append(findings, FindingIncompleteCurl)
		feedback.WriteString(FeedbackIncompleteCurl)
	}
	if len(findings) == 0 {
		return true, FeedbackBicepCurlCorrect, nil
	}
	return false, feedback.String(), findings
}
