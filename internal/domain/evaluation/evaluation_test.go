package evaluation_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/formcheck/internal/domain/evaluation"
	"github.com/okian/formcheck/internal/domain/pose"
	. "github.com/smartystreets/goconvey/convey"
)

// curlFrame builds a pose whose side arm forms the given upper-arm/torso and
// upper-arm/forearm angles, in degrees.
func curlFrame(side pose.Side, torsoDeg, forearmDeg float64) pose.Pose {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	elbow := pose.Joint{X: 100, Y: 100, Exists: true}
	// upper arm points along +Y from the elbow
	shoulder := pose.Joint{X: 100, Y: 140, Exists: true}
	wrist := pose.Joint{X: 100 + 30*math.Sin(rad(forearmDeg)), Y: 100 + 30*math.Cos(rad(forearmDeg)), Exists: true}
	hip := pose.Joint{X: 200, Y: 0, Exists: true}
	neck := pose.Joint{X: 200 + 80*math.Sin(rad(torsoDeg)), Y: 80 * math.Cos(rad(torsoDeg)), Exists: true}

	p := pose.Pose{Neck: neck}
	if side == pose.SideRight {
		p.RShoulder, p.RElbow, p.RWrist, p.RHip = shoulder, elbow, wrist, hip
	} else {
		p.LShoulder, p.LElbow, p.LWrist, p.LHip = shoulder, elbow, wrist, hip
	}
	return p
}

func curl(side pose.Side, torso, forearm []float64) pose.Sequence {
	seq := pose.Sequence{}
	for i := range torso {
		seq.Poses = append(seq.Poses, curlFrame(side, torso[i], forearm[i]))
	}
	return seq
}

func TestEvaluate_Dispatch(t *testing.T) {
	Convey("Given an evaluator", t, func() {
		ev := evaluation.New()
		ctx := context.Background()
		good := curl(pose.SideRight, []float64{10, 10, 10}, []float64{150, 20, 150})

		Convey("When the exercise name is not supported", func() {
			for _, name := range []string{"", "squat", "Bicep_Curl", "bicep_curl ", "bicep curl"} {
				correct, feedback := ev.Evaluate(ctx, good, name)

				Convey("Then "+name+" is reported as not recognized", func() {
					So(correct, ShouldBeFalse)
					So(feedback, ShouldEqual, "Exercise String Not Recognized!!!")
				})
			}
		})

		Convey("When the exercise name is not supported and the sequence is empty", func() {
			correct, feedback := ev.Evaluate(ctx, pose.Sequence{}, "deadlift")

			Convey("Then the result does not depend on pose content", func() {
				So(correct, ShouldBeFalse)
				So(feedback, ShouldEqual, evaluation.MessageUnrecognized)
			})
		})

		Convey("When Assess is called with an unknown name", func() {
			_, err := ev.Assess(ctx, good, "squat")

			Convey("Then the error wraps ErrUnrecognizedExercise", func() {
				So(errors.Is(err, evaluation.ErrUnrecognizedExercise), ShouldBeTrue)
			})
		})

		Convey("When AssessExercise is called with ExerciseUnknown", func() {
			_, err := ev.AssessExercise(ctx, good, evaluation.ExerciseUnknown)

			Convey("Then the error wraps ErrUnrecognizedExercise", func() {
				So(errors.Is(err, evaluation.ErrUnrecognizedExercise), ShouldBeTrue)
			})
		})
	})
}

func TestEvaluate_BicepCurlScenarios(t *testing.T) {
	Convey("Given an evaluator with default thresholds", t, func() {
		ev := evaluation.New()
		ctx := context.Background()

		Convey("When the right arm is steady and curls to 20 degrees", func() {
			seq := curl(pose.SideRight,
				[]float64{10, 10, 10, 10, 10},
				[]float64{170, 120, 20, 90, 165},
			)
			correct, feedback := ev.Evaluate(ctx, seq, "bicep_curl")
			report, err := ev.Assess(ctx, seq, "bicep_curl")

			Convey("Then the attempt is correct with the success message", func() {
				So(correct, ShouldBeTrue)
				So(feedback, ShouldEqual, evaluation.FeedbackBicepCurlCorrect)
			})

			Convey("And the report carries the features", func() {
				So(err, ShouldBeNil)
				So(report.Exercise, ShouldEqual, evaluation.ExerciseBicepCurl)
				So(report.Side, ShouldEqual, pose.SideRight)
				So(report.TorsoRange, ShouldAlmostEqual, 0, 1e-9)
				So(report.ForearmMin, ShouldAlmostEqual, 20, 1e-9)
				So(report.Frames, ShouldEqual, 5)
				So(report.Findings, ShouldBeEmpty)
			})
		})

		Convey("When the torso angle swings from 0 to 50 degrees", func() {
			seq := curl(pose.SideRight,
				[]float64{0, 15, 30, 50, 25},
				[]float64{170, 90, 20, 60, 160},
			)
			correct, feedback := ev.Evaluate(ctx, seq, "bicep_curl")

			Convey("Then rotation feedback is given", func() {
				So(correct, ShouldBeFalse)
				So(feedback, ShouldEqual, evaluation.FeedbackShoulderRotation)
				So(feedback, ShouldContainSubstring, "Significant Rotation")
			})
		})

		Convey("When the forearm never closes below 80 degrees", func() {
			seq := curl(pose.SideRight,
				[]float64{5, 10, 15},
				[]float64{170, 80, 120},
			)
			correct, feedback := ev.Evaluate(ctx, seq, "bicep_curl")

			Convey("Then incomplete-curl feedback is given", func() {
				So(correct, ShouldBeFalse)
				So(feedback, ShouldEqual, evaluation.FeedbackIncompleteCurl)
				So(feedback, ShouldContainSubstring, "Not Curling")
			})
		})

		Convey("When both the torso swings and the curl is incomplete", func() {
			seq := curl(pose.SideLeft,
				[]float64{0, 20, 45},
				[]float64{170, 100, 85},
			)
			report, err := ev.Assess(ctx, seq, "bicep_curl")

			Convey("Then both messages are surfaced in check order", func() {
				So(err, ShouldBeNil)
				So(report.Correct, ShouldBeFalse)
				So(report.Feedback, ShouldEqual, evaluation.FeedbackShoulderRotation+evaluation.FeedbackIncompleteCurl)
				So(strings.Count(report.Feedback, "\n"), ShouldEqual, 2)
				So(report.Findings, ShouldResemble, []evaluation.Finding{
					evaluation.FindingShoulderRotation,
					evaluation.FindingIncompleteCurl,
				})
			})
		})

		Convey("When no frame has all five joints", func() {
			seq := curl(pose.SideRight, []float64{10, 10}, []float64{20, 30})
			for i := range seq.Poses {
				seq.Poses[i].Neck.Exists = false
			}
			correct, feedback := ev.Evaluate(ctx, seq, "bicep_curl")
			_, err := ev.Assess(ctx, seq, "bicep_curl")

			Convey("Then an insufficient-data outcome is reported", func() {
				So(correct, ShouldBeFalse)
				So(feedback, ShouldEqual, evaluation.MessageInsufficient)
				So(errors.Is(err, evaluation.ErrInsufficientData), ShouldBeTrue)
			})
		})

		Convey("When the sequence is empty", func() {
			report, err := ev.Assess(ctx, pose.Sequence{}, "bicep_curl")

			Convey("Then insufficient data is reported for the left side", func() {
				So(errors.Is(err, evaluation.ErrInsufficientData), ShouldBeTrue)
				So(report.Side, ShouldEqual, pose.SideLeft)
			})
		})
	})
}

func TestEvaluate_SideSelection(t *testing.T) {
	Convey("Given an evaluator", t, func() {
		ev := evaluation.New()
		ctx := context.Background()

		Convey("When the right arm is complete in more frames than the left", func() {
			seq := curl(pose.SideRight, []float64{10, 10, 10}, []float64{20, 20, 20})
			// left arm visible in two frames only, with a bad curl
			left := curl(pose.SideLeft, []float64{0, 60}, []float64{120, 120})
			for i := range left.Poses {
				seq.Poses[i].LShoulder = left.Poses[i].LShoulder
				seq.Poses[i].LElbow = left.Poses[i].LElbow
				seq.Poses[i].LWrist = left.Poses[i].LWrist
				seq.Poses[i].LHip = left.Poses[i].LHip
			}
			report, err := ev.Assess(ctx, seq, "bicep_curl")

			Convey("Then the right side is judged", func() {
				So(err, ShouldBeNil)
				So(report.Side, ShouldEqual, pose.SideRight)
				So(report.Correct, ShouldBeTrue)
			})
		})

		Convey("When both arms are complete in the same number of frames", func() {
			seq := curl(pose.SideRight, []float64{10, 10}, []float64{20, 20})
			left := curl(pose.SideLeft, []float64{0, 60}, []float64{120, 120})
			for i := range seq.Poses {
				seq.Poses[i].LShoulder = left.Poses[i].LShoulder
				seq.Poses[i].LElbow = left.Poses[i].LElbow
				seq.Poses[i].LWrist = left.Poses[i].LWrist
				seq.Poses[i].LHip = left.Poses[i].LHip
				seq.Poses[i].Neck = left.Poses[i].Neck
			}
			report, err := ev.Assess(ctx, seq, "bicep_curl")

			Convey("Then the tie goes to the left side", func() {
				So(err, ShouldBeNil)
				So(report.Side, ShouldEqual, pose.SideLeft)
				So(report.Findings, ShouldResemble, []evaluation.Finding{
					evaluation.FindingShoulderRotation,
					evaluation.FindingIncompleteCurl,
				})
			})
		})

		Convey("When the chosen arm misses its hip in some frames", func() {
			seq := curl(pose.SideRight, []float64{10, 80, 10}, []float64{150, 20, 140})
			seq.Poses[1].RHip.Exists = false
			report, err := ev.Assess(ctx, seq, "bicep_curl")

			Convey("Then those frames are dropped without interpolation", func() {
				So(err, ShouldBeNil)
				So(report.Side, ShouldEqual, pose.SideRight)
				So(report.Frames, ShouldEqual, 2)
				So(report.TorsoRange, ShouldAlmostEqual, 0, 1e-9)
				So(report.ForearmMin, ShouldAlmostEqual, 140, 1e-9)
			})
		})
	})
}

func TestEvaluate_DegenerateGeometry(t *testing.T) {
	Convey("Given an evaluator", t, func() {
		ev := evaluation.New()
		ctx := context.Background()

		Convey("When one frame has the shoulder on top of the elbow", func() {
			seq := curl(pose.SideRight, []float64{10, 10, 10}, []float64{150, 20, 150})
			seq.Poses[0].RShoulder.X = seq.Poses[0].RElbow.X
			seq.Poses[0].RShoulder.Y = seq.Poses[0].RElbow.Y
			report, err := ev.Assess(ctx, seq, "bicep_curl")

			Convey("Then the frame is skipped and the rest is judged", func() {
				So(err, ShouldBeNil)
				So(report.SkippedFrames, ShouldEqual, 1)
				So(report.Frames, ShouldEqual, 2)
				So(report.Correct, ShouldBeTrue)
			})
		})

		Convey("When every usable frame has a zero-length torso", func() {
			seq := curl(pose.SideRight, []float64{10, 10}, []float64{150, 20})
			for i := range seq.Poses {
				seq.Poses[i].Neck.X = seq.Poses[i].RHip.X
				seq.Poses[i].Neck.Y = seq.Poses[i].RHip.Y
			}
			correct, feedback := ev.Evaluate(ctx, seq, "bicep_curl")
			_, err := ev.Assess(ctx, seq, "bicep_curl")

			Convey("Then degenerate geometry is reported instead of NaN features", func() {
				So(correct, ShouldBeFalse)
				So(feedback, ShouldEqual, evaluation.MessageDegenerate)
				So(errors.Is(err, evaluation.ErrDegenerateGeometry), ShouldBeTrue)
			})
		})

		Convey("When coordinates are not finite", func() {
			seq := curl(pose.SideRight, []float64{10}, []float64{20})
			seq.Poses[0].RWrist.X = math.NaN()
			_, err := ev.Assess(ctx, seq, "bicep_curl")

			Convey("Then the frame counts as degenerate", func() {
				So(errors.Is(err, evaluation.ErrDegenerateGeometry), ShouldBeTrue)
			})
		})

		Convey("When the upper arm is a subnormal but non-zero length", func() {
			j := func(x, y float64) pose.Joint { return pose.Joint{X: x, Y: y, Exists: true} }
			frame := pose.Pose{
				Neck:      j(0, 0),
				RShoulder: j(5e-324, 0),
				RElbow:    j(0, 0),
				RWrist:    j(0, 10),
				RHip:      j(0, 100),
			}
			seq := pose.Sequence{Poses: []pose.Pose{frame, frame}}
			report, err := ev.Assess(ctx, seq, "bicep_curl")

			Convey("Then the features are finite and the curl is judged on them", func() {
				So(err, ShouldBeNil)
				So(math.IsNaN(report.TorsoRange), ShouldBeFalse)
				So(math.IsNaN(report.ForearmMin), ShouldBeFalse)
				So(report.TorsoRange, ShouldAlmostEqual, 0.0, 1e-9)
				So(report.ForearmMin, ShouldAlmostEqual, 90.0, 1e-9)
				So(report.Frames, ShouldEqual, 2)
				So(report.Correct, ShouldBeFalse)
				So(report.Findings, ShouldResemble, []evaluation.Finding{evaluation.FindingIncompleteCurl})
			})
		})
	})
}

func TestEvaluate_ThresholdsAndPurity(t *testing.T) {
	Convey("Given custom thresholds", t, func() {
		ev := evaluation.New(evaluation.WithThresholds(evaluation.Thresholds{TorsoRange: 60, ForearmMin: 0}))
		ctx := context.Background()

		Convey("Then non-positive fields keep their defaults", func() {
			So(ev.Thresholds(), ShouldResemble, evaluation.Thresholds{TorsoRange: 60, ForearmMin: 70})
		})

		Convey("When the torso swings 50 degrees", func() {
			seq := curl(pose.SideRight, []float64{0, 50}, []float64{150, 20})
			correct, _ := ev.Evaluate(ctx, seq, "bicep_curl")

			Convey("Then the looser limit accepts it", func() {
				So(correct, ShouldBeTrue)
			})
		})
	})

	Convey("Given a sequence evaluated repeatedly and concurrently", t, func() {
		ev := evaluation.New()
		ctx := context.Background()
		seq := curl(pose.SideRight, []float64{0, 20, 45}, []float64{170, 100, 85})
		before := curl(pose.SideRight, []float64{0, 20, 45}, []float64{170, 100, 85})

		first, err := ev.Assess(ctx, seq, "bicep_curl")
		So(err, ShouldBeNil)

		var wg sync.WaitGroup
		reports := make([]evaluation.Report, 16)
		for i := range reports {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				reports[i], _ = ev.Assess(ctx, seq, "bicep_curl")
			}(i)
		}
		wg.Wait()

		Convey("Then every result is identical and the input is untouched", func() {
			for _, r := range reports {
				So(cmp.Diff(first, r), ShouldBeEmpty)
			}
			So(cmp.Diff(before, seq), ShouldBeEmpty)
		})
	})
}

func TestParseExercise(t *testing.T) {
	Convey("Given the supported exercise list", t, func() {
		exercises := evaluation.SupportedExercises()

		Convey("Then it holds exactly the bicep curl", func() {
			So(exercises, ShouldResemble, []evaluation.Exercise{evaluation.ExerciseBicepCurl})
			So(exercises[0].String(), ShouldEqual, "bicep_curl")
		})

		Convey("And every listed exercise parses back", func() {
			for _, ex := range exercises {
				got, err := evaluation.ParseExercise(ex.String())
				So(err, ShouldBeNil)
				So(got, ShouldEqual, ex)
			}
		})

		Convey("And unknown values print as unknown", func() {
			So(evaluation.ExerciseUnknown.String(), ShouldEqual, "unknown")
			So(evaluation.Exercise(42).String(), ShouldEqual, "unknown")
		})
	})
}
