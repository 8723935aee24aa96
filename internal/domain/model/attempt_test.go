package model_test

import (
	"testing"
	"time"

	model "github.com/okian/formcheck/internal/domain/model"
	"github.com/okian/formcheck/internal/domain/pose"
	"github.com/smartystreets/goconvey/convey"
)

func TestAttempt(t *testing.T) {
	convey.Convey("Given an Attempt struct", t, func() {
		convey.Convey("When creating a new attempt", func() {
			ts := time.Now()
			seq := pose.Sequence{Poses: make([]pose.Pose, 3)}

			attempt := model.Attempt{
				ID:          "attempt-123",
				Exercise:    "bicep_curl",
				Sequence:    seq,
				SubmittedAt: ts,
			}

			convey.Convey("Then it should have the correct values", func() {
				convey.So(attempt.ID, convey.ShouldEqual, "attempt-123")
				convey.So(attempt.Exercise, convey.ShouldEqual, "bicep_curl")
				convey.So(attempt.Sequence.Len(), convey.ShouldEqual, 3)
				convey.So(attempt.SubmittedAt, convey.ShouldEqual, ts)
			})
		})

		convey.Convey("When creating an attempt with zero values", func() {
			attempt := model.Attempt{}

			convey.Convey("Then it should have default values", func() {
				convey.So(attempt.ID, convey.ShouldEqual, "")
				convey.So(attempt.Sequence.Len(), convey.ShouldEqual, 0)
				convey.So(attempt.SubmittedAt.IsZero(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestOutcome_Done(t *testing.T) {
	convey.Convey("Given outcomes in each status", t, func() {
		convey.So(model.Outcome{Status: model.StatusPending}.Done(), convey.ShouldBeFalse)
		convey.So(model.Outcome{Status: model.StatusEvaluated}.Done(), convey.ShouldBeTrue)
		convey.So(model.Outcome{Status: model.StatusFailed}.Done(), convey.ShouldBeTrue)
	})
}
