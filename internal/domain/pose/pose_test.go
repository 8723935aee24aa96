package pose_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/formcheck/internal/domain/pose"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPoseAccessors(t *testing.T) {
	Convey("Given a pose with only the right arm detected", t, func() {
		p := pose.Pose{
			RShoulder: pose.Joint{X: 1, Y: 2, Exists: true},
			RElbow:    pose.Joint{X: 1, Y: 4, Exists: true},
			RWrist:    pose.Joint{X: 2, Y: 5, Exists: true},
			RHip:      pose.Joint{X: 1, Y: 9, Exists: true},
			LShoulder: pose.Joint{X: 5, Y: 2, Exists: true},
		}

		Convey("Then the right arm is complete and the left is not", func() {
			So(p.HasArm(pose.SideRight), ShouldBeTrue)
			So(p.HasArm(pose.SideLeft), ShouldBeFalse)
		})

		Convey("And Arm and Hip pick joints from the requested side", func() {
			s, e, w := p.Arm(pose.SideRight)
			So(s, ShouldResemble, p.RShoulder)
			So(e, ShouldResemble, p.RElbow)
			So(w, ShouldResemble, p.RWrist)
			So(p.Hip(pose.SideRight), ShouldResemble, p.RHip)

			s, _, _ = p.Arm(pose.SideLeft)
			So(s, ShouldResemble, p.LShoulder)
			So(p.Hip(pose.SideLeft).Exists, ShouldBeFalse)
		})
	})

	Convey("Given the two sides", t, func() {
		So(pose.SideLeft.String(), ShouldEqual, "left")
		So(pose.SideRight.String(), ShouldEqual, "right")
		So(pose.Side(0), ShouldEqual, pose.SideLeft)
	})
}

func TestDecode(t *testing.T) {
	Convey("Given a named-joint document", t, func() {
		doc := `{"poses": [
			{"rshoulder": {"x": 10, "y": 20, "exists": true}, "neck": {"x": 12, "y": 5, "exists": true}},
			{"lwrist": {"x": 3, "y": 4, "exists": true}}
		]}`

		Convey("When decoding", func() {
			seq, err := pose.Decode(strings.NewReader(doc))

			Convey("Then frames keep their order and omitted joints do not exist", func() {
				So(err, ShouldBeNil)
				So(seq.Len(), ShouldEqual, 2)
				So(seq.Poses[0].RShoulder, ShouldResemble, pose.Joint{X: 10, Y: 20, Exists: true})
				So(seq.Poses[0].Neck.Y, ShouldEqual, 5)
				So(seq.Poses[0].LWrist.Exists, ShouldBeFalse)
				So(seq.Poses[1].LWrist.Exists, ShouldBeTrue)
			})
		})
	})

	Convey("Given a keypoint matrix document", t, func() {
		frame := make([]string, pose.KeypointCount)
		for i := range frame {
			frame[i] = "[0, 0, 0]"
		}
		frame[1] = "[50, 10, 0.9]"  // neck
		frame[2] = "[40, 20, 0.8]"  // right shoulder
		frame[11] = "[60, 90, 0.7]" // left hip
		frame[17] = "[70, 5, 0.1]"  // left ear
		doc := `{"keypoints": [[` + strings.Join(frame, ",") + `]]}`

		Convey("When decoding", func() {
			seq, err := pose.Decode(strings.NewReader(doc))

			Convey("Then keypoints map to joints in OpenPose order", func() {
				So(err, ShouldBeNil)
				So(seq.Len(), ShouldEqual, 1)
				p := seq.Poses[0]
				So(p.Neck, ShouldResemble, pose.Joint{X: 50, Y: 10, Exists: true})
				So(p.RShoulder, ShouldResemble, pose.Joint{X: 40, Y: 20, Exists: true})
				So(p.LHip, ShouldResemble, pose.Joint{X: 60, Y: 90, Exists: true})
				So(p.LEar.Exists, ShouldBeTrue)
				So(p.Nose.Exists, ShouldBeFalse)
				So(p.RWrist.Exists, ShouldBeFalse)
			})
		})
	})

	Convey("Given malformed documents", t, func() {
		cases := []struct {
			name string
			doc  string
		}{
			{"invalid json", `{"poses": [`},
			{"short frame", `{"keypoints": [[[0, 0, 1]]]}`},
			{"both layouts", `{"poses": [], "keypoints": []}`},
			{"short keypoint", `{"keypoints": [[` + strings.TrimSuffix(strings.Repeat("[0, 0],", pose.KeypointCount), ",") + `]]}`},
		}

		for _, tc := range cases {
			Convey("When decoding "+tc.name, func() {
				_, err := pose.Decode(strings.NewReader(tc.doc))

				Convey("Then a decode error is returned", func() {
					So(err, ShouldNotBeNil)
					So(errors.Is(err, pose.ErrDecode), ShouldBeTrue)
				})
			})
		}
	})

	Convey("Given an empty poses list", t, func() {
		seq, err := pose.Decode(strings.NewReader(`{"poses": []}`))

		Convey("Then it decodes to an empty sequence", func() {
			So(err, ShouldBeNil)
			So(seq.Len(), ShouldEqual, 0)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a pose file on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "curl.json")
		err := os.WriteFile(path, []byte(`{"poses": [{"relbow": {"x": 1, "y": 1, "exists": true}}]}`), 0o600)
		So(err, ShouldBeNil)

		Convey("When loading it", func() {
			seq, err := pose.Load(path)

			Convey("Then the sequence is returned", func() {
				So(err, ShouldBeNil)
				So(seq.Len(), ShouldEqual, 1)
				So(seq.Poses[0].RElbow.Exists, ShouldBeTrue)
			})
		})

		Convey("When loading a missing file", func() {
			_, err := pose.Load(filepath.Join(dir, "missing.json"))

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
			})
		})
	})
}
