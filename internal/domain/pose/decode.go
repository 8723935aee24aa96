package pose

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// KeypointCount is the number of keypoints per frame in the raw matrix form.
const KeypointCount = 18

// document is the on-disk and on-wire envelope. Exactly one of Poses or
// Keypoints is expected.
type document struct {
	Poses     []Pose        `json:"poses"`
	Keypoints [][][]float64 `json:"keypoints"`
}

// Decode reads a pose sequence encoded as JSON from r.
//
// Two layouts are accepted: {"poses": [{"rshoulder": {"x":..,"y":..,"exists":..}, ...}]}
// and the raw estimator output {"keypoints": [[[x, y, confidence], ...18], ...]}.
func Decode(r io.Reader) (Sequence, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Sequence{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return doc.sequence()
}

// Load reads a pose sequence from a JSON file.
func Load(path string) (Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sequence{}, fmt.Errorf("open pose file: %w", err)
	}
	defer f.Close()

	seq, err := Decode(f)
	if err != nil {
		return Sequence{}, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}

func (d *document) sequence() (Sequence, error) {
	if d.Keypoints != nil && d.Poses != nil {
		return Sequence{}, fmt.Errorf("%w: both poses and keypoints given", ErrDecode)
	}
	if d.Keypoints != nil {
		return FromKeypoints(d.Keypoints)
	}
	return Sequence{Poses: d.Poses}, nil
}

// FromKeypoints converts a frames x 18 x [x, y, confidence] matrix in
// OpenPose COCO order into a Sequence. A keypoint exists when its confidence
// is positive.
func FromKeypoints(frames [][][]float64) (Sequence, error) {
	seq := Sequence{Poses: make([]Pose, 0, len(frames))}
	for i, kps := range frames {
		if len(kps) != KeypointCount {
			return Sequence{}, fmt.Errorf("%w: frame %d has %d keypoints, want %d", ErrDecode, i, len(kps), KeypointCount)
		}
		var joints [KeypointCount]Joint
		for j, kp := range kps {
			if len(kp) != 3 {
				return Sequence{}, fmt.Errorf("%w: frame %d keypoint %d has %d values, want 3", ErrDecode, i, j, len(kp))
			}
			joints[j] = Joint{X: kp[0], Y: kp[1], Exists: kp[2] > 0}
		}
		seq.Poses = append(seq.Poses, Pose{
			Nose:      joints[0],
			Neck:      joints[1],
			RShoulder: joints[2],
			RElbow:    joints[3],
			RWrist:    joints[4],
			LShoulder: joints[5],
			LElbow:    joints[6],
			LWrist:    joints[7],
			RHip:      joints[8],
			RKnee:     joints[9],
			RAnkle:    joints[10],
			LHip:      joints[11],
			LKnee:     joints[12],
			LAnkle:    joints[13],
			REye:      joints[14],
			LEye:      joints[15],
			REar:      joints[16],
			LEar:      joints[17],
		})
	}
	return seq, nil
}
