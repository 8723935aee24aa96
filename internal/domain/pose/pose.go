// Package pose contains the skeleton model produced by the upstream pose
// estimator: joints, single-frame poses and ordered pose sequences.
package pose

// Joint is one detected keypoint in image coordinates. X and Y are only
// meaningful when Exists is true.
type Joint struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Exists bool    `json:"exists"`
}

// Side selects the left or right half of the body.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// String returns "left" or "right".
func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

// Pose is a single sampled instant of the 18-keypoint skeleton.
type Pose struct {
	Nose      Joint `json:"nose"`
	Neck      Joint `json:"neck"`
	RShoulder Joint `json:"rshoulder"`
	RElbow    Joint `json:"relbow"`
	RWrist    Joint `json:"rwrist"`
	LShoulder Joint `json:"lshoulder"`
	LElbow    Joint `json:"lelbow"`
	LWrist    Joint `json:"lwrist"`
	RHip      Joint `json:"rhip"`
	RKnee     Joint `json:"rknee"`
	RAnkle    Joint `json:"rankle"`
	LHip      Joint `json:"lhip"`
	LKnee     Joint `json:"lknee"`
	LAnkle    Joint `json:"lankle"`
	REye      Joint `json:"reye"`
	LEye      Joint `json:"leye"`
	REar      Joint `json:"rear"`
	LEar      Joint `json:"lear"`
}

// Arm returns the shoulder, elbow and wrist of one side.
func (p *Pose) Arm(side Side) (shoulder, elbow, wrist Joint) {
	if side == SideRight {
		return p.RShoulder, p.RElbow, p.RWrist
	}
	return p.LShoulder, p.LElbow, p.LWrist
}

// Hip returns the hip of one side.
func (p *Pose) Hip(side Side) Joint {
	if side == SideRight {
		return p.RHip
	}
	return p.LHip
}

// HasArm reports whether shoulder, elbow and wrist of side were all detected.
func (p *Pose) HasArm(side Side) bool {
	s, e, w := p.Arm(side)
	return s.Exists && e.Exists && w.Exists
}

// Sequence is one exercise attempt as an ordered list of poses. Order is
// temporal and must be preserved.
type Sequence struct {
	Poses []Pose `json:"poses"`
}

// Len returns the number of frames.
func (s Sequence) Len() int { return len(s.Poses) }
