package evaluation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/okian/formcheck/internal/domain/pose"
)

const degreesPerRadian = 180 / math.Pi

// armFrame holds the five joints of one side in one frame.
type armFrame struct {
	index                             int
	shoulder, elbow, wrist, hip, neck r2.Vec
}

// limbs holds unit direction vectors for one frame.
type limbs struct {
	upperArm, torso, forearm r2.Vec
}

func vec(j pose.Joint) r2.Vec { return r2.Vec{X: j.X, Y: j.Y} }

// selectSide votes per frame on arm completeness. Right wins only with a
// strict majority.
func selectSide(seq pose.Sequence) pose.Side {
	var right, left int
	for i := range seq.Poses {
		if seq.Poses[i].HasArm(pose.SideRight) {
			right++
		}
		if seq.Poses[i].HasArm(pose.SideLeft) {
			left++
		}
	}
	if right > left {
		return pose.SideRight
	}
	return pose.SideLeft
}

// armFrames extracts the side's joints, dropping frames where any is missing.
func armFrames(seq pose.Sequence, side pose.Side) []armFrame {
	frames := make([]armFrame, 0, len(seq.Poses))
	for i := range seq.Poses {
		p := &seq.Poses[i]
		shoulder, elbow, wrist := p.Arm(side)
		hip := p.Hip(side)
		if !shoulder.Exists || !elbow.Exists || !wrist.Exists || !hip.Exists || !p.Neck.Exists {
			continue
		}
		frames = append(frames, armFrame{
			index:    i,
			shoulder: vec(shoulder),
			elbow:    vec(elbow),
			wrist:    vec(wrist),
			hip:      vec(hip),
			neck:     vec(p.Neck),
		})
	}
	return frames
}

// limbs returns normalized upper-arm, torso and forearm directions. ok is
// false when any of them has zero or non-finite length.
func (f armFrame) limbs() (limbs, bool) {
	upperArm, ok1 := unit(r2.Sub(f.shoulder, f.elbow))
	torso, ok2 := unit(r2.Sub(f.neck, f.hip))
	forearm, ok3 := unit(r2.Sub(f.wrist, f.elbow))
	return limbs{upperArm: upperArm, torso: torso, forearm: forearm}, ok1 && ok2 && ok3
}

// angles returns the upper-arm/torso and upper-arm/forearm angles of the
// frame. ok is false when the frame is degenerate.
func (f armFrame) angles() (torso, forearm float64, ok bool) {
	l, ok := f.limbs()
	if !ok {
		return 0, 0, false
	}
	torso, ok1 := angleBetween(l.upperArm, l.torso)
	forearm, ok2 := angleBetween(l.upperArm, l.forearm)
	return torso, forearm, ok1 && ok2
}

// unit divides v by its length. Components are divided directly because
// 1/n overflows for subnormal lengths.
func unit(v r2.Vec) (r2.Vec, bool) {
	n := r2.Norm(v)
	if n == 0 || !finite(n) {
		return r2.Vec{}, false
	}
	u := r2.Vec{X: v.X / n, Y: v.Y / n}
	if !finite(u.X) || !finite(u.Y) {
		return r2.Vec{}, false
	}
	return u, true
}

// angleBetween returns the angle in degrees between two unit vectors. The
// cosine is clamped to [-1, 1] before acos; ok is false for a NaN cosine.
func angleBetween(a, b r2.Vec) (float64, bool) {
	dot := r2.Dot(a, b)
	if math.IsNaN(dot) {
		return 0, false
	}
	cos := math.Max(-1, math.Min(1, dot))
	return math.Min(180, math.Acos(cos)*degreesPerRadian), true
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
