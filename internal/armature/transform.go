package armature

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Affine matrices are mgl64.Mat3 values in column-major order:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0  1  |
//
// so a point maps to (a*x + c*y + tx, b*x + d*y + ty).

// NodeToMatrix builds the affine matrix of a transform.
func NodeToMatrix(n *BaseData) mgl64.Mat3 {
	a := n.ScaleX * math.Cos(n.SkewY)
	b := n.ScaleX * math.Sin(n.SkewY)
	c := n.ScaleY * math.Sin(n.SkewX)
	d := n.ScaleY * math.Cos(n.SkewX)
	return mgl64.Mat3{
		a, b, 0,
		c, d, 0,
		n.X, n.Y, 1,
	}
}

// MatrixToNode writes the position, scale and skew encoded by m into n.
// Color and z order are left untouched.
func MatrixToNode(m mgl64.Mat3, n *BaseData) {
	a, b := m[0], m[1]
	c, d := m[3], m[4]

	// Image of the unit Y and unit X axes without translation.
	n.SkewX = -(math.Atan2(d, c) - math.Pi/2)
	n.SkewY = math.Atan2(b, a)
	n.ScaleX = math.Hypot(a, b)
	n.ScaleY = math.Hypot(c, d)
	n.X = m[6]
	n.Y = m[7]
}

// ConcatMatrix returns the transform applying first then second.
func ConcatMatrix(first, second mgl64.Mat3) mgl64.Mat3 {
	return second.Mul3(first)
}

// TransformFromParent rewrites node, given in the same space as parent, so that
// it is expressed in parent's local space.
func TransformFromParent(node *BaseData, parent *BaseData) {
	child := NodeToMatrix(node)
	inv := NodeToMatrix(parent).Inv()
	MatrixToNode(ConcatMatrix(child, inv), node)
}

// parentCursor sweeps a parent's frame list in step with a child timeline.
// Both lists are time ordered, so the cursor only moves forward.
type parentCursor struct {
	durations []int
	next      int
	active    int
	start     int
	current   int
}

func newParentCursor(durations []int) *parentCursor {
	return &parentCursor{durations: durations, active: -1}
}

// at returns the index of the parent frame covering tick t, or -1 when the
// parent has no frames. Once the parent runs out of frames its last frame
// keeps covering every later tick.
func (c *parentCursor) at(t int) int {
	for c.next < len(c.durations) && (c.active < 0 || t < c.start || t >= c.start+c.current) {
		c.active = c.next
		c.start += c.current
		c.current = c.durations[c.next]
		c.next++
	}
	return c.active
}

// unwrapRotation turns skews bounded to [-pi, pi] into a continuous range.
// It walks backwards and shifts the earlier frame of every pair by whole turns
// so the pair differs by at most pi.
func unwrapRotation(frames []*FrameData) {
	for i := len(frames) - 1; i > 0; i-- {
		cur, prev := frames[i], frames[i-1]
		prev.SkewX = unwrapAngle(prev.SkewX, cur.SkewX)
		prev.SkewY = unwrapAngle(prev.SkewY, cur.SkewY)
	}
}

func unwrapAngle(prev, cur float64) float64 {
	diff := cur - prev
	if diff >= -math.Pi && diff <= math.Pi || math.IsInf(diff, 0) || math.IsNaN(diff) {
		return prev
	}
	return prev + 2*math.Pi*math.Round(diff/(2*math.Pi))
}

// appendEndAnchor duplicates the last frame at the track's total duration so
// interpolation has a right-hand endpoint.
func appendEndAnchor(m *MovementBoneData) {
	if len(m.Frames) == 0 {
		return
	}
	anchor := m.Frames[len(m.Frames)-1].Clone()
	anchor.FrameID = m.Duration
	m.AddFrame(anchor)
}
