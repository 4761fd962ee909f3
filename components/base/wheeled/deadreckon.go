package wheeled

import (
	"math"
	"sync"

	"github.com/golang/geo/r3"
)

// A Tracker dead-reckons a planar pose from the motion segments a base was
// commanded. Positions are millimeters with X to the robot's initial right and
// Y initially forward; headings are degrees, clockwise positive, matching the
// base conventions.
type Tracker struct {
	mu         sync.Mutex
	position   r3.Vector
	headingDeg float64
}

// Straight advances the pose along the current heading.
func (t *Tracker) Straight(distanceMM float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rad := t.headingDeg * math.Pi / 180
	t.position = t.position.Add(r3.Vector{
		X: distanceMM * math.Sin(rad),
		Y: distanceMM * math.Cos(rad),
	})
}

// Turn rotates the pose in place.
func (t *Tracker) Turn(angleDeg float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.headingDeg += angleDeg
}

// Curve advances the pose along a constant-radius arc, clockwise for positive
// angles, matching Base.Curve.
func (t *Tracker) Curve(radiusMM, angleDeg float64) {
	if radiusMM == 0 {
		t.Turn(angleDeg)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	angleRad := angleDeg * math.Pi / 180
	// Chord displacement in the robot frame before entering the arc: forward
	// along Y, rightward along X toward the arc center.
	forward := radiusMM * math.Sin(angleRad)
	lateral := radiusMM * (1 - math.Cos(angleRad))

	headingRad := t.headingDeg * math.Pi / 180
	t.position = t.position.Add(r3.Vector{
		X: forward*math.Sin(headingRad) + lateral*math.Cos(headingRad),
		Y: forward*math.Cos(headingRad) - lateral*math.Sin(headingRad),
	})
	t.headingDeg += angleDeg
}

// Pose reports the accumulated position and heading.
func (t *Tracker) Pose() (r3.Vector, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position, t.headingDeg
}

// Reset returns the tracker to the origin pose.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.position = r3.Vector{}
	t.headingDeg = 0
}
