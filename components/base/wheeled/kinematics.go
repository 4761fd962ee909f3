package wheeled

import "math"

// wheelInputs is one motor's share of a chassis motion: a signed shaft
// rotation and a speed magnitude.
type wheelInputs struct {
	degrees         float64
	speedDegsPerSec float64
}

func mmToDegrees(circumferenceMM, mm float64) float64 {
	return mm / circumferenceMM * 360
}

func degreesToMM(circumferenceMM, deg float64) float64 {
	return deg / 360 * circumferenceMM
}

// straightInputs converts a straight-line motion into identical wheel
// rotations for both sides.
func straightInputs(circumferenceMM, distanceMM, speedMMPerSec float64) (left, right wheelInputs) {
	in := wheelInputs{
		degrees:         mmToDegrees(circumferenceMM, distanceMM),
		speedDegsPerSec: math.Abs(mmToDegrees(circumferenceMM, speedMMPerSec)),
	}
	return in, in
}

// turnInputs converts an in-place chassis rotation into opposite wheel
// rotations. Positive angles turn clockwise viewed from above: the left wheel
// drives forward, the right wheel backward. Each wheel follows a circle of
// radius axleTrack/2, so its arc is angle/360 * pi * axleTrack.
func turnInputs(circumferenceMM, axleTrackMM, angleDeg, degsPerSec float64) (left, right wheelInputs) {
	arcMM := angleDeg / 360 * math.Pi * axleTrackMM
	wheelDeg := mmToDegrees(circumferenceMM, arcMM)
	wheelDPS := math.Abs(mmToDegrees(circumferenceMM, degsPerSec/360*math.Pi*axleTrackMM))
	left = wheelInputs{degrees: wheelDeg, speedDegsPerSec: wheelDPS}
	right = wheelInputs{degrees: -wheelDeg, speedDegsPerSec: wheelDPS}
	return left, right
}

// curveInputs converts a constant-radius arc into per-wheel rotations. The
// radius is measured to the chassis centerline; positive angles curve
// clockwise, putting the left wheel on the outside (radius + axleTrack/2) and
// the right wheel on the inside (radius - axleTrack/2). Signed per-wheel radii
// keep the math uniform: a radius smaller than half the track gives the inner
// wheel a negative arc, and radius zero reproduces turnInputs exactly. Wheel
// speeds are scaled so both wheels finish together.
func curveInputs(circumferenceMM, axleTrackMM, radiusMM, angleDeg, speedMMPerSec float64) (left, right wheelInputs) {
	leftRadius := radiusMM + axleTrackMM/2
	rightRadius := radiusMM - axleTrackMM/2

	leftArcMM := angleDeg / 360 * 2 * math.Pi * leftRadius
	rightArcMM := angleDeg / 360 * 2 * math.Pi * rightRadius
	centerArcMM := angleDeg / 360 * 2 * math.Pi * radiusMM

	left = wheelInputs{degrees: mmToDegrees(circumferenceMM, leftArcMM)}
	right = wheelInputs{degrees: mmToDegrees(circumferenceMM, rightArcMM)}

	if centerArcMM == 0 || speedMMPerSec == 0 {
		// Degenerate arc: no meaningful centerline travel time, so run both
		// wheels at the straight-line conversion of the requested speed.
		dps := math.Abs(mmToDegrees(circumferenceMM, speedMMPerSec))
		left.speedDegsPerSec = dps
		right.speedDegsPerSec = dps
		return left, right
	}

	travelSecs := math.Abs(centerArcMM) / math.Abs(speedMMPerSec)
	left.speedDegsPerSec = math.Abs(left.degrees) / travelSecs
	right.speedDegsPerSec = math.Abs(right.degrees) / travelSecs
	return left, right
}

// driveInputs converts continuous chassis velocities into signed per-wheel
// speeds. A positive turn rate (clockwise) speeds the left wheel up and slows
// the right wheel down.
func driveInputs(circumferenceMM, axleTrackMM, speedMMPerSec, turnRateDegsPerSec float64) (leftDPS, rightDPS float64) {
	// Each wheel sits axleTrack/2 from the turn center, so a turn rate of w
	// rad/s offsets each wheel's linear speed by w * axleTrack/2.
	offsetMMPerSec := turnRateDegsPerSec / 360 * math.Pi * axleTrackMM
	leftDPS = mmToDegrees(circumferenceMM, speedMMPerSec+offsetMMPerSec)
	rightDPS = mmToDegrees(circumferenceMM, speedMMPerSec-offsetMMPerSec)
	return leftDPS, rightDPS
}
