// Package base defines the chassis-level motion API.
//
// Units and sign conventions, fixed once for the whole module:
//   - linear distances and dimensions are millimeters, linear speeds mm/s
//   - chassis rotations are degrees, rotational speeds deg/s
//   - positive distance drives forward, negative backward
//   - positive angle turns clockwise viewed from above, negative
//     counterclockwise
//
// Motion calls are blocking: they return once both wheels have physically
// finished or a fault surfaced. Passing a speed <= 0 selects the package
// default for that kind of motion.
package base

import "context"

// Default speeds applied when a caller passes a speed <= 0.
const (
	DefaultStraightSpeedMMPerSec = 200
	DefaultTurnSpeedDegsPerSec   = 90
)

// A Base moves a robot chassis in robot-frame units.
type Base interface {
	// Straight drives the given distance in a straight line, blocking until
	// both wheels finish. Zero distance is a legal no-op.
	Straight(ctx context.Context, distanceMM, speedMMPerSec float64) error

	// Turn rotates the chassis in place by the given angle, blocking until
	// both wheels finish. Zero angle is a legal no-op.
	Turn(ctx context.Context, angleDeg, degsPerSec float64) error

	// Curve drives along a constant-radius arc through the given chassis
	// angle. The radius is measured to the chassis centerline; radius zero
	// degenerates to Turn.
	Curve(ctx context.Context, radiusMM, angleDeg, speedMMPerSec float64) error

	// Drive starts continuous motion at a forward speed and turn rate and
	// returns immediately.
	Drive(ctx context.Context, speedMMPerSec, turnRateDegsPerSec float64) error

	// Stop ends any motion with the base's default stop behavior.
	Stop(ctx context.Context) error

	// Distance reports the mean distance traveled since the last odometry
	// reset.
	Distance(ctx context.Context) (float64, error)

	// Heading reports the accumulated chassis rotation since the last
	// odometry reset, clockwise positive.
	Heading(ctx context.Context) (float64, error)

	// ResetOdometry zeroes the distance and heading accumulators.
	ResetOdometry(ctx context.Context) error
}
