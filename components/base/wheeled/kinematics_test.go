package wheeled

import (
	"math"
	"testing"

	"go.viam.com/test"
)

const (
	testWheelDiameterMM = 56.0
	testAxleTrackMM     = 128.0
)

var testCircumferenceMM = math.Pi * testWheelDiameterMM

func TestMMDegreesRoundTrip(t *testing.T) {
	for _, mm := range []float64{0, 1, -42.5, 175.93, 1000} {
		deg := mmToDegrees(testCircumferenceMM, mm)
		test.That(t, degreesToMM(testCircumferenceMM, deg), test.ShouldAlmostEqual, mm, 1e-9)
	}
}

func TestStraightInputs(t *testing.T) {
	// One wheel circumference of travel is one shaft revolution.
	left, right := straightInputs(testCircumferenceMM, 175.93, 200)
	test.That(t, left.degrees, test.ShouldAlmostEqual, 360, 0.01)
	test.That(t, right.degrees, test.ShouldEqual, left.degrees)
	test.That(t, right.speedDegsPerSec, test.ShouldEqual, left.speedDegsPerSec)

	// Backward is the exact negation, with the speed magnitude unchanged.
	backLeft, backRight := straightInputs(testCircumferenceMM, -175.93, 200)
	test.That(t, backLeft.degrees, test.ShouldEqual, -left.degrees)
	test.That(t, backRight.degrees, test.ShouldEqual, -right.degrees)
	test.That(t, backLeft.speedDegsPerSec, test.ShouldEqual, left.speedDegsPerSec)

	zeroLeft, zeroRight := straightInputs(testCircumferenceMM, 0, 200)
	test.That(t, zeroLeft.degrees, test.ShouldEqual, 0)
	test.That(t, zeroRight.degrees, test.ShouldEqual, 0)
}

func TestTurnInputs(t *testing.T) {
	left, right := turnInputs(testCircumferenceMM, testAxleTrackMM, 90, 90)

	// Equal magnitude, opposite signs; positive angle drives the left wheel
	// forward (clockwise turn viewed from above).
	test.That(t, left.degrees, test.ShouldBeGreaterThan, 0)
	test.That(t, right.degrees, test.ShouldEqual, -left.degrees)
	test.That(t, right.speedDegsPerSec, test.ShouldEqual, left.speedDegsPerSec)

	// A quarter chassis turn moves each wheel a quarter of the axle-track
	// circle.
	wantArcMM := 90.0 / 360 * math.Pi * testAxleTrackMM
	test.That(t, left.degrees, test.ShouldAlmostEqual, mmToDegrees(testCircumferenceMM, wantArcMM), 1e-9)

	// Negation mirrors both wheels.
	ccwLeft, ccwRight := turnInputs(testCircumferenceMM, testAxleTrackMM, -90, 90)
	test.That(t, ccwLeft.degrees, test.ShouldEqual, -left.degrees)
	test.That(t, ccwRight.degrees, test.ShouldEqual, -right.degrees)
}

func TestCurveInputs(t *testing.T) {
	t.Run("degenerates to turn at radius zero", func(t *testing.T) {
		curveLeft, curveRight := curveInputs(testCircumferenceMM, testAxleTrackMM, 0, 90, 200)
		turnLeft, turnRight := turnInputs(testCircumferenceMM, testAxleTrackMM, 90, 90)
		test.That(t, curveLeft.degrees, test.ShouldAlmostEqual, turnLeft.degrees, 1e-9)
		test.That(t, curveRight.degrees, test.ShouldAlmostEqual, turnRight.degrees, 1e-9)
	})

	t.Run("inner wheel stationary at half the axle track", func(t *testing.T) {
		left, right := curveInputs(testCircumferenceMM, testAxleTrackMM, testAxleTrackMM/2, 90, 200)
		test.That(t, right.degrees, test.ShouldAlmostEqual, 0, 1e-9)
		test.That(t, left.degrees, test.ShouldBeGreaterThan, 0)
	})

	t.Run("approaches straight at large radius", func(t *testing.T) {
		left, right := curveInputs(testCircumferenceMM, testAxleTrackMM, 1e9, 0.001, 200)
		test.That(t, left.degrees/right.degrees, test.ShouldAlmostEqual, 1, 1e-3)
	})

	t.Run("wheels finish together", func(t *testing.T) {
		left, right := curveInputs(testCircumferenceMM, testAxleTrackMM, 300, 90, 200)
		leftSecs := math.Abs(left.degrees) / left.speedDegsPerSec
		rightSecs := math.Abs(right.degrees) / right.speedDegsPerSec
		test.That(t, leftSecs, test.ShouldAlmostEqual, rightSecs, 1e-9)
	})

	t.Run("negative angle reverses both wheels", func(t *testing.T) {
		fwdLeft, fwdRight := curveInputs(testCircumferenceMM, testAxleTrackMM, 300, 90, 200)
		backLeft, backRight := curveInputs(testCircumferenceMM, testAxleTrackMM, 300, -90, 200)
		test.That(t, backLeft.degrees, test.ShouldAlmostEqual, -fwdLeft.degrees, 1e-9)
		test.That(t, backRight.degrees, test.ShouldAlmostEqual, -fwdRight.degrees, 1e-9)
	})
}

func TestDriveInputs(t *testing.T) {
	// Pure forward: both wheels equal.
	left, right := driveInputs(testCircumferenceMM, testAxleTrackMM, 200, 0)
	test.That(t, left, test.ShouldEqual, right)
	test.That(t, left, test.ShouldBeGreaterThan, 0)

	// Clockwise turn component speeds up the left wheel.
	left, right = driveInputs(testCircumferenceMM, testAxleTrackMM, 200, 45)
	test.That(t, left, test.ShouldBeGreaterThan, right)

	// Pure rotation matches the in-place turn conversion: spinning at w deg/s
	// needs the same wheel speed turnInputs computes for a w deg/s turn.
	left, right = driveInputs(testCircumferenceMM, testAxleTrackMM, 0, 90)
	turnLeft, _ := turnInputs(testCircumferenceMM, testAxleTrackMM, 90, 90)
	test.That(t, left, test.ShouldAlmostEqual, turnLeft.speedDegsPerSec, 1e-9)
	test.That(t, right, test.ShouldAlmostEqual, -turnLeft.speedDegsPerSec, 1e-9)
}
