package car

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/brickbotics/spikedrive/components/motor"
	"github.com/brickbotics/spikedrive/hub"
	"github.com/brickbotics/spikedrive/hub/fake"
)

var testConfig = Config{
	WheelDiameterMM: 56,
	WheelbaseMM:     150,
	StallTimeMS:     30,
}

func newTestCar(t *testing.T, h hub.Hub) *Car {
	t.Helper()
	logger := golog.NewTestLogger(t)
	drive, err := motor.New(h, motor.Config{Port: "A"}, logger)
	test.That(t, err, test.ShouldBeNil)
	steer, err := motor.New(h, motor.Config{Port: "C", DefaultStop: "hold"}, logger)
	test.That(t, err, test.ShouldBeNil)
	c, err := New(drive, steer, testConfig, logger)
	test.That(t, err, test.ShouldBeNil)
	return c
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{WheelbaseMM: 150}
	test.That(t, cfg.Validate("car"), test.ShouldNotBeNil)

	cfg = Config{WheelDiameterMM: 56}
	test.That(t, cfg.Validate("car"), test.ShouldNotBeNil)

	cfg = Config{WheelDiameterMM: 56, WheelbaseMM: -1}
	test.That(t, cfg.Validate("car"), test.ShouldNotBeNil)

	test.That(t, testConfig.Validate("car"), test.ShouldBeNil)
}

func TestCalibrateSteering(t *testing.T) {
	ctx := context.Background()
	h := fake.NewInstantHub(golog.NewTestLogger(t))
	c := newTestCar(t, h)

	// Simulate the end stops: once each limit search starts running, zero the
	// velocity and pin the shaft angle where the stop would be.
	go func() {
		limits := []float64{-60, 80}
		seenRuns := 0
		for len(limits) > 0 {
			runs := 0
			for _, cmd := range h.CommandsFor(hub.PortC) {
				if cmd.Op == fake.OpRun {
					runs++
				}
			}
			if runs > seenRuns {
				seenRuns = runs
				h.SetAngle(hub.PortC, limits[0])
				h.SetVelocity(hub.PortC, 0)
				limits = limits[1:]
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()

	test.That(t, c.CalibrateSteering(ctx), test.ShouldBeNil)
	test.That(t, c.Center(), test.ShouldEqual, 10)

	// The final command re-centers the steering with a hold stop.
	last, ok := h.LastCommand(hub.PortC)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, last.Op, test.ShouldEqual, fake.OpRotateTo)
	test.That(t, last.Degrees, test.ShouldEqual, 10)
	test.That(t, last.Then, test.ShouldEqual, hub.Hold)

	// Both limit searches ended in a hold stop.
	holds := 0
	for _, cmd := range h.CommandsFor(hub.PortC) {
		if cmd.Op == fake.OpStop && cmd.Then == hub.Hold {
			holds++
		}
	}
	test.That(t, holds, test.ShouldEqual, 2)
}

func TestSteerClampsToMax(t *testing.T) {
	ctx := context.Background()
	h := fake.NewInstantHub(golog.NewTestLogger(t))
	c := newTestCar(t, h)

	test.That(t, c.Steer(ctx, 90), test.ShouldBeNil)
	cmd, ok := h.LastCommand(hub.PortC)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, cmd.Degrees, test.ShouldEqual, DefaultMaxSteeringAngleDeg)

	test.That(t, c.Steer(ctx, -90), test.ShouldBeNil)
	cmd, _ = h.LastCommand(hub.PortC)
	test.That(t, cmd.Degrees, test.ShouldEqual, -DefaultMaxSteeringAngleDeg)

	test.That(t, c.Steer(ctx, 10), test.ShouldBeNil)
	cmd, _ = h.LastCommand(hub.PortC)
	test.That(t, cmd.Degrees, test.ShouldEqual, 10)
}

func TestStraightConvertsGeometry(t *testing.T) {
	ctx := context.Background()
	h := fake.NewInstantHub(golog.NewTestLogger(t))
	c := newTestCar(t, h)

	// One wheel circumference is one shaft revolution.
	test.That(t, c.Straight(ctx, 175.93, 0), test.ShouldBeNil)
	cmd, ok := h.LastCommand(hub.PortA)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, cmd.Degrees, test.ShouldAlmostEqual, 360, 0.01)
}

func TestTurningRadius(t *testing.T) {
	h := fake.NewInstantHub(golog.NewTestLogger(t))
	c := newTestCar(t, h)

	test.That(t, c.TurningRadiusMM(45), test.ShouldAlmostEqual, 150, 1e-9)
	test.That(t, math.IsInf(c.TurningRadiusMM(0), 1), test.ShouldBeTrue)
}

func TestStopHoldsSteering(t *testing.T) {
	ctx := context.Background()
	h := fake.NewInstantHub(golog.NewTestLogger(t))
	c := newTestCar(t, h)

	test.That(t, c.Drive(ctx, 200), test.ShouldBeNil)
	test.That(t, c.Stop(ctx), test.ShouldBeNil)

	driveCmd, _ := h.LastCommand(hub.PortA)
	test.That(t, driveCmd.Op, test.ShouldEqual, fake.OpStop)
	test.That(t, driveCmd.Then, test.ShouldEqual, hub.SmartBrake)

	steerCmd, _ := h.LastCommand(hub.PortC)
	test.That(t, steerCmd.Op, test.ShouldEqual, fake.OpStop)
	test.That(t, steerCmd.Then, test.ShouldEqual, hub.Hold)
}
