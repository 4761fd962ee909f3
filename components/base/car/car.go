// Package car implements motion control for a car-like robot: one drive motor
// and one steering motor on a steered front axle.
//
// Steering works in shaft degrees relative to a calibrated center position.
// CalibrateSteering finds the mechanical limits by running the steering motor
// into each end stop and watching for the stall, then stores the midpoint as
// center. The steering motor should be configured with default_stop "hold" so
// it keeps its position between commands.
package car

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/brickbotics/spikedrive/components/base"
	"github.com/brickbotics/spikedrive/components/motor"
	"github.com/brickbotics/spikedrive/hub"
)

// Defaults applied when the config leaves the tunables unset.
const (
	DefaultMaxSteeringAngleDeg   = 45
	DefaultSearchSpeedDegsPerSec = 50
	DefaultSteerSpeedDegsPerSec  = 100
	DefaultStallTimeMS           = 200
)

const (
	stallVelocityThreshold = 5.0 // deg/s, near-zero shaft speed
	stallPollInterval      = 10 * time.Millisecond
	limitSettlePause       = 200 * time.Millisecond
)

// Config describes the car's geometry and steering tunables.
type Config struct {
	WheelDiameterMM       float64 `json:"wheel_diameter_mm"`
	WheelbaseMM           float64 `json:"wheelbase_mm"`
	MaxSteeringAngleDeg   float64 `json:"max_steering_angle_deg,omitempty"`
	SearchSpeedDegsPerSec float64 `json:"search_speed_degs_per_sec,omitempty"`
	SteerSpeedDegsPerSec  float64 `json:"steer_speed_degs_per_sec,omitempty"`
	StallTimeMS           int     `json:"stall_time_ms,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.WheelDiameterMM == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "wheel_diameter_mm")
	}
	if cfg.WheelDiameterMM < 0 {
		return goutils.NewConfigValidationError(path, errors.New("wheel_diameter_mm must be positive"))
	}
	if cfg.WheelbaseMM == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "wheelbase_mm")
	}
	if cfg.WheelbaseMM < 0 {
		return goutils.NewConfigValidationError(path, errors.New("wheelbase_mm must be positive"))
	}
	return nil
}

// A Car drives and steers a car-like robot.
type Car struct {
	drive           motor.Motor
	steer           motor.Motor
	circumferenceMM float64
	wheelbaseMM     float64
	maxSteeringDeg  float64
	searchSpeed     float64
	steerSpeed      float64
	stallTime       time.Duration
	logger          golog.Logger

	mu        sync.Mutex
	centerDeg float64
}

// New returns a Car over the given drive and steering motors.
func New(drive, steer motor.Motor, cfg Config, logger golog.Logger) (*Car, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	c := &Car{
		drive:           drive,
		steer:           steer,
		circumferenceMM: math.Pi * cfg.WheelDiameterMM,
		wheelbaseMM:     cfg.WheelbaseMM,
		maxSteeringDeg:  cfg.MaxSteeringAngleDeg,
		searchSpeed:     cfg.SearchSpeedDegsPerSec,
		steerSpeed:      cfg.SteerSpeedDegsPerSec,
		stallTime:       time.Duration(cfg.StallTimeMS) * time.Millisecond,
		logger:          logger,
	}
	if c.maxSteeringDeg <= 0 {
		c.maxSteeringDeg = DefaultMaxSteeringAngleDeg
	}
	if c.searchSpeed <= 0 {
		c.searchSpeed = DefaultSearchSpeedDegsPerSec
	}
	if c.steerSpeed <= 0 {
		c.steerSpeed = DefaultSteerSpeedDegsPerSec
	}
	if c.stallTime <= 0 {
		c.stallTime = DefaultStallTimeMS * time.Millisecond
	}
	return c, nil
}

// CalibrateSteering finds both mechanical steering limits by stall detection
// and stores their midpoint as the steering center, then moves there.
func (c *Car) CalibrateSteering(ctx context.Context) error {
	c.logger.Debugf("calibrating steering at %.0f deg/s", c.searchSpeed)

	leftLimit, err := c.findLimit(ctx, -c.searchSpeed)
	if err != nil {
		return errors.Wrap(err, "searching left steering limit")
	}
	if !goutils.SelectContextOrWait(ctx, limitSettlePause) {
		return ctx.Err()
	}

	rightLimit, err := c.findLimit(ctx, c.searchSpeed)
	if err != nil {
		return errors.Wrap(err, "searching right steering limit")
	}
	if !goutils.SelectContextOrWait(ctx, limitSettlePause) {
		return ctx.Err()
	}

	c.mu.Lock()
	c.centerDeg = (leftLimit + rightLimit) / 2
	center := c.centerDeg
	c.mu.Unlock()
	c.logger.Debugf("steering limits %.1f / %.1f deg, center %.1f deg", leftLimit, rightLimit, center)

	return c.CenterSteering(ctx)
}

// findLimit runs the steering motor until the shaft stalls against the end
// stop, holds position, and reports the limit angle.
func (c *Car) findLimit(ctx context.Context, speedDegsPerSec float64) (float64, error) {
	if err := c.steer.Run(ctx, speedDegsPerSec); err != nil {
		return 0, err
	}

	var stalledSince time.Time
	for {
		if !goutils.SelectContextOrWait(ctx, stallPollInterval) {
			return 0, multierr.Combine(ctx.Err(), c.steer.Stop(ctx, hub.Hold))
		}
		velocity, err := c.steer.Velocity(ctx)
		if err != nil {
			return 0, multierr.Combine(err, c.steer.Stop(ctx, hub.Hold))
		}
		if math.Abs(velocity) >= stallVelocityThreshold {
			stalledSince = time.Time{}
			continue
		}
		if stalledSince.IsZero() {
			stalledSince = time.Now()
			continue
		}
		if time.Since(stalledSince) >= c.stallTime {
			if err := c.steer.Stop(ctx, hub.Hold); err != nil {
				return 0, err
			}
			return c.steer.Angle(ctx)
		}
	}
}

// CenterSteering moves the steering to the stored center position and holds.
func (c *Car) CenterSteering(ctx context.Context) error {
	c.mu.Lock()
	center := c.centerDeg
	c.mu.Unlock()

	comp, err := c.steer.RotateTo(ctx, center, c.steerSpeed)
	if err != nil {
		return err
	}
	return comp.Wait(ctx)
}

// Steer turns the steering to an angle relative to center, clamped to the
// configured maximum, and blocks until the steering arrives.
func (c *Car) Steer(ctx context.Context, angleDeg float64) error {
	angleDeg = math.Max(-c.maxSteeringDeg, math.Min(c.maxSteeringDeg, angleDeg))

	c.mu.Lock()
	target := c.centerDeg + angleDeg
	c.mu.Unlock()

	comp, err := c.steer.RotateTo(ctx, target, c.steerSpeed)
	if err != nil {
		return err
	}
	return comp.Wait(ctx)
}

// Center reports the calibrated steering center in shaft degrees.
func (c *Car) Center() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.centerDeg
}

// TurningRadiusMM reports the turning radius the given steering angle
// produces, from the bicycle approximation radius = wheelbase / tan(angle).
func (c *Car) TurningRadiusMM(steerAngleDeg float64) float64 {
	rad := steerAngleDeg * math.Pi / 180
	if math.Tan(rad) == 0 {
		return math.Inf(1)
	}
	return c.wheelbaseMM / math.Tan(rad)
}

// Straight drives the given distance and blocks until done.
func (c *Car) Straight(ctx context.Context, distanceMM, speedMMPerSec float64) error {
	if speedMMPerSec <= 0 {
		speedMMPerSec = base.DefaultStraightSpeedMMPerSec
	}
	degrees := distanceMM / c.circumferenceMM * 360
	speedDPS := math.Abs(speedMMPerSec / c.circumferenceMM * 360)

	comp, err := c.drive.RotateBy(ctx, degrees, speedDPS)
	if err != nil {
		return errors.Wrap(err, "drive motor")
	}
	return comp.Wait(ctx)
}

// Drive starts continuous forward motion and returns without waiting.
func (c *Car) Drive(ctx context.Context, speedMMPerSec float64) error {
	return c.drive.Run(ctx, speedMMPerSec/c.circumferenceMM*360)
}

// Stop ends drive motion and holds the steering in place.
func (c *Car) Stop(ctx context.Context) error {
	return multierr.Combine(
		c.drive.Stop(ctx, hub.SmartBrake),
		c.steer.Stop(ctx, hub.Hold),
	)
}
