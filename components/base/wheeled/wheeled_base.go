// Package wheeled implements a differential-drive base for two-motor robots.
//
// The base owns its two motors for the duration of every motion call: commands
// are issued to both wheels back to back and their completions are awaited
// concurrently, so neither wheel finishes far ahead of the other. Motion calls
// serialize; a call made while another motion is in flight blocks until the
// earlier one resolves.
package wheeled

import (
	"context"
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/brickbotics/spikedrive/components/base"
	"github.com/brickbotics/spikedrive/components/motor"
	"github.com/brickbotics/spikedrive/hub"
	"github.com/brickbotics/spikedrive/utils"
)

// Config describes the chassis geometry.
type Config struct {
	WheelDiameterMM float64 `json:"wheel_diameter_mm"`
	AxleTrackMM     float64 `json:"axle_track_mm"`
	DefaultStop     string  `json:"default_stop,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.WheelDiameterMM == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "wheel_diameter_mm")
	}
	if cfg.WheelDiameterMM < 0 {
		return goutils.NewConfigValidationError(path, errors.New("wheel_diameter_mm must be positive"))
	}
	if cfg.AxleTrackMM == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "axle_track_mm")
	}
	if cfg.AxleTrackMM < 0 {
		return goutils.NewConfigValidationError(path, errors.New("axle_track_mm must be positive"))
	}
	if cfg.DefaultStop != "" {
		if _, err := hub.ParseStopMode(cfg.DefaultStop); err != nil {
			return goutils.NewConfigValidationError(path, err)
		}
	}
	return nil
}

type wheeledBase struct {
	left            motor.Motor
	right           motor.Motor
	circumferenceMM float64
	axleTrackMM     float64
	defaultStop     hub.StopMode
	logger          golog.Logger

	// motionMu serializes motion calls; geometry never changes after New.
	motionMu sync.Mutex
}

// New returns a differential-drive base over the given left and right motors.
// The motors must already be polarity-configured so that a positive rotation
// drives the robot forward on both sides.
func New(left, right motor.Motor, cfg Config, logger golog.Logger) (base.Base, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	defaultStop := hub.SmartBrake
	if cfg.DefaultStop != "" {
		var err error
		if defaultStop, err = hub.ParseStopMode(cfg.DefaultStop); err != nil {
			return nil, err
		}
	}
	return &wheeledBase{
		left:            left,
		right:           right,
		circumferenceMM: math.Pi * cfg.WheelDiameterMM,
		axleTrackMM:     cfg.AxleTrackMM,
		defaultStop:     defaultStop,
		logger:          logger,
	}, nil
}

// Straight drives both wheels the same signed rotation. Zero distance still
// issues zero-magnitude commands and returns once both complete trivially.
func (wb *wheeledBase) Straight(ctx context.Context, distanceMM, speedMMPerSec float64) error {
	if speedMMPerSec <= 0 {
		speedMMPerSec = base.DefaultStraightSpeedMMPerSec
	}
	left, right := straightInputs(wb.circumferenceMM, distanceMM, speedMMPerSec)
	wb.logger.Debugf("straight %.1fmm at %.1fmm/s: %.1f deg per wheel", distanceMM, speedMMPerSec, left.degrees)
	return wb.moveBoth(ctx, left, right)
}

// Turn rotates the chassis in place, clockwise for positive angles.
func (wb *wheeledBase) Turn(ctx context.Context, angleDeg, degsPerSec float64) error {
	if degsPerSec <= 0 {
		degsPerSec = base.DefaultTurnSpeedDegsPerSec
	}
	left, right := turnInputs(wb.circumferenceMM, wb.axleTrackMM, angleDeg, degsPerSec)
	wb.logger.Debugf("turn %.1f deg at %.1f deg/s: %.1f deg per wheel", angleDeg, degsPerSec, left.degrees)
	return wb.moveBoth(ctx, left, right)
}

// Curve drives a constant-radius arc. Radius zero degenerates to an in-place
// turn at the default turn speed.
func (wb *wheeledBase) Curve(ctx context.Context, radiusMM, angleDeg, speedMMPerSec float64) error {
	if radiusMM == 0 {
		return wb.Turn(ctx, angleDeg, 0)
	}
	if math.IsInf(radiusMM, 0) || math.IsNaN(radiusMM) {
		// The limit of an ever-larger radius is straight-line motion, but an
		// infinite arc has no finite length to drive. Callers wanting straight
		// motion use Straight with a distance.
		return errors.New("curve radius must be finite")
	}
	if speedMMPerSec <= 0 {
		speedMMPerSec = base.DefaultStraightSpeedMMPerSec
	}
	left, right := curveInputs(wb.circumferenceMM, wb.axleTrackMM, radiusMM, angleDeg, speedMMPerSec)
	wb.logger.Debugf("curve r=%.1fmm %.1f deg: left %.1f deg, right %.1f deg", radiusMM, angleDeg, left.degrees, right.degrees)
	return wb.moveBoth(ctx, left, right)
}

// moveBoth issues one rotation per wheel back to back, then waits on both
// completions concurrently so the finish skew between the wheels stays
// bounded. Any fault brakes the surviving side before it propagates.
func (wb *wheeledBase) moveBoth(ctx context.Context, left, right wheelInputs) error {
	wb.motionMu.Lock()
	defer wb.motionMu.Unlock()

	leftComp, err := wb.left.RotateBy(ctx, left.degrees, left.speedDegsPerSec)
	if err != nil {
		// The right wheel was never commanded; nothing is in motion yet.
		return base.NewDriveError(base.Left, err)
	}
	rightComp, err := wb.right.RotateBy(ctx, right.degrees, right.speedDegsPerSec)
	if err != nil {
		return wb.brakeSurvivors(ctx, base.NewDriveError(base.Right, err))
	}

	err = utils.RunInParallel(ctx, []utils.SimpleFunc{
		func(ctx context.Context) error {
			if err := leftComp.Wait(ctx); err != nil {
				return base.NewDriveError(base.Left, err)
			}
			return nil
		},
		func(ctx context.Context) error {
			if err := rightComp.Wait(ctx); err != nil {
				return base.NewDriveError(base.Right, err)
			}
			return nil
		},
	})
	if err != nil {
		return wb.brakeSurvivors(ctx, err)
	}
	return nil
}

// brakeSurvivors stops every wheel that did not itself fault. One wheel
// driving on after the other has died would spin the robot in place of the
// commanded motion.
func (wb *wheeledBase) brakeSurvivors(ctx context.Context, motionErr error) error {
	var leftFailed, rightFailed bool
	for _, err := range multierr.Errors(motionErr) {
		if de, ok := base.AsDriveError(err); ok {
			switch de.Side {
			case base.Left:
				leftFailed = true
			case base.Right:
				rightFailed = true
			case base.Both:
				leftFailed, rightFailed = true, true
			}
		}
	}

	var stopErr error
	if !leftFailed {
		stopErr = multierr.Append(stopErr, wb.left.Stop(ctx, hub.Brake))
	}
	if !rightFailed {
		stopErr = multierr.Append(stopErr, wb.right.Stop(ctx, hub.Brake))
	}
	return multierr.Combine(motionErr, stopErr)
}

// Drive starts continuous motion and returns without waiting.
func (wb *wheeledBase) Drive(ctx context.Context, speedMMPerSec, turnRateDegsPerSec float64) error {
	wb.motionMu.Lock()
	defer wb.motionMu.Unlock()

	leftDPS, rightDPS := driveInputs(wb.circumferenceMM, wb.axleTrackMM, speedMMPerSec, turnRateDegsPerSec)
	wb.logger.Debugf("drive %.1fmm/s turn %.1f deg/s: wheels %.1f / %.1f deg/s", speedMMPerSec, turnRateDegsPerSec, leftDPS, rightDPS)

	if err := wb.left.Run(ctx, leftDPS); err != nil {
		return base.NewDriveError(base.Left, err)
	}
	if err := wb.right.Run(ctx, rightDPS); err != nil {
		return wb.brakeSurvivors(ctx, base.NewDriveError(base.Right, err))
	}
	return nil
}

// Stop ends any motion on both wheels with the base's default stop behavior.
func (wb *wheeledBase) Stop(ctx context.Context) error {
	return multierr.Combine(
		wb.left.Stop(ctx, wb.defaultStop),
		wb.right.Stop(ctx, wb.defaultStop),
	)
}

// Distance reports the mean wheel travel since the last odometry reset.
func (wb *wheeledBase) Distance(ctx context.Context) (float64, error) {
	leftMM, rightMM, err := wb.wheelTravelMM(ctx)
	if err != nil {
		return 0, err
	}
	return (leftMM + rightMM) / 2, nil
}

// Heading reports the accumulated chassis rotation, clockwise positive. The
// wheel travel difference divided by the axle track is the rotation in
// radians.
func (wb *wheeledBase) Heading(ctx context.Context) (float64, error) {
	leftMM, rightMM, err := wb.wheelTravelMM(ctx)
	if err != nil {
		return 0, err
	}
	return (leftMM - rightMM) / wb.axleTrackMM * 180 / math.Pi, nil
}

func (wb *wheeledBase) wheelTravelMM(ctx context.Context) (float64, float64, error) {
	leftDeg, err := wb.left.Angle(ctx)
	if err != nil {
		return 0, 0, base.NewDriveError(base.Left, err)
	}
	rightDeg, err := wb.right.Angle(ctx)
	if err != nil {
		return 0, 0, base.NewDriveError(base.Right, err)
	}
	return degreesToMM(wb.circumferenceMM, leftDeg), degreesToMM(wb.circumferenceMM, rightDeg), nil
}

// ResetOdometry zeroes both wheel rotation counters.
func (wb *wheeledBase) ResetOdometry(ctx context.Context) error {
	return multierr.Combine(
		wb.left.ResetAngle(ctx, 0),
		wb.right.ResetAngle(ctx, 0),
	)
}
