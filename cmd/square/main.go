// Package main contains a command to drive a differential-drive robot in a
// square and report the odometry afterward.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/brickbotics/spikedrive/components/base"
	"github.com/brickbotics/spikedrive/components/base/wheeled"
	"github.com/brickbotics/spikedrive/hub"
	"github.com/brickbotics/spikedrive/hub/fake"
	"github.com/brickbotics/spikedrive/hub/hubserial"
	"github.com/brickbotics/spikedrive/robotconfig"
)

var logger = golog.NewDevelopmentLogger("square")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Config   string  `flag:"config,required,usage=robot profile JSON"`
	Device   string  `flag:"device,usage=serial hub device path (omit to search)"`
	Simulate bool    `flag:"simulate,usage=use a simulated hub instead of hardware"`
	SideMM   float64 `flag:"side,default=200,usage=square side length in mm"`
	SpeedMMS float64 `flag:"speed,default=0,usage=straight speed in mm/s (0 for default)"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg, err := robotconfig.FromFile(argsParsed.Config)
	if err != nil {
		return err
	}

	var h hub.Hub
	if argsParsed.Simulate {
		logger.Info("using a simulated hub")
		h = fake.NewHub(logger)
	} else {
		var serialHub *hubserial.Hub
		if argsParsed.Device == "" {
			serialHub, err = hubserial.FindHub(logger)
		} else {
			serialHub, err = hubserial.NewHub(argsParsed.Device, logger)
		}
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, serialHub.Close())
		}()
		h = serialHub
	}

	b, err := cfg.NewBase(h, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, b.Stop(ctx))
	}()

	return driveSquare(ctx, b, argsParsed.SideMM, argsParsed.SpeedMMS, logger)
}

func driveSquare(ctx context.Context, b base.Base, sideMM, speedMMS float64, logger golog.Logger) error {
	if sideMM <= 0 {
		return errors.Errorf("side must be positive, got %f", sideMM)
	}

	if err := b.ResetOdometry(ctx); err != nil {
		return err
	}

	var tracker wheeled.Tracker
	for i := 0; i < 4; i++ {
		logger.Infow("driving side", "side", i+1, "mm", sideMM)
		if err := b.Straight(ctx, sideMM, speedMMS); err != nil {
			return errors.Wrapf(err, "side %d", i+1)
		}
		tracker.Straight(sideMM)

		if err := b.Turn(ctx, 90, 0); err != nil {
			return errors.Wrapf(err, "corner %d", i+1)
		}
		tracker.Turn(90)
	}

	distance, err := b.Distance(ctx)
	if err != nil {
		return err
	}
	heading, err := b.Heading(ctx)
	if err != nil {
		return err
	}
	pos, trackerHeading := tracker.Pose()
	logger.Infow("square complete",
		"distance_mm", distance,
		"heading_deg", heading,
		"expected_heading_deg", trackerHeading,
		"expected_position_mm", pos,
	)
	return nil
}
