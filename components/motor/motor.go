// Package motor wraps one physical hub motor behind a polarity-correcting API.
//
// A Motor knows its hub port and which physical spin direction counts as
// positive. Sign normalization is the only transform performed here: a
// positive angle or speed always means "forward in the robot's sense",
// regardless of how the motor is mounted. Geometry belongs to the base
// components, raw device access to the hub implementations.
package motor

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/brickbotics/spikedrive/hub"
)

// Direction is the physical shaft direction that counts as positive motion.
type Direction uint8

// The two mounting polarities.
const (
	Clockwise Direction = iota
	Counterclockwise
)

// ParseDirection converts a config token into a Direction. The empty string
// defaults to Clockwise.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "clockwise":
		return Clockwise, nil
	case "counterclockwise":
		return Counterclockwise, nil
	default:
		return 0, errors.Errorf("unknown direction %q", s)
	}
}

// A Motor commands a single shaft in robot-forward-positive units.
type Motor interface {
	// RotateBy turns the shaft by the signed angle at the given speed
	// magnitude and returns a completion handle for the motion.
	RotateBy(ctx context.Context, degrees, speedDegsPerSec float64) (hub.Completion, error)

	// RotateTo turns the shaft to an absolute angle at the given speed
	// magnitude and returns a completion handle for the motion.
	RotateTo(ctx context.Context, targetDegrees, speedDegsPerSec float64) (hub.Completion, error)

	// Run starts continuous rotation at a signed speed without waiting.
	Run(ctx context.Context, speedDegsPerSec float64) error

	// Stop ends any motion with the given stop behavior.
	Stop(ctx context.Context, then hub.StopMode) error

	// Angle reports the cumulative shaft rotation since the last reset.
	Angle(ctx context.Context) (float64, error)

	// Velocity reports the current shaft speed in degrees per second.
	Velocity(ctx context.Context) (float64, error)

	// ResetAngle sets the cumulative rotation counter.
	ResetAngle(ctx context.Context, toDegrees float64) error

	// Port reports the hub port the motor is attached to.
	Port() hub.Port
}

// Config describes one motor attachment.
type Config struct {
	Port        string `json:"port"`
	Direction   string `json:"direction,omitempty"`
	DefaultStop string `json:"default_stop,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Port == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "port")
	}
	if _, err := hub.ParsePort(cfg.Port); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if _, err := ParseDirection(cfg.Direction); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if cfg.DefaultStop != "" {
		if _, err := hub.ParseStopMode(cfg.DefaultStop); err != nil {
			return goutils.NewConfigValidationError(path, err)
		}
	}
	return nil
}

type hubMotor struct {
	hub         hub.Hub
	port        hub.Port
	sign        float64
	defaultStop hub.StopMode
	logger      golog.Logger
}

// New returns a Motor on the configured port. The default stop mode, applied
// at the end of every bounded rotation, falls back to SmartBrake when the
// config leaves it unset.
func New(h hub.Hub, cfg Config, logger golog.Logger) (Motor, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	port, err := hub.ParsePort(cfg.Port)
	if err != nil {
		return nil, err
	}
	dir, err := ParseDirection(cfg.Direction)
	if err != nil {
		return nil, err
	}
	sign := 1.0
	if dir == Counterclockwise {
		sign = -1.0
	}
	defaultStop := hub.SmartBrake
	if cfg.DefaultStop != "" {
		if defaultStop, err = hub.ParseStopMode(cfg.DefaultStop); err != nil {
			return nil, err
		}
	}
	return &hubMotor{
		hub:         h,
		port:        port,
		sign:        sign,
		defaultStop: defaultStop,
		logger:      logger,
	}, nil
}

func (m *hubMotor) RotateBy(ctx context.Context, degrees, speedDegsPerSec float64) (hub.Completion, error) {
	return m.hub.RotateBy(ctx, m.port, degrees*m.sign, speedDegsPerSec, m.defaultStop)
}

func (m *hubMotor) RotateTo(ctx context.Context, targetDegrees, speedDegsPerSec float64) (hub.Completion, error) {
	return m.hub.RotateTo(ctx, m.port, targetDegrees*m.sign, speedDegsPerSec, m.defaultStop)
}

func (m *hubMotor) Run(ctx context.Context, speedDegsPerSec float64) error {
	return m.hub.Run(ctx, m.port, speedDegsPerSec*m.sign)
}

func (m *hubMotor) Stop(ctx context.Context, then hub.StopMode) error {
	return m.hub.Stop(ctx, m.port, then)
}

func (m *hubMotor) Angle(ctx context.Context) (float64, error) {
	raw, err := m.hub.Angle(ctx, m.port)
	return raw * m.sign, err
}

func (m *hubMotor) Velocity(ctx context.Context) (float64, error) {
	raw, err := m.hub.Velocity(ctx, m.port)
	return raw * m.sign, err
}

func (m *hubMotor) ResetAngle(ctx context.Context, toDegrees float64) error {
	return m.hub.ResetAngle(ctx, m.port, toDegrees*m.sign)
}

func (m *hubMotor) Port() hub.Port {
	return m.port
}
