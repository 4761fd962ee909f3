// Package robotconfig loads a robot profile from JSON and constructs the
// components it describes.
package robotconfig

import (
	"encoding/json"
	"io"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/brickbotics/spikedrive/components/base"
	"github.com/brickbotics/spikedrive/components/base/wheeled"
	"github.com/brickbotics/spikedrive/components/motor"
	"github.com/brickbotics/spikedrive/hub"
)

// Config is a complete differential-drive robot profile.
type Config struct {
	LeftMotor       motor.Config `json:"left_motor"`
	RightMotor      motor.Config `json:"right_motor"`
	WheelDiameterMM float64      `json:"wheel_diameter_mm"`
	AxleTrackMM     float64      `json:"axle_track_mm"`
	DefaultStop     string       `json:"default_stop,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if err := cfg.LeftMotor.Validate(path + ".left_motor"); err != nil {
		return err
	}
	if err := cfg.RightMotor.Validate(path + ".right_motor"); err != nil {
		return err
	}
	if cfg.LeftMotor.Port == cfg.RightMotor.Port {
		return errors.Errorf("left_motor and right_motor share port %s", cfg.LeftMotor.Port)
	}
	baseCfg := cfg.baseConfig()
	return baseCfg.Validate(path)
}

func (cfg *Config) baseConfig() wheeled.Config {
	return wheeled.Config{
		WheelDiameterMM: cfg.WheelDiameterMM,
		AxleTrackMM:     cfg.AxleTrackMM,
		DefaultStop:     cfg.DefaultStop,
	}
}

// FromReader parses and validates a profile from r.
func FromReader(r io.Reader) (*Config, error) {
	var cfg Config
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "parsing robot profile")
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile parses and validates the profile at the given path.
func FromFile(path string) (*Config, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening robot profile %s", path)
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	return FromReader(f)
}

// NewBase constructs both motors and the wheeled base the profile describes.
func (cfg *Config) NewBase(h hub.Hub, logger golog.Logger) (base.Base, error) {
	left, err := motor.New(h, cfg.LeftMotor, logger)
	if err != nil {
		return nil, errors.Wrap(err, "left motor")
	}
	right, err := motor.New(h, cfg.RightMotor, logger)
	if err != nil {
		return nil, errors.Wrap(err, "right motor")
	}
	return wheeled.New(left, right, cfg.baseConfig(), logger)
}
