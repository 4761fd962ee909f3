// Package hub defines the actuation interface to a SPIKE-style programmable hub.
//
// A Hub is the boundary between the motion-control components and the hub
// firmware: every motor command ultimately becomes exactly one call on this
// interface. Implementations live in subpackages (hubserial for a USB-attached
// hub, fake for tests and demos).
package hub

import (
	"context"

	"github.com/pkg/errors"
)

// Port identifies one of the hub's six device ports.
type Port uint8

// The ports available on a SPIKE-style hub.
const (
	PortA Port = iota
	PortB
	PortC
	PortD
	PortE
	PortF
)

var portNames = map[Port]string{
	PortA: "A",
	PortB: "B",
	PortC: "C",
	PortD: "D",
	PortE: "E",
	PortF: "F",
}

func (p Port) String() string {
	if name, ok := portNames[p]; ok {
		return name
	}
	return "?"
}

// ParsePort converts a port letter ("A" through "F") into a Port.
func ParsePort(s string) (Port, error) {
	for p, name := range portNames {
		if name == s {
			return p, nil
		}
	}
	return 0, errors.Errorf("unknown hub port %q", s)
}

// StopMode selects what the firmware does with a motor once a command ends.
type StopMode uint8

// The stop behaviors recognized by the hub firmware.
const (
	// Continue leaves the motor running at its current velocity.
	Continue StopMode = iota
	// Coast cuts power and lets the shaft spin freely.
	Coast
	// Brake shorts the windings and keeps braking after the shaft stops.
	Brake
	// Hold actively servos the shaft back to its stopping position.
	Hold
	// SmartCoast coasts but compensates for drift on the next command.
	SmartCoast
	// SmartBrake brakes but compensates for drift on the next command.
	SmartBrake
)

var stopModeNames = map[StopMode]string{
	Continue:   "continue",
	Coast:      "coast",
	Brake:      "brake",
	Hold:       "hold",
	SmartCoast: "smart_coast",
	SmartBrake: "smart_brake",
}

func (m StopMode) String() string {
	if name, ok := stopModeNames[m]; ok {
		return name
	}
	return "?"
}

// ParseStopMode converts a config token like "brake" into a StopMode.
func ParseStopMode(s string) (StopMode, error) {
	for m, name := range stopModeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, errors.Errorf("unknown stop mode %q", s)
}

// A Completion tracks one in-flight motion command.
type Completion interface {
	// Wait blocks until the command physically finishes, the hub reports a
	// fault, or ctx is done.
	Wait(ctx context.Context) error
}

// A Hub issues motor commands to hub firmware, one port at a time. All angles
// are motor-shaft degrees and all speeds are shaft degrees per second; sign
// conventions are the raw firmware ones, with no polarity correction applied.
type Hub interface {
	// RotateBy turns the shaft on the given port by degrees (signed) at the
	// given speed magnitude, then applies the stop mode. A zero-magnitude
	// rotation is legal and completes immediately.
	RotateBy(ctx context.Context, port Port, degrees, speedDegsPerSec float64, then StopMode) (Completion, error)

	// RotateTo turns the shaft to an absolute target angle at the given speed
	// magnitude, then applies the stop mode.
	RotateTo(ctx context.Context, port Port, targetDegrees, speedDegsPerSec float64, then StopMode) (Completion, error)

	// Run starts continuous rotation at a signed speed and returns without
	// waiting.
	Run(ctx context.Context, port Port, speedDegsPerSec float64) error

	// Stop ends any motion on the port with the given stop behavior.
	Stop(ctx context.Context, port Port, then StopMode) error

	// Angle reports the cumulative shaft rotation since the last reset.
	Angle(ctx context.Context, port Port) (float64, error)

	// Velocity reports the current shaft speed in degrees per second.
	Velocity(ctx context.Context, port Port) (float64, error)

	// ResetAngle sets the cumulative rotation counter to the given value.
	ResetAngle(ctx context.Context, port Port, toDegrees float64) error
}
