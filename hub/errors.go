package hub

import (
	"fmt"

	"github.com/pkg/errors"
)

// FaultError reports a hardware-level failure on a single hub port: the port
// has no motor attached, the firmware rejected the command, or the motor
// stalled mid-motion.
type FaultError struct {
	Port   Port
	Reason string
	cause  error
}

func (e *FaultError) Error() string {
	msg := fmt.Sprintf("actuator fault on port %s: %s", e.Port, e.Reason)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *FaultError) Unwrap() error {
	return e.cause
}

// NewPortUnavailableError returns a fault for a port with no usable motor.
func NewPortUnavailableError(port Port) *FaultError {
	return &FaultError{Port: port, Reason: "no motor detected"}
}

// NewCommandRejectedError returns a fault for a command the firmware refused.
func NewCommandRejectedError(port Port, reason string) *FaultError {
	return &FaultError{Port: port, Reason: "command rejected: " + reason}
}

// NewStallError returns a fault for a motor that stalled during a motion.
func NewStallError(port Port) *FaultError {
	return &FaultError{Port: port, Reason: "motor stalled"}
}

// WrapFault attaches a port to an underlying transport or firmware error.
func WrapFault(port Port, reason string, cause error) *FaultError {
	return &FaultError{Port: port, Reason: reason, cause: cause}
}

// AsFault extracts a FaultError from anywhere in err's chain.
func AsFault(err error) (*FaultError, bool) {
	var fe *FaultError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
