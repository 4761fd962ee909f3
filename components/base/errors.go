package base

import (
	"fmt"

	"github.com/pkg/errors"
)

// Side identifies which half of a drive base an error belongs to.
type Side uint8

// The sides of a two-wheeled base.
const (
	Left Side = iota
	Right
	Both
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	case Both:
		return "both"
	}
	return "?"
}

// DriveError reports that a synchronized motion failed on one or both sides.
// The wrapped cause is the originating actuator fault; by the time the caller
// sees a DriveError the unaffected motor has already been braked.
type DriveError struct {
	Side  Side
	cause error
}

func (e *DriveError) Error() string {
	return fmt.Sprintf("drive fault on %s side: %v", e.Side, e.cause)
}

func (e *DriveError) Unwrap() error {
	return e.cause
}

// NewDriveError wraps a per-motor failure with the side it occurred on.
func NewDriveError(side Side, cause error) *DriveError {
	return &DriveError{Side: side, cause: cause}
}

// AsDriveError extracts a DriveError from anywhere in err's chain.
func AsDriveError(err error) (*DriveError, bool) {
	var de *DriveError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
