// Package fake implements an in-memory hub for tests and demos.
//
// The fake records every issued command, keeps per-port shaft-angle
// bookkeeping, and simulates motion time on an injectable clock so tests can
// either run instantly or exercise real completion waits.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"

	"github.com/brickbotics/spikedrive/hub"
)

// Op labels the kind of command a fake hub recorded.
type Op string

// The command kinds a fake hub records.
const (
	OpRotateBy   Op = "rotate_by"
	OpRotateTo   Op = "rotate_to"
	OpRun        Op = "run"
	OpStop       Op = "stop"
	OpResetAngle Op = "reset_angle"
)

// Command is one recorded hub call. Degrees holds the signed rotation for
// OpRotateBy, the absolute target for OpRotateTo, and the new counter value
// for OpResetAngle.
type Command struct {
	Op      Op
	Port    hub.Port
	Degrees float64
	Speed   float64
	Then    hub.StopMode
}

// Hub is a fake hub.Hub.
type Hub struct {
	Clock clock.Clock
	// TimeScale stretches or shrinks simulated motion time. Zero makes every
	// completion resolve immediately.
	TimeScale float64
	Logger    golog.Logger

	mu          sync.Mutex
	commands    []Command
	angles      map[hub.Port]float64
	velocities  map[hub.Port]float64
	issueFaults map[hub.Port]error
	waitFaults  map[hub.Port]error
}

// NewHub returns a fake hub that simulates motion in real time.
func NewHub(logger golog.Logger) *Hub {
	return &Hub{
		Clock:       clock.New(),
		TimeScale:   1,
		Logger:      logger,
		angles:      map[hub.Port]float64{},
		velocities:  map[hub.Port]float64{},
		issueFaults: map[hub.Port]error{},
		waitFaults:  map[hub.Port]error{},
	}
}

// NewInstantHub returns a fake hub whose completions resolve immediately.
func NewInstantHub(logger golog.Logger) *Hub {
	h := NewHub(logger)
	h.TimeScale = 0
	return h
}

// InjectIssueFault makes the next command issued to the port fail.
func (h *Hub) InjectIssueFault(port hub.Port, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.issueFaults[port] = err
}

// InjectWaitFault makes the next completion on the port fail mid-motion.
func (h *Hub) InjectWaitFault(port hub.Port, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.waitFaults[port] = err
}

// Commands returns a copy of every recorded command in issue order.
func (h *Hub) Commands() []Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Command, len(h.commands))
	copy(out, h.commands)
	return out
}

// CommandsFor returns the recorded commands for one port, in issue order.
func (h *Hub) CommandsFor(port hub.Port) []Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Command
	for _, c := range h.commands {
		if c.Port == port {
			out = append(out, c)
		}
	}
	return out
}

// LastCommand returns the most recent command issued to the port.
func (h *Hub) LastCommand(port hub.Port) (Command, bool) {
	cmds := h.CommandsFor(port)
	if len(cmds) == 0 {
		return Command{}, false
	}
	return cmds[len(cmds)-1], true
}

// SetVelocity overrides the reported shaft velocity, e.g. to simulate a stall
// while a Run command is active.
func (h *Hub) SetVelocity(port hub.Port, degsPerSec float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.velocities[port] = degsPerSec
}

// SetAngle overrides the reported cumulative shaft angle.
func (h *Hub) SetAngle(port hub.Port, degrees float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.angles[port] = degrees
}

type completion struct {
	clk clock.Clock
	dur time.Duration
	err error
}

func (c *completion) Wait(ctx context.Context) error {
	if c.err != nil {
		return c.err
	}
	if c.dur <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clk.After(c.dur):
		return nil
	}
}

func (h *Hub) motionDuration(degrees, speed float64) time.Duration {
	if degrees == 0 || speed == 0 || h.TimeScale == 0 {
		return 0
	}
	secs := math.Abs(degrees/speed) * h.TimeScale
	return time.Duration(secs * float64(time.Second))
}

func (h *Hub) takeIssueFault(port hub.Port) error {
	if err, ok := h.issueFaults[port]; ok {
		delete(h.issueFaults, port)
		return err
	}
	return nil
}

func (h *Hub) takeWaitFault(port hub.Port) error {
	if err, ok := h.waitFaults[port]; ok {
		delete(h.waitFaults, port)
		return err
	}
	return nil
}

// RotateBy records the rotation and returns a completion that resolves after
// the simulated motion time. Shaft bookkeeping is applied at issue time.
func (h *Hub) RotateBy(
	ctx context.Context, port hub.Port, degrees, speedDegsPerSec float64, then hub.StopMode,
) (hub.Completion, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.takeIssueFault(port); err != nil {
		return nil, err
	}
	h.commands = append(h.commands, Command{
		Op: OpRotateBy, Port: port, Degrees: degrees, Speed: speedDegsPerSec, Then: then,
	})
	h.angles[port] += degrees
	if h.Logger != nil {
		h.Logger.Debugf("fake hub: rotate port %s by %.2f deg at %.2f deg/s", port, degrees, speedDegsPerSec)
	}
	return &completion{
		clk: h.Clock,
		dur: h.motionDuration(degrees, speedDegsPerSec),
		err: h.takeWaitFault(port),
	}, nil
}

// RotateTo behaves like RotateBy with an absolute target.
func (h *Hub) RotateTo(
	ctx context.Context, port hub.Port, targetDegrees, speedDegsPerSec float64, then hub.StopMode,
) (hub.Completion, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.takeIssueFault(port); err != nil {
		return nil, err
	}
	h.commands = append(h.commands, Command{
		Op: OpRotateTo, Port: port, Degrees: targetDegrees, Speed: speedDegsPerSec, Then: then,
	})
	delta := targetDegrees - h.angles[port]
	h.angles[port] = targetDegrees
	return &completion{
		clk: h.Clock,
		dur: h.motionDuration(delta, speedDegsPerSec),
		err: h.takeWaitFault(port),
	}, nil
}

// Run records continuous rotation and reports the commanded speed as the
// port's velocity until something stops it.
func (h *Hub) Run(ctx context.Context, port hub.Port, speedDegsPerSec float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.takeIssueFault(port); err != nil {
		return err
	}
	h.commands = append(h.commands, Command{Op: OpRun, Port: port, Speed: speedDegsPerSec})
	h.velocities[port] = speedDegsPerSec
	return nil
}

// Stop records the stop and zeroes the port's velocity.
func (h *Hub) Stop(ctx context.Context, port hub.Port, then hub.StopMode) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.takeIssueFault(port); err != nil {
		return err
	}
	h.commands = append(h.commands, Command{Op: OpStop, Port: port, Then: then})
	h.velocities[port] = 0
	return nil
}

// Angle reports the cumulative shaft angle bookkeeping.
func (h *Hub) Angle(ctx context.Context, port hub.Port) (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.angles[port], nil
}

// Velocity reports the last value set by Run or SetVelocity.
func (h *Hub) Velocity(ctx context.Context, port hub.Port) (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.velocities[port], nil
}

// ResetAngle sets the cumulative counter to the given value.
func (h *Hub) ResetAngle(ctx context.Context, port hub.Port, toDegrees float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, Command{Op: OpResetAngle, Port: port, Degrees: toDegrees})
	h.angles[port] = toDegrees
	return nil
}
