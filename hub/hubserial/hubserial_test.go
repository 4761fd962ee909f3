package hubserial

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/brickbotics/spikedrive/hub"
)

var _ hub.Hub = &Hub{}

// duplex joins one end of an in-memory device: reads come from the device's
// output, writes go to the device's input.
type duplex struct {
	io.Reader
	io.Writer
	closeFns []func() error
}

func (d *duplex) Close() error {
	var first error
	for _, fn := range d.closeFns {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// fakeDevice runs a scripted bridge on the far end of the wire. respond is
// called with each request's fields (seq stripped) and returns the reply
// lines to send, each already missing its trailing newline; "%s" in a line is
// replaced with the request's sequence number.
func fakeDevice(t *testing.T, respond func(fields []string) []string) io.ReadWriteCloser {
	t.Helper()

	hostReader, deviceWriter := io.Pipe()
	deviceReader, hostWriter := io.Pipe()

	go func() {
		scanner := bufio.NewScanner(deviceReader)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) < 2 {
				continue
			}
			seq := fields[0]
			for _, line := range respond(fields[1:]) {
				line = strings.ReplaceAll(line, "%s", seq)
				if _, err := deviceWriter.Write([]byte(line + "\n")); err != nil {
					return
				}
			}
		}
	}()

	return &duplex{
		Reader: hostReader,
		Writer: hostWriter,
		closeFns: []func() error{
			hostWriter.Close,
			deviceWriter.Close,
		},
	}
}

func TestMotionCommandRoundTrip(t *testing.T) {
	ctx := context.Background()
	var request []string
	device := fakeDevice(t, func(fields []string) []string {
		request = fields
		return []string{"%s ok", "done %s"}
	})
	h := NewHubFromDevice(device, golog.NewTestLogger(t))
	defer func() {
		test.That(t, h.Close(), test.ShouldBeNil)
	}()

	comp, err := h.RotateBy(ctx, hub.PortA, 90, 100, hub.Brake)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, comp.Wait(ctx), test.ShouldBeNil)
	test.That(t, request, test.ShouldResemble, []string{"rotate", "A", "90", "100", "brake"})

	comp, err = h.RotateTo(ctx, hub.PortB, -45.5, 200, hub.Hold)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, comp.Wait(ctx), test.ShouldBeNil)
	test.That(t, request, test.ShouldResemble, []string{"goto", "B", "-45.5", "200", "hold"})
}

func TestRejectedCommand(t *testing.T) {
	ctx := context.Background()
	device := fakeDevice(t, func(fields []string) []string {
		return []string{"%s err no motor attached"}
	})
	h := NewHubFromDevice(device, golog.NewTestLogger(t))
	defer func() {
		test.That(t, h.Close(), test.ShouldBeNil)
	}()

	_, err := h.RotateBy(ctx, hub.PortC, 90, 100, hub.Brake)
	test.That(t, err, test.ShouldNotBeNil)
	fault, ok := hub.AsFault(err)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fault.Port, test.ShouldEqual, hub.PortC)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no motor attached")
}

func TestMotionFaultOnDone(t *testing.T) {
	ctx := context.Background()
	device := fakeDevice(t, func(fields []string) []string {
		return []string{"%s ok", "done %s stalled"}
	})
	h := NewHubFromDevice(device, golog.NewTestLogger(t))
	defer func() {
		test.That(t, h.Close(), test.ShouldBeNil)
	}()

	comp, err := h.RotateBy(ctx, hub.PortA, 360, 100, hub.Brake)
	test.That(t, err, test.ShouldBeNil)
	err = comp.Wait(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	fault, ok := hub.AsFault(err)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fault.Port, test.ShouldEqual, hub.PortA)
	test.That(t, fault.Reason, test.ShouldEqual, "stalled")
}

func TestSensorReads(t *testing.T) {
	ctx := context.Background()
	device := fakeDevice(t, func(fields []string) []string {
		switch fields[0] {
		case "angle":
			return []string{"%s ok 123.5"}
		case "velocity":
			return []string{"%s ok -42"}
		default:
			return []string{"%s ok"}
		}
	})
	h := NewHubFromDevice(device, golog.NewTestLogger(t))
	defer func() {
		test.That(t, h.Close(), test.ShouldBeNil)
	}()

	angle, err := h.Angle(ctx, hub.PortA)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, angle, test.ShouldEqual, 123.5)

	velocity, err := h.Velocity(ctx, hub.PortB)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, velocity, test.ShouldEqual, -42)

	test.That(t, h.Run(ctx, hub.PortA, 100), test.ShouldBeNil)
	test.That(t, h.Stop(ctx, hub.PortA, hub.Coast), test.ShouldBeNil)
	test.That(t, h.ResetAngle(ctx, hub.PortA, 0), test.ShouldBeNil)
}

func TestMalformedSensorReply(t *testing.T) {
	ctx := context.Background()
	device := fakeDevice(t, func(fields []string) []string {
		return []string{"%s ok not-a-number"}
	})
	h := NewHubFromDevice(device, golog.NewTestLogger(t))
	defer func() {
		test.That(t, h.Close(), test.ShouldBeNil)
	}()

	_, err := h.Angle(ctx, hub.PortA)
	test.That(t, err, test.ShouldNotBeNil)
	fault, ok := hub.AsFault(err)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fault.Port, test.ShouldEqual, hub.PortA)
}

func TestCloseFailsOutstandingWait(t *testing.T) {
	ctx := context.Background()
	device := fakeDevice(t, func(fields []string) []string {
		// Acknowledge but never finish the motion.
		return []string{"%s ok"}
	})
	h := NewHubFromDevice(device, golog.NewTestLogger(t))

	comp, err := h.RotateBy(ctx, hub.PortA, 90, 100, hub.Brake)
	test.That(t, err, test.ShouldBeNil)

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- comp.Wait(ctx)
	}()

	test.That(t, h.Close(), test.ShouldBeNil)
	select {
	case err := <-waitErr:
		test.That(t, err, test.ShouldNotBeNil)
	case <-time.After(time.Second):
		t.Fatal("wait did not resolve on close")
	}

	// New commands after close fail immediately.
	_, err = h.RotateBy(ctx, hub.PortA, 90, 100, hub.Brake)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWaitHonorsContext(t *testing.T) {
	device := fakeDevice(t, func(fields []string) []string {
		return []string{"%s ok"}
	})
	h := NewHubFromDevice(device, golog.NewTestLogger(t))
	defer func() {
		test.That(t, h.Close(), test.ShouldBeNil)
	}()

	comp, err := h.RotateBy(context.Background(), hub.PortA, 90, 100, hub.Brake)
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test.That(t, comp.Wait(ctx), test.ShouldBeError, context.Canceled)
}
