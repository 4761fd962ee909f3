// Package hubserial implements hub.Hub over a serial-attached hub running the
// firmware bridge.
//
// The wire protocol is newline-delimited ASCII. Each request line is
//
//	<seq> <cmd> <port> [args...]
//
// and is answered by exactly one reply line, "<seq> ok [value]" or
// "<seq> err <reason>". Motion commands additionally emit an asynchronous
// "done <seq> [reason]" line once the motion physically ends; that line
// resolves the corresponding completion handle.
package hubserial

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/brickbotics/spikedrive/hub"
	"github.com/brickbotics/spikedrive/serial"
)

type response struct {
	payload string
	err     error
}

type pendingRequest struct {
	port hub.Port
	ch   chan response
}

type motionWaiter struct {
	port hub.Port
	ch   chan error
}

// Hub speaks the bridge protocol over one serial device.
type Hub struct {
	logger golog.Logger
	rwc    io.ReadWriteCloser

	// writeMu serializes request lines on the wire.
	writeMu sync.Mutex

	mu      sync.Mutex
	seq     int
	pending map[int]*pendingRequest
	waiters map[int]*motionWaiter
	closed  bool

	activeBackgroundWorkers sync.WaitGroup
}

// NewHub opens the serial device at the given path and starts the reader.
func NewHub(devicePath string, logger golog.Logger) (*Hub, error) {
	device, err := serial.Open(devicePath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening hub device %s", devicePath)
	}
	return NewHubFromDevice(device, logger), nil
}

// FindHub searches for an attached hub and opens the first one found.
func FindHub(logger golog.Logger) (*Hub, error) {
	devices := serial.Search()
	if len(devices) == 0 {
		return nil, errors.New("no hub device found")
	}
	logger.Infof("using hub device %s", devices[0].Path)
	return NewHub(devices[0].Path, logger)
}

// NewHubFromDevice wraps an already-open device, e.g. an in-memory pair in
// tests.
func NewHubFromDevice(rwc io.ReadWriteCloser, logger golog.Logger) *Hub {
	h := &Hub{
		logger:  logger,
		rwc:     rwc,
		pending: map[int]*pendingRequest{},
		waiters: map[int]*motionWaiter{},
	}
	h.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(h.readLoop)
	return h
}

// Close shuts the device down and fails any outstanding completions.
func (h *Hub) Close() error {
	err := h.rwc.Close()
	h.activeBackgroundWorkers.Wait()
	return err
}

func (h *Hub) readLoop() {
	defer h.activeBackgroundWorkers.Done()

	scanner := bufio.NewScanner(h.rwc)
	for scanner.Scan() {
		h.handleLine(strings.TrimSpace(scanner.Text()))
	}
	err := scanner.Err()
	if err == nil {
		err = errors.New("hub connection closed")
	}
	h.failAll(err)
}

func (h *Hub) handleLine(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	if fields[0] == "done" {
		if len(fields) < 2 {
			h.logger.Debugf("malformed done line %q", line)
			return
		}
		seq, err := strconv.Atoi(fields[1])
		if err != nil {
			h.logger.Debugf("malformed done line %q", line)
			return
		}
		h.mu.Lock()
		waiter, ok := h.waiters[seq]
		delete(h.waiters, seq)
		h.mu.Unlock()
		if !ok {
			h.logger.Debugf("done for unknown command %d", seq)
			return
		}
		if len(fields) > 2 {
			waiter.ch <- hub.WrapFault(waiter.port, strings.Join(fields[2:], " "), nil)
		} else {
			waiter.ch <- nil
		}
		return
	}

	seq, err := strconv.Atoi(fields[0])
	if err != nil || len(fields) < 2 {
		h.logger.Debugf("malformed reply line %q", line)
		return
	}
	h.mu.Lock()
	req, ok := h.pending[seq]
	delete(h.pending, seq)
	h.mu.Unlock()
	if !ok {
		h.logger.Debugf("reply for unknown command %d", seq)
		return
	}

	payload := strings.Join(fields[2:], " ")
	switch fields[1] {
	case "ok":
		req.ch <- response{payload: payload}
	case "err":
		req.ch <- response{err: hub.NewCommandRejectedError(req.port, payload)}
	default:
		h.logger.Debugf("unknown reply status in %q", line)
	}
}

// failAll resolves every outstanding request and completion with err.
func (h *Hub) failAll(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for seq, req := range h.pending {
		delete(h.pending, seq)
		req.ch <- response{err: err}
	}
	for seq, waiter := range h.waiters {
		delete(h.waiters, seq)
		waiter.ch <- err
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// send writes one request line and returns the channel its reply will arrive
// on. When motion is true, a completion waiter is registered under the same
// sequence number before the line goes out, so a fast "done" cannot be lost.
func (h *Hub) send(port hub.Port, motion bool, words ...string) (chan response, *motionWaiter, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, nil, errors.New("hub is closed")
	}
	h.seq++
	seq := h.seq
	ch := make(chan response, 1)
	h.pending[seq] = &pendingRequest{port: port, ch: ch}
	var waiter *motionWaiter
	if motion {
		waiter = &motionWaiter{port: port, ch: make(chan error, 1)}
		h.waiters[seq] = waiter
	}
	h.mu.Unlock()

	line := strconv.Itoa(seq) + " " + strings.Join(words, " ") + "\n"
	h.writeMu.Lock()
	_, err := h.rwc.Write([]byte(line))
	h.writeMu.Unlock()
	if err != nil {
		h.mu.Lock()
		delete(h.pending, seq)
		delete(h.waiters, seq)
		h.mu.Unlock()
		return nil, nil, hub.WrapFault(port, "writing command", err)
	}
	return ch, waiter, nil
}

// request performs one non-motion command and returns the reply payload.
func (h *Hub) request(ctx context.Context, port hub.Port, words ...string) (string, error) {
	ch, _, err := h.send(port, false, words...)
	if err != nil {
		return "", err
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case resp := <-ch:
		return resp.payload, resp.err
	}
}

type completion struct {
	waiter *motionWaiter
}

func (c *completion) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.waiter.ch:
		return err
	}
}

// motionRequest performs one motion command and returns its completion.
func (h *Hub) motionRequest(ctx context.Context, port hub.Port, words ...string) (hub.Completion, error) {
	ch, waiter, err := h.send(port, true, words...)
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-ch:
		if resp.err != nil {
			h.mu.Lock()
			delete(h.waiters, findSeq(h.waiters, waiter))
			h.mu.Unlock()
			return nil, resp.err
		}
		return &completion{waiter: waiter}, nil
	}
}

func findSeq(waiters map[int]*motionWaiter, waiter *motionWaiter) int {
	for seq, w := range waiters {
		if w == waiter {
			return seq
		}
	}
	return -1
}

// RotateBy commands a relative rotation.
func (h *Hub) RotateBy(
	ctx context.Context, port hub.Port, degrees, speedDegsPerSec float64, then hub.StopMode,
) (hub.Completion, error) {
	return h.motionRequest(ctx, port, "rotate", port.String(), formatFloat(degrees), formatFloat(speedDegsPerSec), then.String())
}

// RotateTo commands an absolute rotation.
func (h *Hub) RotateTo(
	ctx context.Context, port hub.Port, targetDegrees, speedDegsPerSec float64, then hub.StopMode,
) (hub.Completion, error) {
	return h.motionRequest(ctx, port, "goto", port.String(), formatFloat(targetDegrees), formatFloat(speedDegsPerSec), then.String())
}

// Run commands continuous rotation.
func (h *Hub) Run(ctx context.Context, port hub.Port, speedDegsPerSec float64) error {
	_, err := h.request(ctx, port, "run", port.String(), formatFloat(speedDegsPerSec))
	return err
}

// Stop ends motion on the port.
func (h *Hub) Stop(ctx context.Context, port hub.Port, then hub.StopMode) error {
	_, err := h.request(ctx, port, "stop", port.String(), then.String())
	return err
}

// Angle reads the cumulative shaft rotation.
func (h *Hub) Angle(ctx context.Context, port hub.Port) (float64, error) {
	return h.floatRequest(ctx, port, "angle")
}

// Velocity reads the current shaft speed.
func (h *Hub) Velocity(ctx context.Context, port hub.Port) (float64, error) {
	return h.floatRequest(ctx, port, "velocity")
}

func (h *Hub) floatRequest(ctx context.Context, port hub.Port, cmd string) (float64, error) {
	payload, err := h.request(ctx, port, cmd, port.String())
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		return 0, hub.WrapFault(port, "malformed "+cmd+" reply "+strconv.Quote(payload), err)
	}
	return value, nil
}

// ResetAngle sets the cumulative rotation counter.
func (h *Hub) ResetAngle(ctx context.Context, port hub.Port, toDegrees float64) error {
	_, err := h.request(ctx, port, "reset", port.String(), formatFloat(toDegrees))
	return err
}
