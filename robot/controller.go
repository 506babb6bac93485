// Package robot drives the delta robot over its serial G-code protocol. All
// commands are strictly serialized: one command is in flight at a time and
// the caller waits for the firmware's acknowledgment before the next.
package robot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"smarthand"
)

var (
	// ErrNotConnected means a motion command was issued without an open
	// serial connection.
	ErrNotConnected = errors.New("robot not connected")

	// ErrHandshake means the device on the port did not identify itself
	// as the delta robot.
	ErrHandshake = errors.New("handshake failed")

	// ErrAckTimeout means the firmware did not acknowledge a command
	// within the configured wait. The firmware protocol has no bound of
	// its own, so this keeps a wedged device from hanging the caller.
	ErrAckTimeout = errors.New("timed out waiting for acknowledgment")

	// ErrDeviceFault means the firmware reported an error for a command.
	// Motion must stop rather than retry; a blind retry near the
	// touchscreen risks damage.
	ErrDeviceFault = errors.New("device reported an error")

	// ErrStopped means an emergency stop cut short a command's
	// acknowledgment wait.
	ErrStopped = errors.New("interrupted by emergency stop")
)

// Port is the minimal serial interface the controller needs. go.bug.st's
// serial.Port satisfies it; tests substitute a scripted implementation.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// Config carries the protocol constants for the robot firmware.
type Config struct {
	// HandshakeCommand and HandshakeReply identify the device after the
	// port opens. Empty HandshakeCommand skips the check.
	HandshakeCommand string
	HandshakeReply   string

	// DefaultFeedrate is the G01 feedrate in mm/min when the caller
	// passes none.
	DefaultFeedrate int

	// HomeZ is the effector Z after G28, in mm.
	HomeZ float64

	// AckTimeout bounds the wait for an "ok" after each command.
	AckTimeout time.Duration
}

// DefaultConfig returns the protocol constants for the stock delta firmware.
func DefaultConfig() Config {
	return Config{
		HandshakeCommand: "IsDelta",
		HandshakeReply:   "YesDelta",
		DefaultFeedrate:  2000,
		HomeZ:            -291.28,
		AckTimeout:       5 * time.Second,
	}
}

// readPoll is how long a single port read blocks before the ack deadline is
// rechecked.
const readPoll = 100 * time.Millisecond

// Controller is the serial G-code controller. It mirrors the commanded
// position so the UI can display it without a round trip, refreshing from
// M114 on request.
//
// mu serializes whole commands (write plus acknowledgment wait). wmu guards
// only the raw port writes, so EmergencyStop can reach the wire while a
// command still holds mu for its ack wait. The port pointer is cleared only
// under both locks.
type Controller struct {
	cfg  Config
	log  *logrus.Logger
	mu   sync.Mutex
	wmu  sync.Mutex
	halt atomic.Bool
	port Port
	pos  smarthand.TargetPoint
}

// Connect opens the named serial port, performs the identification
// handshake, and switches the firmware to absolute positioning.
func Connect(portName string, baudRate int, cfg Config, log *logrus.Logger) (*Controller, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %s: %w", portName, err)
	}

	// give the firmware a moment after the port resets the board
	time.Sleep(500 * time.Millisecond)

	c, err := NewController(port, cfg, log)
	if err != nil {
		port.Close()
		return nil, err
	}
	return c, nil
}

// NewController wraps an already-open port. Used by Connect and by tests.
func NewController(port Port, cfg Config, log *logrus.Logger) (*Controller, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := port.SetReadTimeout(readPoll); err != nil {
		return nil, fmt.Errorf("error setting read timeout: %w", err)
	}

	c := &Controller{
		cfg:  cfg,
		log:  log,
		port: port,
		pos:  smarthand.TargetPoint{Z: cfg.HomeZ},
	}

	if cfg.HandshakeCommand != "" {
		if err := c.handshake(); err != nil {
			return nil, err
		}
	}

	// absolute positioning; the firmware sends no ack for mode changes
	if _, err := c.send("G90", false); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) handshake() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// discard any boot banner so the reply read sees only our answer
	c.drainInput()

	if err := c.write(c.cfg.HandshakeCommand); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	line, err := c.readLine(time.Now().Add(c.cfg.AckTimeout))
	if err != nil {
		return fmt.Errorf("%w: no reply from device", ErrHandshake)
	}
	if line != c.cfg.HandshakeReply {
		return fmt.Errorf("%w: unexpected reply %q", ErrHandshake, line)
	}
	return nil
}

// Connected reports whether the controller still holds an open port.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil
}

// Close releases the serial port. The controller is unusable afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}

// send writes one command line and, when waitAck is set, collects reply
// lines until the firmware acknowledges with "ok" or reports an error. The
// command mutex is what serializes all robot traffic.
func (c *Controller) send(command string, waitAck bool) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return nil, ErrNotConnected
	}

	c.halt.Store(false)

	// discard replies still queued from no-ack commands (G90, M112) so the
	// first acknowledgment read belongs to this command and not a stale "ok"
	c.drainInput()

	c.log.WithField("command", command).Debug("sending robot command")
	if err := c.write(command); err != nil {
		return nil, err
	}
	if !waitAck {
		return nil, nil
	}

	var responses []string
	deadline := time.Now().Add(c.cfg.AckTimeout)
	for {
		line, err := c.readLine(deadline)
		if err != nil {
			return responses, fmt.Errorf("%w: command %q", err, command)
		}

		responses = append(responses, line)
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "ok") {
			return responses, nil
		}
		if strings.HasPrefix(lower, "error") {
			return responses, fmt.Errorf("%w: %s", ErrDeviceFault, line)
		}
	}
}

// write puts one command line on the wire. Held separately from the command
// mutex so the emergency stop never queues behind an acknowledgment wait.
func (c *Controller) write(command string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.port == nil {
		return ErrNotConnected
	}
	if _, err := c.port.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("error writing command %q: %w", command, err)
	}
	return nil
}

// drainInput discards whatever the device already sent. Caller holds mu. The
// loop ends when the port's read timeout returns an empty read.
func (c *Controller) drainInput() {
	buf := make([]byte, 64)
	for {
		n, err := c.port.Read(buf)
		if err != nil || n == 0 {
			return
		}
	}
}

// readLine reads one newline-terminated line, polling the port until the
// deadline. Empty reads are the port's read timeout expiring.
func (c *Controller) readLine(deadline time.Time) (string, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		if c.halt.Load() {
			return "", ErrStopped
		}
		if time.Now().After(deadline) {
			return "", ErrAckTimeout
		}

		n, err := c.port.Read(buf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			continue
		}

		switch buf[0] {
		case '\n':
			s := strings.TrimSpace(string(line))
			if s == "" {
				line = line[:0]
				continue
			}
			return s, nil
		case '\r':
		default:
			line = append(line, buf[0])
		}
	}
}

// Home runs the homing cycle and resets the tracked position.
func (c *Controller) Home() error {
	if _, err := c.send("G28", true); err != nil {
		return err
	}
	c.mu.Lock()
	c.pos = smarthand.TargetPoint{Z: c.cfg.HomeZ}
	c.mu.Unlock()
	return nil
}

// MoveTo commands a linear move to the target at the given feedrate in
// mm/min. A feedrate of 0 uses the configured default.
func (c *Controller) MoveTo(target smarthand.TargetPoint, feedrate int) error {
	if feedrate <= 0 {
		feedrate = c.cfg.DefaultFeedrate
	}

	cmd := fmt.Sprintf("G01 X%.3f Y%.3f Z%.3f F%d", target.X, target.Y, target.Z, feedrate)
	if _, err := c.send(cmd, true); err != nil {
		return err
	}

	c.mu.Lock()
	c.pos = target
	c.mu.Unlock()
	return nil
}

// MoveZ commands a vertical-only move, holding the current XY.
func (c *Controller) MoveZ(z float64, feedrate int) error {
	if feedrate <= 0 {
		feedrate = c.cfg.DefaultFeedrate
	}

	cmd := fmt.Sprintf("G01 Z%.3f F%d", z, feedrate)
	if _, err := c.send(cmd, true); err != nil {
		return err
	}

	c.mu.Lock()
	c.pos.Z = z
	c.mu.Unlock()
	return nil
}

// Dwell pauses the firmware in place for the given duration.
func (c *Controller) Dwell(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	_, err := c.send(fmt.Sprintf("G04 P%d", d.Milliseconds()), true)
	return err
}

// EmergencyStop halts all motion unconditionally. It does not wait for an
// acknowledgment, and it does not take the command mutex: the M112 goes on
// the wire immediately even while another command sits in its ack wait, and
// that command's wait is aborted.
func (c *Controller) EmergencyStop() error {
	c.halt.Store(true)
	c.log.Warn("emergency stop")
	return c.write("M112")
}

// Position queries the firmware with M114 and returns the effector
// position. Falls back to the tracked position when the reply is not
// parseable, which matches what the firmware reports for unsupported axes.
func (c *Controller) Position() (smarthand.TargetPoint, error) {
	responses, err := c.send("M114", true)
	if err != nil {
		return smarthand.TargetPoint{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range responses {
		p, ok := parsePosition(line)
		if !ok {
			continue
		}
		c.pos = p
		break
	}
	return c.pos, nil
}

// LastPosition returns the tracked position without touching the device.
func (c *Controller) LastPosition() smarthand.TargetPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// parsePosition extracts X/Y/Z from an M114 reply line such as
// "X:10.00 Y:-5.00 Z:-291.28 E:0.00 Count ...". Only the first occurrence
// of each axis counts; the trailing Count block repeats the tokens with
// stepper units.
func parsePosition(line string) (smarthand.TargetPoint, bool) {
	var p smarthand.TargetPoint
	seen := map[string]bool{}
	for _, part := range strings.Fields(line) {
		axis, value, ok := strings.Cut(part, ":")
		if !ok || seen[axis] {
			continue
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		switch axis {
		case "X":
			p.X = v
		case "Y":
			p.Y = v
		case "Z":
			p.Z = v
		default:
			continue
		}
		seen[axis] = true
	}
	return p, len(seen) == 3
}
