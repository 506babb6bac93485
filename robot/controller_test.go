package robot

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"smarthand"
)

// scriptPort is a scripted serial port: every command written to it is
// recorded, and replies are queued onto the read side per command.
type scriptPort struct {
	mu           sync.Mutex
	readBuf      bytes.Buffer
	commands     []string
	replies      map[string]string
	defaultReply string
	closed       bool
}

func newScriptPort() *scriptPort {
	return &scriptPort{
		replies:      map[string]string{"IsDelta": "YesDelta\n"},
		defaultReply: "ok\n",
	}
}

func (p *scriptPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("port closed")
	}

	cmd := strings.TrimSpace(string(b))
	p.commands = append(p.commands, cmd)

	reply, ok := p.replies[cmd]
	if !ok {
		reply = p.defaultReply
	}
	p.readBuf.WriteString(reply)
	return len(b), nil
}

func (p *scriptPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("port closed")
	}
	if p.readBuf.Len() == 0 {
		// a real port blocks until its read timeout, then returns empty
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
		p.mu.Lock()
		return 0, nil
	}
	return p.readBuf.Read(b)
}

func (p *scriptPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *scriptPort) SetReadTimeout(time.Duration) error { return nil }

func (p *scriptPort) sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.commands...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AckTimeout = 100 * time.Millisecond
	return cfg
}

func newTestController(t *testing.T, port *scriptPort) *Controller {
	t.Helper()
	c, err := NewController(port, testConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestNewControllerHandshake(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr error
	}{
		{"Accepted", "YesDelta\n", nil},
		{"WrongDevice", "YesGrbl\n", ErrHandshake},
		{"Silent", "", ErrHandshake},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := newScriptPort()
			port.replies["IsDelta"] = tt.reply

			_, err := NewController(port, testConfig(), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				return
			}

			want := []string{"IsDelta", "G90"}
			got := port.sent()
			if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
				t.Errorf("expected commands %v, got %v", want, got)
			}
		})
	}
}

func TestMoveTo(t *testing.T) {
	port := newScriptPort()
	c := newTestController(t, port)

	err := c.MoveTo(smarthand.TargetPoint{X: 10, Y: -5.5, Z: -380.25}, 1500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := port.sent()
	want := "G01 X10.000 Y-5.500 Z-380.250 F1500"
	if got[len(got)-1] != want {
		t.Errorf("expected command %q, got %q", want, got[len(got)-1])
	}

	pos := c.LastPosition()
	if pos.X != 10 || pos.Y != -5.5 || pos.Z != -380.25 {
		t.Errorf("tracked position not updated: %v", pos)
	}
}

func TestMoveToDefaultFeedrate(t *testing.T) {
	port := newScriptPort()
	c := newTestController(t, port)

	if err := c.MoveZ(-350, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := port.sent()
	want := "G01 Z-350.000 F2000"
	if got[len(got)-1] != want {
		t.Errorf("expected command %q, got %q", want, got[len(got)-1])
	}
}

func TestMoveToDeviceFault(t *testing.T) {
	port := newScriptPort()
	port.defaultReply = "Error: target out of bounds\n"
	c := newTestController(t, port)

	err := c.MoveTo(smarthand.TargetPoint{X: 500, Y: 500, Z: 0}, 0)
	if !errors.Is(err, ErrDeviceFault) {
		t.Errorf("expected ErrDeviceFault, got %v", err)
	}
}

func TestAckTimeout(t *testing.T) {
	port := newScriptPort()
	c := newTestController(t, port)
	port.defaultReply = "" // device goes silent

	err := c.MoveTo(smarthand.TargetPoint{X: 1, Y: 1, Z: -350}, 0)
	if !errors.Is(err, ErrAckTimeout) {
		t.Errorf("expected ErrAckTimeout, got %v", err)
	}
}

func TestHome(t *testing.T) {
	port := newScriptPort()
	c := newTestController(t, port)

	if err := c.MoveTo(smarthand.TargetPoint{X: 20, Y: 20, Z: -350}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Home(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := port.sent()
	if got[len(got)-1] != "G28" {
		t.Errorf("expected G28, got %q", got[len(got)-1])
	}

	pos := c.LastPosition()
	if pos.X != 0 || pos.Y != 0 || pos.Z != testConfig().HomeZ {
		t.Errorf("expected home position, got %v", pos)
	}
}

func TestSendDrainsStaleInput(t *testing.T) {
	// the no-ack G90 at connect leaves its "ok" queued on the read side; a
	// later command must not mistake it for its own acknowledgment
	port := newScriptPort()
	c := newTestController(t, port)
	port.defaultReply = "" // device silent from here on

	start := time.Now()
	err := c.MoveTo(smarthand.TargetPoint{X: 1, Y: 2, Z: -350}, 0)
	if !errors.Is(err, ErrAckTimeout) {
		t.Fatalf("expected ErrAckTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < testConfig().AckTimeout {
		t.Errorf("move acknowledged from stale input after %v", elapsed)
	}
}

func TestEmergencyStopPreemptsAckWait(t *testing.T) {
	port := newScriptPort()
	cfg := testConfig()
	cfg.AckTimeout = 2 * time.Second // long enough that only the stop can end the wait quickly
	c, err := NewController(port, cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	port.defaultReply = "" // wedge the device

	moveDone := make(chan error, 1)
	go func() {
		moveDone <- c.MoveTo(smarthand.TargetPoint{X: 1, Y: 1, Z: -350}, 0)
	}()

	// wait for the move to reach the port and enter its ack wait
	waitDeadline := time.Now().Add(time.Second)
	for {
		cmds := port.sent()
		if len(cmds) > 0 && strings.HasPrefix(cmds[len(cmds)-1], "G01") {
			break
		}
		if time.Now().After(waitDeadline) {
			t.Fatal("move never reached the port")
		}
		time.Sleep(time.Millisecond)
	}

	start := time.Now()
	if err := c.EmergencyStop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("emergency stop delayed %v by the pending move", elapsed)
	}

	got := port.sent()
	if got[len(got)-1] != "M112" {
		t.Fatalf("expected M112 on the wire, got %q", got[len(got)-1])
	}

	select {
	case err := <-moveDone:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("expected ErrStopped, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("move did not abort after the stop")
	}
}

func TestEmergencyStopSkipsAck(t *testing.T) {
	port := newScriptPort()
	c := newTestController(t, port)
	port.defaultReply = "" // a wedged device must still receive the stop

	if err := c.EmergencyStop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := port.sent()
	if got[len(got)-1] != "M112" {
		t.Errorf("expected M112, got %q", got[len(got)-1])
	}
}

func TestPosition(t *testing.T) {
	port := newScriptPort()
	port.replies["M114"] = "X:12.50 Y:-3.25 Z:-291.28 E:0.00 Count X:0 Y:0 Z:0\nok\n"
	c := newTestController(t, port)

	pos, err := c.Position()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := smarthand.TargetPoint{X: 12.5, Y: -3.25, Z: -291.28}
	if pos != want {
		t.Errorf("expected %v, got %v", want, pos)
	}
}

func TestNotConnected(t *testing.T) {
	port := newScriptPort()
	c := newTestController(t, port)

	if err := c.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Connected() {
		t.Error("expected disconnected controller")
	}

	err := c.MoveTo(smarthand.TargetPoint{}, 0)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   smarthand.TargetPoint
		wantOK bool
	}{
		{
			"MarlinStyle",
			"X:10.00 Y:-5.00 Z:-291.28 E:0.00 Count X:800 Y:400 Z:0",
			smarthand.TargetPoint{X: 10, Y: -5, Z: -291.28},
			true,
		},
		{
			"MissingAxis",
			"X:10.00 Y:-5.00",
			smarthand.TargetPoint{},
			false,
		},
		{
			"NotAPosition",
			"ok",
			smarthand.TargetPoint{},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parsePosition(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
