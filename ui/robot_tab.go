package ui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"smarthand"
	"smarthand/robot"
)

// robotTab holds the connection and manual motion controls.
type robotTab struct {
	app *App

	status   *widget.Label
	position *widget.Label
}

func newRobotTab(app *App) *robotTab {
	return &robotTab{app: app}
}

func (t *robotTab) build() fyne.CanvasObject {
	t.status = widget.NewLabel("not connected")
	t.position = widget.NewLabel("position unknown")

	connectBtn := widget.NewButton("Connect", t.connect)
	homeBtn := widget.NewButton("Home", func() {
		t.submit("home", func(c *robot.Controller) error {
			return c.Home()
		})
	})
	positionBtn := widget.NewButton("Query Position", func() {
		t.submit("position", func(c *robot.Controller) error {
			pos, err := c.Position()
			if err != nil {
				return err
			}
			fyne.Do(func() {
				t.position.SetText(pos.String())
			})
			return nil
		})
	})

	xEntry := widget.NewEntry()
	xEntry.SetPlaceHolder("X mm")
	yEntry := widget.NewEntry()
	yEntry.SetPlaceHolder("Y mm")
	zEntry := widget.NewEntry()
	zEntry.SetPlaceHolder("Z mm")
	moveBtn := widget.NewButton("Move", func() {
		x, errX := strconv.ParseFloat(xEntry.Text, 64)
		y, errY := strconv.ParseFloat(yEntry.Text, 64)
		z, errZ := strconv.ParseFloat(zEntry.Text, 64)
		if errX != nil || errY != nil || errZ != nil {
			t.app.logStatus("move needs numeric X, Y and Z")
			return
		}
		target := smarthand.TargetPoint{X: x, Y: y, Z: z}
		t.submit("move to "+target.String(), func(c *robot.Controller) error {
			return c.MoveTo(target, 0)
		})
	})

	stopBtn := widget.NewButton("EMERGENCY STOP", t.emergencyStop)
	stopBtn.Importance = widget.DangerImportance

	return container.NewVBox(
		container.NewHBox(connectBtn, t.status),
		container.NewHBox(homeBtn, positionBtn, t.position),
		widget.NewSeparator(),
		container.NewGridWithColumns(4, xEntry, yEntry, zEntry, moveBtn),
		widget.NewSeparator(),
		stopBtn,
	)
}

func (t *robotTab) connect() {
	port := t.app.cfg.SerialPort
	if port == "" || port == serialPortNone {
		t.app.logStatus("no serial port configured, running camera-only")
		return
	}

	baud := t.app.cfg.baudRate()
	ok := t.app.worker.trySubmit(func() {
		c, err := robot.Connect(port, baud, robot.DefaultConfig(), t.app.log)
		if err != nil {
			t.app.showError(err)
			return
		}

		oldC, _ := t.app.session.setRobot(c, robot.NewToucher(c, t.app.log))
		if oldC != nil {
			oldC.Close()
		}

		fyne.Do(func() {
			t.status.SetText("connected to " + port)
		})
		t.app.logStatus("robot connected on " + port)
	})
	if !ok {
		t.app.logStatus("robot busy, try again")
	}
}

// submit runs one controller command on the worker, refusing while another
// command is in flight.
func (t *robotTab) submit(what string, cmd func(*robot.Controller) error) {
	c := t.app.session.robotController()
	if c == nil {
		t.app.logStatus("robot not connected")
		return
	}

	ok := t.app.worker.trySubmit(func() {
		t.app.logStatus("robot: " + what)
		if err := cmd(c); err != nil {
			t.app.showError(fmt.Errorf("%s: %w", what, err))
			return
		}
		t.app.logStatus("robot: " + what + " done")
	})
	if !ok {
		t.app.logStatus("robot busy, command refused")
	}
}

// emergencyStop goes around the worker so a running command cannot delay it;
// the controller writes the stop on its own path and aborts any pending
// acknowledgment wait.
func (t *robotTab) emergencyStop() {
	c := t.app.session.robotController()
	if c == nil {
		t.app.logStatus("robot not connected")
		return
	}
	go func() {
		if err := c.EmergencyStop(); err != nil {
			t.app.showError(err)
			return
		}
		t.app.logStatus("emergency stop sent")
	}()
}
