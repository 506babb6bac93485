package ui

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"smarthand"
	"smarthand/mapping"
	"smarthand/robot"
)

// touchTab drives screen taps: tunable touch parameters, a conversion
// preview, and touch-by-click or touch-by-coordinate execution.
type touchTab struct {
	app *App

	safeZ      *widget.Entry
	pressDepth *widget.Entry
	durationMs *widget.Entry
	feedrate   *widget.Entry

	preview *widget.Label
}

func newTouchTab(app *App) *touchTab {
	return &touchTab{app: app}
}

func (t *touchTab) build() fyne.CanvasObject {
	t.safeZ = widget.NewEntry()
	t.safeZ.SetText("-350.0")
	t.pressDepth = widget.NewEntry()
	t.pressDepth.SetText("1.0")
	t.durationMs = widget.NewEntry()
	t.durationMs.SetText("100")
	t.feedrate = widget.NewEntry()
	t.feedrate.SetText("2000")

	params := container.NewGridWithColumns(2,
		widget.NewLabel("Safe Z (mm):"), t.safeZ,
		widget.NewLabel("Press Depth (mm):"), t.pressDepth,
		widget.NewLabel("Press Duration (ms):"), t.durationMs,
		widget.NewLabel("Feedrate (mm/min):"), t.feedrate,
	)

	t.preview = widget.NewLabel("tap the rectified view in preview mode to see the conversion")
	t.preview.Wrapping = fyne.TextWrapWord

	previewCheck := widget.NewCheck("Preview conversion on tap", func(on bool) {
		if on {
			t.app.setClickMode(clickModeTest)
		} else {
			t.app.setClickMode(clickModeNone)
		}
	})
	touchCheck := widget.NewCheck("Touch on tap", func(on bool) {
		if on {
			t.app.setClickMode(clickModeTouch)
		} else {
			t.app.setClickMode(clickModeNone)
		}
	})

	xEntry := widget.NewEntry()
	xEntry.SetPlaceHolder("X mm")
	yEntry := widget.NewEntry()
	yEntry.SetPlaceHolder("Y mm")
	touchBtn := widget.NewButton("Touch At Coordinates", func() {
		x, errX := strconv.ParseFloat(xEntry.Text, 64)
		y, errY := strconv.ParseFloat(yEntry.Text, 64)
		if errX != nil || errY != nil {
			t.app.logStatus("touch needs numeric X and Y")
			return
		}
		t.touchAtReal(smarthand.RealPoint{X: x, Y: y})
	})

	return container.NewVBox(
		params,
		widget.NewSeparator(),
		previewCheck,
		touchCheck,
		container.NewGridWithColumns(3, xEntry, yEntry, touchBtn),
		widget.NewSeparator(),
		t.preview,
	)
}

// touchConfig parses the parameter entries.
func (t *touchTab) touchConfig() (robot.TouchConfig, float64, bool) {
	safeZ, errSafe := strconv.ParseFloat(t.safeZ.Text, 64)
	depth, errDepth := strconv.ParseFloat(t.pressDepth.Text, 64)
	durMs, errDur := strconv.Atoi(t.durationMs.Text)
	feed, errFeed := strconv.Atoi(t.feedrate.Text)
	if errSafe != nil || errDepth != nil || errDur != nil || errFeed != nil {
		t.app.logStatus("touch parameters must be numeric")
		return robot.TouchConfig{}, 0, false
	}

	cfg := robot.TouchConfig{
		SafeZ:    safeZ,
		Duration: time.Duration(durMs) * time.Millisecond,
		Feedrate: feed,
	}
	return cfg, depth, true
}

func (t *touchTab) transform() *mapping.Transform {
	tr := t.app.session.mappingTransform()
	if tr == nil {
		t.app.logStatus("no mapping yet, calibrate first")
	}
	return tr
}

// previewConversion shows where a rectified pixel lands in the workspace
// without moving the robot.
func (t *touchTab) previewConversion(p smarthand.Point) {
	tr := t.transform()
	if tr == nil {
		return
	}
	ws := tr.Apply(p)
	fyne.Do(func() {
		t.preview.SetText(fmt.Sprintf("pixel %s -> workspace %s", p, ws))
	})
}

// touchAtPixel runs one tap at a rectified-view pixel.
func (t *touchTab) touchAtPixel(p smarthand.Point) {
	tr := t.transform()
	if tr == nil {
		return
	}
	cfg, depth, ok := t.touchConfig()
	if !ok {
		return
	}
	t.execute(tr.Target(p, depth), cfg)
}

// touchAtReal runs one tap at a workspace coordinate directly.
func (t *touchTab) touchAtReal(r smarthand.RealPoint) {
	tr := t.transform()
	if tr == nil {
		return
	}
	cfg, depth, ok := t.touchConfig()
	if !ok {
		return
	}
	target := smarthand.TargetPoint{X: r.X, Y: r.Y, Z: tr.SurfaceZ - depth}
	t.execute(target, cfg)
}

func (t *touchTab) execute(target smarthand.TargetPoint, cfg robot.TouchConfig) {
	toucher := t.app.session.robotToucher()
	if toucher == nil {
		t.app.logStatus("robot not connected")
		return
	}

	ok := t.app.worker.trySubmit(func() {
		t.app.logStatus("touching " + target.String())
		if err := toucher.Touch(target, cfg); err != nil {
			t.app.showError(err)
			return
		}
		t.app.logStatus("touch complete")
	})
	if !ok {
		t.app.logStatus("robot busy, touch refused")
	}
}
