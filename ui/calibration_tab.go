package ui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"smarthand"
	"smarthand/mapping"
)

// calibrationTab collects the two pixel/workspace point pairs and fits the
// pixel-to-workspace transform from them.
type calibrationTab struct {
	app *App

	pixels      [2]*smarthand.Point
	pixelLabels [2]*widget.Label
	realX       [2]*widget.Entry
	realY       [2]*widget.Entry

	surfaceZ *widget.Entry
	result   *widget.Label
}

func newCalibrationTab(app *App) *calibrationTab {
	return &calibrationTab{app: app}
}

func (t *calibrationTab) build() fyne.CanvasObject {
	rows := make([]fyne.CanvasObject, 0, 2)
	for i := range 2 {
		t.pixelLabels[i] = widget.NewLabel("not set")
		t.realX[i] = widget.NewEntry()
		t.realX[i].SetPlaceHolder("X mm")
		t.realY[i] = widget.NewEntry()
		t.realY[i].SetPlaceHolder("Y mm")

		idx := i
		pickBtn := widget.NewButton(fmt.Sprintf("Pick Point %d", i+1), func() {
			if idx == 0 {
				t.app.setClickMode(clickModeSample1)
			} else {
				t.app.setClickMode(clickModeSample2)
			}
			t.app.logStatus(fmt.Sprintf("tap point %d on the rectified view", idx+1))
		})

		rows = append(rows, container.NewGridWithColumns(4,
			pickBtn, t.pixelLabels[i], t.realX[i], t.realY[i],
		))
	}

	t.surfaceZ = widget.NewEntry()
	t.surfaceZ.SetPlaceHolder("phone surface Z, mm")
	t.result = widget.NewLabel("no mapping yet")
	t.result.Wrapping = fyne.TextWrapWord

	computeBtn := widget.NewButton("Compute Mapping", t.compute)
	saveBtn := widget.NewButton("Save", t.save)
	loadBtn := widget.NewButton("Load", t.load)

	return container.NewVBox(
		widget.NewLabel("Move the stylus to a screen point, note its workspace coordinates, then pick the same point on the rectified view. Repeat with a second, distant point."),
		rows[0],
		rows[1],
		container.NewGridWithColumns(2, widget.NewLabel("Surface Z:"), t.surfaceZ),
		container.NewHBox(computeBtn, saveBtn, loadBtn),
		t.result,
	)
}

// capturePixel records a tapped rectified-view pixel for sample i.
func (t *calibrationTab) capturePixel(i int, p smarthand.Point) {
	t.pixels[i] = &p
	fyne.Do(func() {
		t.pixelLabels[i].SetText(p.String())
	})
}

func (t *calibrationTab) compute() {
	samples, ok := t.samples()
	if !ok {
		return
	}
	surfaceZ, err := strconv.ParseFloat(t.surfaceZ.Text, 64)
	if err != nil {
		t.app.showError(fmt.Errorf("surface Z: %w", err))
		return
	}

	tr, err := mapping.Compute(samples[0], samples[1])
	if err != nil {
		t.app.showError(err)
		return
	}
	tr.SurfaceZ = surfaceZ

	t.app.session.setSample(0, samples[0])
	t.app.session.setSample(1, samples[1])
	t.app.session.setTransform(tr)

	t.showTransform(tr)
	t.app.logStatus("mapping computed")
}

func (t *calibrationTab) samples() ([2]mapping.Sample, bool) {
	var out [2]mapping.Sample
	for i := range 2 {
		if t.pixels[i] == nil {
			t.app.logStatus(fmt.Sprintf("point %d has no pixel yet", i+1))
			return out, false
		}
		x, errX := strconv.ParseFloat(t.realX[i].Text, 64)
		y, errY := strconv.ParseFloat(t.realY[i].Text, 64)
		if errX != nil || errY != nil {
			t.app.logStatus(fmt.Sprintf("point %d needs numeric workspace coordinates", i+1))
			return out, false
		}
		out[i] = mapping.Sample{
			Pixel: *t.pixels[i],
			Real:  smarthand.RealPoint{X: x, Y: y},
		}
	}
	return out, true
}

func (t *calibrationTab) showTransform(tr mapping.Transform) {
	t.result.SetText(fmt.Sprintf(
		"scale %.4f mm/px, rotation %.4f rad, translation (%.2f, %.2f), surface Z %.2f",
		tr.Scale, tr.Rotation, tr.TX, tr.TY, tr.SurfaceZ,
	))
}

func (t *calibrationTab) save() {
	cal, ok := t.app.session.calibration()
	if !ok {
		t.app.logStatus("nothing to save, compute a mapping first")
		return
	}
	if err := cal.Save(t.app.cfg.CalibrationFile); err != nil {
		t.app.showError(err)
		return
	}
	t.app.logStatus("calibration saved to " + t.app.cfg.CalibrationFile)
}

func (t *calibrationTab) load() {
	cal, err := mapping.Load(t.app.cfg.CalibrationFile)
	if err != nil {
		t.app.showError(err)
		return
	}
	t.app.session.restore(cal)

	for i := range 2 {
		t.capturePixel(i, cal.Samples[i].Pixel)
		t.realX[i].SetText(strconv.FormatFloat(cal.Samples[i].Real.X, 'f', 2, 64))
		t.realY[i].SetText(strconv.FormatFloat(cal.Samples[i].Real.Y, 'f', 2, 64))
	}
	t.surfaceZ.SetText(strconv.FormatFloat(cal.Transform.SurfaceZ, 'f', 2, 64))
	t.showTransform(cal.Transform)
	t.app.logStatus("calibration loaded from " + t.app.cfg.CalibrationFile)
}
