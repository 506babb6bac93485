package ui

import (
	"context"
	"fmt"
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"smarthand"
	"smarthand/vision"
)

// clickMode selects what a tap on one of the image views means.
type clickMode int

const (
	clickModeNone clickMode = iota
	clickModeCorners
	clickModeSample1
	clickModeSample2
	clickModeTest
	clickModeTouch
)

// App is the SmartHand desktop shell: tabs for the camera, the calibration
// pipeline, robot control, and touch control, with the rectified view shared
// on the right so every tab can target it.
type App struct {
	cfg     *Config
	log     *logrus.Logger
	session *session
	worker  *robotWorker

	fyneApp fyne.App
	window  fyne.Window

	rawView  *tappableImage
	rectView *tappableImage

	statusLog *widget.Label
	logScroll *container.Scroll

	// mode guards the click mode and the manual corner picks
	mode        sync.Mutex
	clickMode   clickMode
	cornerPicks []smarthand.Point

	// frameMu guards the most recent camera frame, kept for detection
	frameMu   sync.Mutex
	lastFrame gocv.Mat

	pollCancel context.CancelFunc

	calibrationTab *calibrationTab
	robotTab       *robotTab
	touchTab       *touchTab
}

// NewApp creates the shell with the given settings.
func NewApp(cfg *Config, log *logrus.Logger) *App {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &App{
		cfg:       cfg,
		log:       log,
		session:   &session{},
		worker:    newRobotWorker(log),
		lastFrame: gocv.NewMat(),
	}
}

// Run shows the configuration window, then the main window, and blocks until
// the application quits.
func Run(ctx context.Context, log *logrus.Logger) {
	cfg := &Config{}
	a := NewApp(cfg, log)
	a.fyneApp = app.New()

	configWindow := NewConfigWindow(a.fyneApp)
	configWindow.OnSubmit = func() {
		a.showMain()
	}
	configWindow.Show(cfg)

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			a.fyneApp.Quit()
		})
	}()

	a.fyneApp.Run()
	a.shutdown()
}

func (a *App) showMain() {
	a.window = a.fyneApp.NewWindow("SmartHand")
	a.window.Resize(fyne.NewSize(1150, 760))

	a.rawView = newTappableImage(fyne.NewSize(480, 360))
	a.rawView.OnTapped = a.onRawTapped
	a.rectView = newTappableImage(fyne.NewSize(400, 540))
	a.rectView.OnTapped = a.onRectTapped

	a.statusLog = widget.NewLabel("")
	a.statusLog.Wrapping = fyne.TextWrapWord
	a.logScroll = container.NewVScroll(a.statusLog)
	a.logScroll.SetMinSize(fyne.NewSize(300, 90))

	a.calibrationTab = newCalibrationTab(a)
	a.robotTab = newRobotTab(a)
	a.touchTab = newTouchTab(a)

	tabs := container.NewAppTabs(
		container.NewTabItem("Camera", a.buildCameraTab()),
		container.NewTabItem("Calibration", a.calibrationTab.build()),
		container.NewTabItem("Robot", a.robotTab.build()),
		container.NewTabItem("Touch", a.touchTab.build()),
	)

	rectPanel := container.NewBorder(
		widget.NewLabelWithStyle("Rectified View", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		nil, nil, nil,
		a.rectView,
	)

	logAccordion := widget.NewAccordion(
		widget.NewAccordionItem("Logs", a.logScroll),
	)
	logAccordion.Open(0)

	a.window.SetContent(container.NewBorder(nil, logAccordion, nil, rectPanel, tabs))
	a.window.SetCloseIntercept(func() {
		a.window.Close()
		a.fyneApp.Quit()
	})
	a.window.Show()
}

func (a *App) shutdown() {
	a.stopCamera()
	a.session.teardown()
	a.worker.stop()

	a.frameMu.Lock()
	a.lastFrame.Close()
	a.frameMu.Unlock()
}

// logStatus appends a line to the on-screen log. Safe from any goroutine.
func (a *App) logStatus(msg string) {
	a.log.Info(msg)
	fyne.Do(func() {
		if a.statusLog == nil {
			return
		}
		text := a.statusLog.Text
		if text != "" {
			text += "\n"
		}
		a.statusLog.SetText(text + msg)
		a.logScroll.ScrollToBottom()
	})
}

func (a *App) showError(err error) {
	a.log.WithError(err).Error("operation failed")
	fyne.Do(func() {
		if a.window == nil {
			return
		}
		dialog.ShowError(err, a.window)
	})
}

// setClickMode switches what the next tap on an image view does.
func (a *App) setClickMode(m clickMode) {
	a.mode.Lock()
	a.clickMode = m
	if m == clickModeCorners {
		a.cornerPicks = a.cornerPicks[:0]
	}
	a.mode.Unlock()
}

func (a *App) currentClickMode() clickMode {
	a.mode.Lock()
	defer a.mode.Unlock()
	return a.clickMode
}

// onRawTapped collects manual screen corners on the camera view.
func (a *App) onRawTapped(p smarthand.Point) {
	a.mode.Lock()
	if a.clickMode != clickModeCorners {
		a.mode.Unlock()
		return
	}
	a.cornerPicks = append(a.cornerPicks, p)
	n := len(a.cornerPicks)
	var picks []smarthand.Point
	if n == 4 {
		picks = append(picks, a.cornerPicks...)
		a.clickMode = clickModeNone
	}
	a.mode.Unlock()

	if picks == nil {
		a.logStatus(fmt.Sprintf("corner %d of 4 at %s", n, p))
		return
	}

	cs, err := vision.NewCornerSet(picks)
	if err != nil {
		a.showError(err)
		return
	}
	a.applyCorners(cs)
}

// onRectTapped dispatches taps on the rectified view by the active mode.
func (a *App) onRectTapped(p smarthand.Point) {
	switch a.currentClickMode() {
	case clickModeSample1:
		a.calibrationTab.capturePixel(0, p)
		a.setClickMode(clickModeNone)
	case clickModeSample2:
		a.calibrationTab.capturePixel(1, p)
		a.setClickMode(clickModeNone)
	case clickModeTest:
		a.touchTab.previewConversion(p)
	case clickModeTouch:
		a.touchTab.touchAtPixel(p)
	}
}

// snapshotFrame clones the latest camera frame for detection. The caller
// closes the returned Mat.
func (a *App) snapshotFrame() (gocv.Mat, bool) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()
	if a.lastFrame.Empty() {
		return gocv.Mat{}, false
	}
	return a.lastFrame.Clone(), true
}

// handleFrame runs on the camera poll goroutine for every captured frame.
func (a *App) handleFrame(frame gocv.Mat) {
	a.frameMu.Lock()
	a.lastFrame.Close()
	a.lastFrame = frame.Clone()
	a.frameMu.Unlock()

	raw, err := frame.ToImage()
	if err != nil {
		a.log.WithError(err).Warn("cannot convert frame")
		return
	}

	var rect image.Image
	if h, size := a.session.rectification(); h != nil {
		warped := vision.Warp(frame, *h, size)
		rect, err = warped.ToImage()
		warped.Close()
		if err != nil {
			a.log.WithError(err).Warn("cannot convert rectified frame")
			rect = nil
		}
	}

	fyne.Do(func() {
		a.rawView.SetImage(raw)
		if rect != nil {
			a.rectView.SetImage(rect)
		}
	})
}
