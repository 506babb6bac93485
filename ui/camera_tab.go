package ui

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"smarthand/camera"
	"smarthand/chessboard"
	"smarthand/vision"
)

// buildCameraTab assembles the live camera view with capture and board
// detection controls. The board web server is started from here too, since
// the operator opens it on the phone right before detecting.
func (a *App) buildCameraTab() fyne.CanvasObject {
	status := widget.NewLabel("camera stopped")

	var startBtn, stopBtn *widget.Button
	startBtn = widget.NewButton("Start Camera", func() {
		if err := a.startCamera(); err != nil {
			a.showError(err)
			return
		}
		status.SetText(fmt.Sprintf("camera %d running", a.cfg.cameraID()))
		startBtn.Disable()
		stopBtn.Enable()
	})
	stopBtn = widget.NewButton("Stop Camera", func() {
		a.stopCamera()
		status.SetText("camera stopped")
		stopBtn.Disable()
		startBtn.Enable()
	})
	stopBtn.Disable()

	detectBtn := widget.NewButton("Detect Chessboard", func() {
		go a.detectChessboard()
	})
	cornersBtn := widget.NewButton("Pick Corners Manually", func() {
		a.setClickMode(clickModeCorners)
		a.logStatus("tap the screen corners on the camera view: top-left, top-right, bottom-right, bottom-left")
	})

	boardURL := widget.NewLabel("board server not running")
	var boardBtn *widget.Button
	boardBtn = widget.NewButton("Start Board Server", func() {
		a.startBoardServer(boardURL)
		boardBtn.Disable()
	})

	controls := container.NewVBox(
		status,
		container.NewHBox(startBtn, stopBtn),
		container.NewHBox(detectBtn, cornersBtn),
		widget.NewSeparator(),
		container.NewHBox(boardBtn, boardURL),
	)

	return container.NewBorder(nil, controls, nil, nil, a.rawView)
}

func (a *App) startCamera() error {
	cam, err := camera.Open(a.cfg.cameraID(), a.log)
	if err != nil {
		return err
	}

	if old := a.session.setCamera(cam); old != nil {
		old.Close()
	}
	if a.pollCancel != nil {
		a.pollCancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.pollCancel = cancel
	go func() {
		if err := cam.Poll(ctx, frameInterval, a.handleFrame); err != nil && !errors.Is(err, context.Canceled) {
			a.logStatus("camera stopped: " + err.Error())
		}
	}()
	return nil
}

func (a *App) stopCamera() {
	if a.pollCancel != nil {
		a.pollCancel()
		a.pollCancel = nil
	}
	if old := a.session.setCamera(nil); old != nil {
		old.Close()
	}
}

// detectChessboard runs one detection attempt against the latest frame.
func (a *App) detectChessboard() {
	frame, ok := a.snapshotFrame()
	if !ok {
		a.logStatus("no camera frame yet, start the camera first")
		return
	}
	defer frame.Close()

	cols, rows := a.cfg.chessPattern()
	cs, err := vision.DetectChessboard(frame, cols, rows)
	if errors.Is(err, vision.ErrPatternNotFound) {
		a.logStatus("chessboard not found, adjust lighting or pick corners manually")
		return
	}
	if err != nil {
		a.showError(err)
		return
	}
	a.applyCorners(cs)
}

// applyCorners installs a corner set, detected or hand-picked, as the active
// rectification.
func (a *App) applyCorners(cs vision.CornerSet) {
	size, fixed := a.cfg.outputFixed()
	if !fixed {
		size = cs.FitOutputSize(a.cfg.outputMaxDim())
	}
	h, err := vision.ComputeHomography(cs, size)
	if err != nil {
		a.showError(err)
		return
	}
	a.session.setRectification(cs, h, size)
	a.logStatus(fmt.Sprintf("rectification ready, output %dx%d", size.Width, size.Height))
}

func (a *App) startBoardServer(urlLabel *widget.Label) {
	srv := chessboard.NewServer(chessboard.DefaultConfig(), a.log)
	addr := a.cfg.BoardAddr
	go func() {
		if err := srv.ListenAndServe(addr); err != nil {
			a.logStatus("board server stopped: " + err.Error())
		}
	}()

	url := chessboard.URLFor(addr)
	urlLabel.SetText(url)
	a.logStatus("board server at " + url + ", open it on the phone")
}
