package ui

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"smarthand/robot"
	"smarthand/vision"
)

// serialPortNone is offered in the port dropdown so the tool can run
// camera-only, without a robot attached.
const serialPortNone = "none"

// Config holds the operator settings. Values are kept as strings because
// they bind directly to entry widgets and persist in fyne Preferences.
type Config struct {
	CameraDevice    string
	ChessCols       string
	ChessRows       string
	OutputMaxDim    string
	OutputWidth     string
	OutputHeight    string
	SerialPort      string
	BaudRate        string
	BoardAddr       string
	CalibrationFile string
}

func (c *Config) cameraID() int {
	return atoiOr(c.CameraDevice, 0)
}

// chessPattern returns the internal corner grid for detection.
func (c *Config) chessPattern() (cols, rows int) {
	return atoiOr(c.ChessCols, 9), atoiOr(c.ChessRows, 6)
}

func (c *Config) outputMaxDim() int {
	return atoiOr(c.OutputMaxDim, 800)
}

// outputFixed returns a fixed rectified size when both dimensions are set;
// otherwise the output is fit to the detected board's aspect ratio.
func (c *Config) outputFixed() (vision.OutputSize, bool) {
	size := vision.OutputSize{
		Width:  atoiOr(c.OutputWidth, 0),
		Height: atoiOr(c.OutputHeight, 0),
	}
	return size, size.Width > 0 && size.Height > 0
}

func (c *Config) baudRate() int {
	return atoiOr(c.BaudRate, 115200)
}

func atoiOr(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

// frameInterval is the camera poll period (~15 fps keeps the UI light).
const frameInterval = 66 * time.Millisecond

// ConfigWindow collects the session settings before the main window opens.
type ConfigWindow struct {
	app      fyne.App
	OnSubmit func()
}

func NewConfigWindow(app fyne.App) *ConfigWindow {
	return &ConfigWindow{
		app: app,
	}
}

func (cw *ConfigWindow) loadConfigFromPreferences(cfg *Config) {
	prefs := cw.app.Preferences()
	cfg.CameraDevice = prefs.StringWithFallback("cameraDevice", "0")
	cfg.ChessCols = prefs.StringWithFallback("chessCols", "9")
	cfg.ChessRows = prefs.StringWithFallback("chessRows", "6")
	cfg.OutputMaxDim = prefs.StringWithFallback("outputMaxDim", "800")
	cfg.OutputWidth = prefs.StringWithFallback("outputWidth", "0")
	cfg.OutputHeight = prefs.StringWithFallback("outputHeight", "0")
	cfg.SerialPort = prefs.StringWithFallback("serialPort", "")
	cfg.BaudRate = prefs.StringWithFallback("baudRate", "115200")
	cfg.BoardAddr = prefs.StringWithFallback("boardAddr", ":8090")
	cfg.CalibrationFile = prefs.StringWithFallback("calibrationFile", "calibration.json")
}

func (cw *ConfigWindow) saveConfigToPreferences(cfg *Config) {
	prefs := cw.app.Preferences()
	prefs.SetString("cameraDevice", cfg.CameraDevice)
	prefs.SetString("chessCols", cfg.ChessCols)
	prefs.SetString("chessRows", cfg.ChessRows)
	prefs.SetString("outputMaxDim", cfg.OutputMaxDim)
	prefs.SetString("outputWidth", cfg.OutputWidth)
	prefs.SetString("outputHeight", cfg.OutputHeight)
	prefs.SetString("serialPort", cfg.SerialPort)
	prefs.SetString("baudRate", cfg.BaudRate)
	prefs.SetString("boardAddr", cfg.BoardAddr)
	prefs.SetString("calibrationFile", cfg.CalibrationFile)
}

func (cw *ConfigWindow) Show(cfg *Config) {
	window := cw.app.NewWindow("SmartHand - Configuration")
	window.Resize(fyne.NewSize(420, 320))
	window.SetCloseIntercept(func() {
		// Treat window close as cancel
		window.Close()
		cw.app.Quit()
	})
	window.Show()

	cw.loadConfigFromPreferences(cfg)

	serialPorts, err := robot.ListPorts()
	if err != nil && !errors.Is(err, robot.ErrNoPorts) {
		showError(cw.app, window, fmt.Errorf("error getting serial ports: %w", err))
		return
	}
	serialPorts = append(serialPorts, serialPortNone)

	serialEntry := widget.NewSelect(serialPorts, nil)
	if cfg.SerialPort == "" {
		cfg.SerialPort = serialPorts[0]
	}
	serialEntry.Bind(binding.BindString(&cfg.SerialPort))

	cameraEntry := widget.NewEntry()
	cameraEntry.Bind(binding.BindString(&cfg.CameraDevice))

	colsEntry := widget.NewEntry()
	colsEntry.Bind(binding.BindString(&cfg.ChessCols))

	rowsEntry := widget.NewEntry()
	rowsEntry.Bind(binding.BindString(&cfg.ChessRows))

	maxDimEntry := widget.NewEntry()
	maxDimEntry.Bind(binding.BindString(&cfg.OutputMaxDim))

	outputWidthEntry := widget.NewEntry()
	outputWidthEntry.Bind(binding.BindString(&cfg.OutputWidth))

	outputHeightEntry := widget.NewEntry()
	outputHeightEntry.Bind(binding.BindString(&cfg.OutputHeight))

	baudRateEntry := widget.NewEntry()
	baudRateEntry.Bind(binding.BindString(&cfg.BaudRate))

	boardAddrEntry := widget.NewEntry()
	boardAddrEntry.Bind(binding.BindString(&cfg.BoardAddr))

	calibrationEntry := widget.NewEntry()
	calibrationEntry.Bind(binding.BindString(&cfg.CalibrationFile))

	submitButton := widget.NewButton("Submit", func() {
		cw.saveConfigToPreferences(cfg)
		cw.OnSubmit()
		window.Close()
	})
	submitButton.Disable()

	validateForm := func() {
		allFieldsValid := cfg.SerialPort != "" &&
			cfg.CameraDevice != "" &&
			atoiOr(cfg.ChessCols, 0) >= 2 &&
			atoiOr(cfg.ChessRows, 0) >= 2 &&
			atoiOr(cfg.OutputMaxDim, 0) > 0 &&
			atoiOr(cfg.BaudRate, 0) > 0

		if allFieldsValid {
			submitButton.Enable()
		} else {
			submitButton.Disable()
		}
	}

	serialEntry.OnChanged = func(_ string) { validateForm() }
	cameraEntry.OnChanged = func(_ string) { validateForm() }
	colsEntry.OnChanged = func(_ string) { validateForm() }
	rowsEntry.OnChanged = func(_ string) { validateForm() }
	maxDimEntry.OnChanged = func(_ string) { validateForm() }
	baudRateEntry.OnChanged = func(_ string) { validateForm() }

	validateForm()

	form := container.NewVBox(
		widget.NewCard("Configuration", "", container.NewVBox(
			container.NewGridWithColumns(2,
				widget.NewLabel("Camera Device:"),
				cameraEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Chessboard Columns:"),
				colsEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Chessboard Rows:"),
				rowsEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Rectified Max Size:"),
				maxDimEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Fixed Width (0 = fit):"),
				outputWidthEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Fixed Height (0 = fit):"),
				outputHeightEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Serial Port:"),
				serialEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Baud Rate:"),
				baudRateEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Board Server Address:"),
				boardAddrEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Calibration File:"),
				calibrationEntry,
			),
		)),
		container.NewHBox(
			widget.NewButton("Cancel", func() {
				window.Close()
				cw.app.Quit()
			}),
			submitButton,
		),
	)

	window.SetContent(form)
}

func showError(app fyne.App, window fyne.Window, err error) {
	d := dialog.NewError(err, window)
	d.SetOnClosed(func() {
		app.Quit()
	})
	d.Show()
}
