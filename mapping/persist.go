package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"smarthand"
	"smarthand/vision"
)

// ErrCalibrationLoad means a persisted calibration is missing or malformed.
// Loading never substitutes defaults for the fields that keep the stylus off
// the phone, so a bad file always surfaces here.
var ErrCalibrationLoad = errors.New("cannot load calibration")

// Calibration is the durable record of a full calibration run: the
// similarity transform, the two samples that produced it, and the
// rectification state (source corners, output size, homography) so a session
// can be restored without re-detecting the board.
type Calibration struct {
	Transform  Transform          `json:"transform"`
	Samples    [2]Sample          `json:"samples"`
	Corners    []smarthand.Point  `json:"corners,omitempty"`
	OutputSize vision.OutputSize  `json:"output_size"`
	Homography *vision.Homography `json:"homography,omitempty"`
}

// calibrationFile mirrors Calibration with pointer fields for the values
// that must be present in the file. JSON cannot distinguish an absent number
// from zero, and a defaulted SurfaceZ would drive the stylus into the phone.
type calibrationFile struct {
	Transform struct {
		Scale    *float64 `json:"scale"`
		Rotation *float64 `json:"rotation"`
		TX       *float64 `json:"tx"`
		TY       *float64 `json:"ty"`
		SurfaceZ *float64 `json:"surface_z"`
	} `json:"transform"`
	Samples    [2]Sample          `json:"samples"`
	Corners    []smarthand.Point  `json:"corners,omitempty"`
	OutputSize vision.OutputSize  `json:"output_size"`
	Homography *vision.Homography `json:"homography,omitempty"`
}

// Save writes the calibration to path as JSON.
func (c Calibration) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding calibration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing calibration file: %w", err)
	}
	return nil
}

// Load reads and validates a calibration file written by Save.
func Load(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Calibration{}, fmt.Errorf("%w: %v", ErrCalibrationLoad, err)
	}

	var f calibrationFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Calibration{}, fmt.Errorf("%w: %v", ErrCalibrationLoad, err)
	}

	for name, v := range map[string]*float64{
		"scale":     f.Transform.Scale,
		"rotation":  f.Transform.Rotation,
		"tx":        f.Transform.TX,
		"ty":        f.Transform.TY,
		"surface_z": f.Transform.SurfaceZ,
	} {
		if v == nil {
			return Calibration{}, fmt.Errorf("%w: missing transform field %q", ErrCalibrationLoad, name)
		}
	}
	if *f.Transform.Scale <= 0 {
		return Calibration{}, fmt.Errorf("%w: scale must be positive, got %v", ErrCalibrationLoad, *f.Transform.Scale)
	}

	return Calibration{
		Transform: Transform{
			Scale:    *f.Transform.Scale,
			Rotation: *f.Transform.Rotation,
			TX:       *f.Transform.TX,
			TY:       *f.Transform.TY,
			SurfaceZ: *f.Transform.SurfaceZ,
		},
		Samples:    f.Samples,
		Corners:    f.Corners,
		OutputSize: f.OutputSize,
		Homography: f.Homography,
	}, nil
}
