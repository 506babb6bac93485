package mapping

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"smarthand"
	"smarthand/vision"
)

func testCalibration(t *testing.T) Calibration {
	t.Helper()

	a := Sample{Pixel: smarthand.Point{X: 50, Y: 50}, Real: smarthand.RealPoint{X: 0, Y: 0}}
	b := Sample{Pixel: smarthand.Point{X: 450, Y: 250}, Real: smarthand.RealPoint{X: 62.5, Y: 14}}
	tr, err := Compute(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr.SurfaceZ = -379.25

	h := vision.Homography{{1.25, 0, -100}, {0, 1.25, -80}, {0, 0, 1}}
	return Calibration{
		Transform: tr,
		Samples:   [2]Sample{a, b},
		Corners: []smarthand.Point{
			{X: 100, Y: 100}, {X: 500, Y: 120}, {X: 510, Y: 700}, {X: 95, Y: 690},
		},
		OutputSize: vision.OutputSize{Width: 600, Height: 800},
		Homography: &h,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cal := testCalibration(t)
	path := filepath.Join(t.TempDir(), "calibration.json")

	if err := cal.Save(path); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}

	if loaded.Transform != cal.Transform {
		t.Errorf("transform changed across save/load:\nbefore: %+v\nafter:  %+v", cal.Transform, loaded.Transform)
	}
	if loaded.Samples != cal.Samples {
		t.Errorf("samples changed across save/load:\nbefore: %+v\nafter:  %+v", cal.Samples, loaded.Samples)
	}
	if loaded.OutputSize != cal.OutputSize {
		t.Errorf("output size changed across save/load: %+v vs %+v", cal.OutputSize, loaded.OutputSize)
	}
	if loaded.Homography == nil || *loaded.Homography != *cal.Homography {
		t.Errorf("homography changed across save/load: %+v vs %+v", cal.Homography, loaded.Homography)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(t *testing.T, name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("unexpected error writing fixture: %v", err)
		}
		return path
	}

	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			"MissingFile",
			func(t *testing.T) string { return filepath.Join(dir, "does-not-exist.json") },
		},
		{
			"NotJSON",
			func(t *testing.T) string { return write(t, "garbage.json", "not json at all") },
		},
		{
			"MissingSurfaceZ",
			func(t *testing.T) string {
				return write(t, "no-z.json", `{"transform":{"scale":1,"rotation":0,"tx":0,"ty":0}}`)
			},
		},
		{
			"MissingScale",
			func(t *testing.T) string {
				return write(t, "no-scale.json", `{"transform":{"rotation":0,"tx":0,"ty":0,"surface_z":-380}}`)
			},
		},
		{
			"NonPositiveScale",
			func(t *testing.T) string {
				return write(t, "bad-scale.json", `{"transform":{"scale":0,"rotation":0,"tx":0,"ty":0,"surface_z":-380}}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			if !errors.Is(err, ErrCalibrationLoad) {
				t.Errorf("expected ErrCalibrationLoad, got %v", err)
			}
		})
	}
}
