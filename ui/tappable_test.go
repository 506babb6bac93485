package ui

import (
	"image"
	"math"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
)

func TestPixelAt(t *testing.T) {
	_ = test.NewApp()

	// 100x200 image in a 200x200 widget: contain-fit gives scale 1 with a
	// 50px letterbox band on each side
	ti := newTappableImage(fyne.NewSize(200, 200))
	ti.Resize(fyne.NewSize(200, 200))
	ti.img.Image = image.NewRGBA(image.Rect(0, 0, 100, 200))

	tests := map[string]struct {
		pos    fyne.Position
		wantX  float64
		wantY  float64
		wantOK bool
	}{
		"TopLeftOfImage":  {fyne.NewPos(50, 0), 0, 0, true},
		"Center":          {fyne.NewPos(100, 100), 50, 100, true},
		"LeftLetterbox":   {fyne.NewPos(20, 100), 0, 0, false},
		"RightLetterbox":  {fyne.NewPos(180, 100), 0, 0, false},
		"PastRightEdge":   {fyne.NewPos(150, 100), 0, 0, false},
		"BottomRightEdge": {fyne.NewPos(149, 199), 99, 199, true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p, ok := ti.pixelAt(tt.pos)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if math.Abs(p.X-tt.wantX) > 0.01 || math.Abs(p.Y-tt.wantY) > 0.01 {
				t.Errorf("expected (%v, %v), got %s", tt.wantX, tt.wantY, p)
			}
		})
	}
}

func TestPixelAtNoImage(t *testing.T) {
	_ = test.NewApp()

	ti := newTappableImage(fyne.NewSize(100, 100))
	ti.Resize(fyne.NewSize(100, 100))

	if _, ok := ti.pixelAt(fyne.NewPos(50, 50)); ok {
		t.Error("expected no pixel without an image")
	}
}
