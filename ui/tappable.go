package ui

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"smarthand"
)

// tappableImage is an image view that reports taps in image-pixel
// coordinates, accounting for the contain-fit letterboxing.
type tappableImage struct {
	widget.BaseWidget

	img      *canvas.Image
	OnTapped func(smarthand.Point)
}

func newTappableImage(minSize fyne.Size) *tappableImage {
	t := &tappableImage{
		img: canvas.NewImageFromImage(nil),
	}
	t.img.FillMode = canvas.ImageFillContain
	t.img.SetMinSize(minSize)
	t.ExtendBaseWidget(t)
	return t
}

func (t *tappableImage) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.img)
}

// SetImage swaps the displayed frame. Must run on the UI thread (fyne.Do).
func (t *tappableImage) SetImage(img image.Image) {
	t.img.Image = img
	t.img.Refresh()
}

func (t *tappableImage) Tapped(e *fyne.PointEvent) {
	if t.OnTapped == nil {
		return
	}
	p, ok := t.pixelAt(e.Position)
	if !ok {
		return
	}
	t.OnTapped(p)
}

// pixelAt converts a widget position into image pixels. Returns false for
// taps on the letterbox bands or when no image is shown.
func (t *tappableImage) pixelAt(pos fyne.Position) (smarthand.Point, bool) {
	if t.img.Image == nil {
		return smarthand.Point{}, false
	}

	bounds := t.img.Image.Bounds()
	imgW := float64(bounds.Dx())
	imgH := float64(bounds.Dy())
	if imgW == 0 || imgH == 0 {
		return smarthand.Point{}, false
	}

	size := t.Size()
	scale := min(float64(size.Width)/imgW, float64(size.Height)/imgH)
	if scale <= 0 {
		return smarthand.Point{}, false
	}

	offX := (float64(size.Width) - imgW*scale) / 2
	offY := (float64(size.Height) - imgH*scale) / 2

	x := (float64(pos.X) - offX) / scale
	y := (float64(pos.Y) - offY) / scale
	if x < 0 || y < 0 || x >= imgW || y >= imgH {
		return smarthand.Point{}, false
	}
	return smarthand.Point{X: x, Y: y}, true
}
