// Package mapping converts rectified-pixel coordinates to robot workspace
// coordinates through a 2D similarity transform (uniform scale, rotation,
// translation) fitted to exactly two reference points.
package mapping

import (
	"errors"
	"fmt"
	"math"

	"smarthand"
)

// MinPixelBaseline is the minimum distance in rectified pixels between the
// two calibration points. Closer pairs make the scale and rotation estimates
// numerically unstable.
const MinPixelBaseline = 1.0

// ErrShortBaseline means the two calibration points are too close together,
// in pixel or in real space, to fit a stable transform.
var ErrShortBaseline = errors.New("calibration points too close together")

// Sample is one pixel-to-real correspondence entered by the operator: a
// point clicked on the rectified view paired with its measured workspace
// position.
type Sample struct {
	Pixel smarthand.Point     `json:"pixel"`
	Real  smarthand.RealPoint `json:"real"`
}

// Transform maps rectified-pixel coordinates to workspace millimeters.
// SurfaceZ is the measured Z height of the phone surface and travels with
// the transform because a planar mapping is only meaningful at that height.
type Transform struct {
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	TX       float64 `json:"tx"`
	TY       float64 `json:"ty"`
	SurfaceZ float64 `json:"surface_z"`
}

// Compute fits the similarity transform through two samples. The fit is
// closed-form: the two pixel points and two real points define one vector
// each, giving scale and rotation directly, and the translation is solved so
// that Apply(a.Pixel) lands exactly on a.Real.
//
// SurfaceZ is left zero; the caller sets it from the measured phone height.
func Compute(a, b Sample) (Transform, error) {
	pixDX := b.Pixel.X - a.Pixel.X
	pixDY := b.Pixel.Y - a.Pixel.Y
	realDX := b.Real.X - a.Real.X
	realDY := b.Real.Y - a.Real.Y

	pixDist := math.Hypot(pixDX, pixDY)
	realDist := math.Hypot(realDX, realDY)
	if pixDist < MinPixelBaseline {
		return Transform{}, fmt.Errorf("%w: pixel baseline %.4f px", ErrShortBaseline, pixDist)
	}
	if realDist == 0 {
		return Transform{}, fmt.Errorf("%w: real points are identical", ErrShortBaseline)
	}

	t := Transform{
		Scale:    realDist / pixDist,
		Rotation: math.Atan2(realDY, realDX) - math.Atan2(pixDY, pixDX),
	}

	// translation = real - R*pixel for the first sample
	x, y := t.rotateScale(a.Pixel.X, a.Pixel.Y)
	t.TX = a.Real.X - x
	t.TY = a.Real.Y - y
	return t, nil
}

func (t Transform) rotateScale(x, y float64) (float64, float64) {
	cos := math.Cos(t.Rotation) * t.Scale
	sin := math.Sin(t.Rotation) * t.Scale
	return cos*x - sin*y, sin*x + cos*y
}

// Apply maps a rectified-pixel point to workspace millimeters.
func (t Transform) Apply(p smarthand.Point) smarthand.RealPoint {
	x, y := t.rotateScale(p.X, p.Y)
	return smarthand.RealPoint{X: x + t.TX, Y: y + t.TY}
}

// Invert returns the exact inverse transform, mapping workspace millimeters
// back to rectified pixels. Composing the two is the identity up to
// floating-point error.
func (t Transform) Invert() Transform {
	inv := Transform{
		Scale:    1 / t.Scale,
		Rotation: -t.Rotation,
		SurfaceZ: t.SurfaceZ,
	}
	x, y := inv.rotateScale(t.TX, t.TY)
	inv.TX = -x
	inv.TY = -y
	return inv
}

// PixelFor maps a workspace position back onto the rectified view. Used to
// validate round-trips and to mark a commanded position on screen.
func (t Transform) PixelFor(r smarthand.RealPoint) smarthand.Point {
	inv := t.Invert()
	x, y := inv.rotateScale(r.X, r.Y)
	return smarthand.Point{X: x + inv.TX, Y: y + inv.TY}
}

// Target composes the full robot target for a rectified-pixel touch: the
// calibrated workspace position at the phone-surface height, pressed down by
// pressDepth millimeters.
func (t Transform) Target(p smarthand.Point, pressDepth float64) smarthand.TargetPoint {
	real := t.Apply(p)
	return smarthand.TargetPoint{X: real.X, Y: real.Y, Z: t.SurfaceZ - pressDepth}
}
