// Package vision rectifies the camera's perspective view of the phone screen
// into a fixed-size top-down image and locates the calibration chessboard.
package vision

import (
	"errors"
	"fmt"
	"math"

	"smarthand"
)

var (
	// ErrInvalidCorners means the corner input is malformed (wrong count,
	// bad output size) rather than numerically degenerate.
	ErrInvalidCorners = errors.New("invalid corner input")

	// ErrDegenerateCorners means the four corners are collinear or form a
	// non-convex or self-intersecting quadrilateral, so no usable
	// perspective transform exists.
	ErrDegenerateCorners = errors.New("degenerate corner geometry")

	// ErrPatternNotFound means the chessboard grid could not be located in
	// the frame. The operator falls back to manual corner selection.
	ErrPatternNotFound = errors.New("chessboard pattern not found")
)

// collinearEps is the minimum absolute cross product for three corners to
// count as non-collinear. Corner coordinates are in pixels, so this is a
// sub-pixel-area threshold.
const collinearEps = 1e-6

// CornerSet holds the four corners of the phone screen region in camera-pixel
// space, ordered top-left, top-right, bottom-right, bottom-left. A CornerSet
// is built once per detection and never mutated; re-detection produces a new
// one.
type CornerSet [4]smarthand.Point

// NewCornerSet validates the winding and geometry of four corner points.
func NewCornerSet(pts []smarthand.Point) (CornerSet, error) {
	if len(pts) != 4 {
		return CornerSet{}, fmt.Errorf("%w: got %d points, need 4", ErrInvalidCorners, len(pts))
	}

	var cs CornerSet
	copy(cs[:], pts)
	if err := cs.validate(); err != nil {
		return CornerSet{}, err
	}
	return cs, nil
}

// validate rejects quadrilaterals the homography solve cannot handle: any
// three collinear corners, or a non-convex/self-intersecting winding.
func (cs CornerSet) validate() error {
	sign := 0.0
	for i := range cs {
		a := cs[i]
		b := cs[(i+1)%4]
		c := cs[(i+2)%4]

		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		if math.Abs(cross) < collinearEps {
			return fmt.Errorf("%w: corners %v, %v, %v are collinear", ErrDegenerateCorners, a, b, c)
		}
		if sign == 0 {
			sign = cross
		} else if sign*cross < 0 {
			return fmt.Errorf("%w: corners do not form a convex quadrilateral", ErrDegenerateCorners)
		}
	}
	return nil
}

// OutputSize is the pixel dimensions of the rectified image.
type OutputSize struct {
	Width  int
	Height int
}

func (s OutputSize) valid() bool {
	return s.Width > 0 && s.Height > 0
}

// FitOutputSize derives a rectified output rectangle matching the detected
// board's aspect ratio, with the longer side scaled to maxDimension. This is
// the sizing used when the operator has not fixed an output size.
func (cs CornerSet) FitOutputSize(maxDimension int) OutputSize {
	widthTop := dist(cs[0], cs[1])
	widthBottom := dist(cs[3], cs[2])
	width := math.Max(widthTop, widthBottom)

	heightLeft := dist(cs[0], cs[3])
	heightRight := dist(cs[1], cs[2])
	height := math.Max(heightLeft, heightRight)

	scale := float64(maxDimension) / math.Max(width, height)
	return OutputSize{
		Width:  int(width * scale),
		Height: int(height * scale),
	}
}

func dist(a, b smarthand.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
