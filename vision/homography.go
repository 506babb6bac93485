package vision

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"smarthand"
)

// Homography is the 3x3 projective transform mapping camera-pixel coordinates
// to rectified-pixel coordinates. It is computed once per detection and
// reused for every subsequent frame until the operator re-detects.
type Homography [3][3]float64

// ComputeHomography solves for the unique homography mapping each corner of
// cs onto the matching corner of the size rectangle: top-left to (0,0),
// top-right to (W,0), bottom-right to (W,H), bottom-left to (0,H).
//
// The mapping is exact at the four corners; interior points follow by
// perspective interpolation, which keeps straight lines straight.
func ComputeHomography(cs CornerSet, size OutputSize) (Homography, error) {
	if !size.valid() {
		return Homography{}, fmt.Errorf("%w: output size %dx%d", ErrInvalidCorners, size.Width, size.Height)
	}
	if err := cs.validate(); err != nil {
		return Homography{}, err
	}

	w := float64(size.Width)
	h := float64(size.Height)
	dst := [4]smarthand.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}

	// Direct linear solve for the 8 unknowns h00..h21 with h22 fixed to 1.
	// Each correspondence contributes two rows:
	//   x' = (h00 X + h01 Y + h02) / (h20 X + h21 Y + 1)
	//   y' = (h10 X + h11 Y + h12) / (h20 X + h21 Y + 1)
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := range 4 {
		sx, sy := cs[i].X, cs[i].Y
		dx, dy := dst[i].X, dst[i].Y

		r := 2 * i
		a.SetRow(r, []float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx})
		b.SetVec(r, dx)
		a.SetRow(r+1, []float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy})
		b.SetVec(r+1, dy)
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateCorners, err)
	}

	return Homography{
		{x.AtVec(0), x.AtVec(1), x.AtVec(2)},
		{x.AtVec(3), x.AtVec(4), x.AtVec(5)},
		{x.AtVec(6), x.AtVec(7), 1},
	}, nil
}

// Apply maps a camera-pixel point into rectified-pixel space.
func (h Homography) Apply(p smarthand.Point) smarthand.Point {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	return smarthand.Point{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}
}
