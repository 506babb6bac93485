package vision

import (
	"image"

	"gocv.io/x/gocv"

	"smarthand"
)

// Rectify warps frame into a size-dimensioned top-down view using the
// perspective transform defined by cs. It returns the warped frame and the
// homography, which the caller keeps to warp later frames with Warp.
//
// The returned Mat is owned by the caller and must be closed.
func Rectify(frame gocv.Mat, cs CornerSet, size OutputSize) (gocv.Mat, Homography, error) {
	h, err := ComputeHomography(cs, size)
	if err != nil {
		return gocv.Mat{}, Homography{}, err
	}
	return Warp(frame, h, size), h, nil
}

// Warp applies a previously computed homography to a frame.
func Warp(frame gocv.Mat, h Homography, size OutputSize) gocv.Mat {
	m := h.toMat()
	defer m.Close()

	out := gocv.NewMat()
	gocv.WarpPerspective(frame, &out, m, image.Pt(size.Width, size.Height))
	return out
}

func (h Homography) toMat() gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := range 3 {
		for c := range 3 {
			m.SetDoubleAt(r, c, h[r][c])
		}
	}
	return m
}

// DetectChessboard locates a chessboard with cols x rows internal corners in
// the frame and returns the outer corners of the internal grid as a
// CornerSet. This is a single best-effort attempt; when the board is not
// visible (contrast, lighting, occlusion) it returns ErrPatternNotFound and
// the operator retries or selects corners manually.
func DetectChessboard(frame gocv.Mat, cols, rows int) (CornerSet, error) {
	if cols < 2 || rows < 2 {
		return CornerSet{}, ErrInvalidCorners
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	corners := gocv.NewMat()
	defer corners.Close()

	pattern := image.Pt(cols, rows)
	if !gocv.FindChessboardCorners(gray, pattern, &corners, gocv.CalibCBAdaptiveThresh|gocv.CalibCBNormalizeImage) {
		return CornerSet{}, ErrPatternNotFound
	}

	// Refine to sub-pixel accuracy before deriving the bounding corners.
	gocv.CornerSubPix(gray, &corners, image.Pt(11, 11), image.Pt(-1, -1),
		gocv.NewTermCriteria(gocv.Count|gocv.EPS, 30, 0.001))

	n := corners.Rows()
	if n != cols*rows {
		return CornerSet{}, ErrPatternNotFound
	}

	// The grid is row-major: index 0 is top-left, cols-1 top-right,
	// n-cols bottom-left, n-1 bottom-right.
	at := func(i int) smarthand.Point {
		v := corners.GetVecfAt(i, 0)
		return smarthand.Point{X: float64(v[0]), Y: float64(v[1])}
	}
	return NewCornerSet([]smarthand.Point{at(0), at(cols - 1), at(n - 1), at(n - cols)})
}
