package vision

import (
	"errors"
	"math"
	"testing"

	"smarthand"
)

const tol = 1e-9

func near(a, b smarthand.Point) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol
}

func TestComputeHomographyMapsCorners(t *testing.T) {
	cs, err := NewCornerSet([]smarthand.Point{
		{X: 123, Y: 87}, {X: 512, Y: 140}, {X: 488, Y: 690}, {X: 95, Y: 655},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	size := OutputSize{Width: 600, Height: 800}
	h, err := ComputeHomography(cs, size)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [4]smarthand.Point{
		{X: 0, Y: 0},
		{X: 600, Y: 0},
		{X: 600, Y: 800},
		{X: 0, Y: 800},
	}
	for i, c := range cs {
		got := h.Apply(c)
		if !near(got, want[i]) {
			t.Errorf("corner %d: expected %v, got %v", i, want[i], got)
		}
	}
}

func TestComputeHomographyAxisAligned(t *testing.T) {
	// An axis-aligned source rectangle reduces the homography to pure
	// scale plus translation, with no perspective terms.
	cs, err := NewCornerSet([]smarthand.Point{
		{X: 100, Y: 100}, {X: 500, Y: 100}, {X: 500, Y: 700}, {X: 100, Y: 700},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h, err := ComputeHomography(cs, OutputSize{Width: 600, Height: 800})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(h[2][0]) > tol || math.Abs(h[2][1]) > tol {
		t.Errorf("expected no perspective terms, got %v, %v", h[2][0], h[2][1])
	}

	// Midpoint maps proportionally: (300-100)*600/400, (400-100)*800/600
	got := h.Apply(smarthand.Point{X: 300, Y: 400})
	want := smarthand.Point{X: 300, Y: 400}
	if !near(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestComputeHomographyErrors(t *testing.T) {
	valid := CornerSet{
		{X: 100, Y: 100}, {X: 500, Y: 100}, {X: 500, Y: 700}, {X: 100, Y: 700},
	}

	tests := []struct {
		name    string
		cs      CornerSet
		size    OutputSize
		wantErr error
	}{
		{
			"CollinearCorners",
			CornerSet{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 200, Y: 0}, {X: 0, Y: 100}},
			OutputSize{Width: 600, Height: 800},
			ErrDegenerateCorners,
		},
		{
			"ZeroOutputSize",
			valid,
			OutputSize{Width: 0, Height: 800},
			ErrInvalidCorners,
		},
		{
			"NegativeOutputSize",
			valid,
			OutputSize{Width: 600, Height: -1},
			ErrInvalidCorners,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeHomography(tt.cs, tt.size)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
