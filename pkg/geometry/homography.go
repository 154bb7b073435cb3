// Package geometry maps camera pixels onto the screen through a planar
// homography fitted from the four calibration correspondences.
package geometry

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate means the four correspondences were collinear or
// otherwise did not determine a projective transform.
var ErrDegenerate = errors.New("geometry: degenerate point correspondences")

// Homography is a 3x3 projective transform in row-major order with
// h22 fixed to 1.
type Homography struct {
	h [9]float64
}

// NewHomography solves the exact 4-point correspondence src[i] -> dst[i]
// using the standard DLT construction: 8 unknowns, two equations per
// pair. With exactly four pairs no least squares is involved.
func NewHomography(src, dst [4][2]float64) (*Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		X, Y := src[i][0], src[i][1]
		x, y := dst[i][0], dst[i][1]
		r := 2 * i

		// x' = (h00 X + h01 Y + h02) / (h20 X + h21 Y + 1)
		a.Set(r, 0, X)
		a.Set(r, 1, Y)
		a.Set(r, 2, 1)
		a.Set(r, 6, -X*x)
		a.Set(r, 7, -Y*x)
		b.SetVec(r, x)

		// y' = (h10 X + h11 Y + h12) / (h20 X + h21 Y + 1)
		a.Set(r+1, 3, X)
		a.Set(r+1, 4, Y)
		a.Set(r+1, 5, 1)
		a.Set(r+1, 6, -X*y)
		a.Set(r+1, 7, -Y*y)
		b.SetVec(r+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return &Homography{}, ErrDegenerate
	}

	out := &Homography{}
	for i := 0; i < 8; i++ {
		out.h[i] = h.AtVec(i)
	}
	out.h[8] = 1
	return out, nil
}

// Apply maps a camera point into screen pixel space.
func (h *Homography) Apply(x, y float64) (float64, float64) {
	denom := h.h[6]*x + h.h[7]*y + h.h[8]
	if denom == 0 {
		return math.Inf(-1), math.Inf(-1)
	}
	sx := (h.h[0]*x + h.h[1]*y + h.h[2]) / denom
	sy := (h.h[3]*x + h.h[4]*y + h.h[5]) / denom
	return sx, sy
}

// ProjectNormalized maps a camera point to normalized screen
// coordinates in [0,1]², clamping both axes.
func (h *Homography) ProjectNormalized(x, y float64, screenW, screenH int) (float64, float64) {
	sx, sy := h.Apply(x, y)
	nx := clamp01(sx / float64(screenW))
	ny := clamp01(sy / float64(screenH))
	return nx, ny
}

// ReprojectionError is the mean Euclidean distance between each source
// point mapped through the homography and its true target. For the four
// training points of an exact solve this should be ~0; anything larger
// indicates near-collinear input.
func (h *Homography) ReprojectionError(src, dst [4][2]float64) float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		px, py := h.Apply(src[i][0], src[i][1])
		sum += math.Hypot(px-dst[i][0], py-dst[i][1])
	}
	return sum / 4
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
