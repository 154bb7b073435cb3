// Package track rejects false pen detections spatially (outside the
// calibrated display region) and temporally (not seen long enough).
package track

import (
	"math"
	"sort"

	"github.com/refurboard/refurboard/pkg/detect"
)

// DefaultQuadMargin expands the calibration quad outward so the valid
// region covers the screen edges slightly beyond the literal targets.
const DefaultQuadMargin = 0.12

// QuadFilter is a convex-region membership test built from the four
// camera-space calibration points. Ambient IR sources outside the
// projected display are the single biggest source of false positives;
// this removes them.
type QuadFilter struct {
	verts [4][2]float64
}

// NewQuadFilter builds the filter from the calibration corner points,
// expanded from their centroid by margin (fractional, e.g. 0.12).
func NewQuadFilter(points [4][2]float64, margin float64) *QuadFilter {
	var cx, cy float64
	for _, p := range points {
		cx += p[0]
		cy += p[1]
	}
	cx /= 4
	cy /= 4

	var expanded [4][2]float64
	for i, p := range points {
		expanded[i] = [2]float64{
			cx + (p[0]-cx)*(1+margin),
			cy + (p[1]-cy)*(1+margin),
		}
	}

	// Order counter-clockwise around the centroid so the sign test below
	// is consistent regardless of input order.
	sort.Slice(expanded[:], func(i, j int) bool {
		ai := math.Atan2(expanded[i][1]-cy, expanded[i][0]-cx)
		aj := math.Atan2(expanded[j][1]-cy, expanded[j][0]-cx)
		return ai < aj
	})

	return &QuadFilter{verts: expanded}
}

// Contains reports whether the point lies inside the expanded quad.
func (q *QuadFilter) Contains(x, y float64) bool {
	sign := 0
	for i := 0; i < 4; i++ {
		a := q.verts[i]
		b := q.verts[(i+1)%4]
		cross := (b[0]-a[0])*(y-a[1]) - (b[1]-a[1])*(x-a[0])
		if cross == 0 {
			continue
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

// Filter keeps only the blobs inside the quad, preserving order.
func (q *QuadFilter) Filter(blobs []detect.Blob) []detect.Blob {
	kept := blobs[:0:0]
	for _, b := range blobs {
		if q.Contains(b.X, b.Y) {
			kept = append(kept, b)
		}
	}
	return kept
}
