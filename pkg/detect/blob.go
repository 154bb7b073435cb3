// Package detect finds candidate pen blobs in camera frames and decides
// click intent from their brightness.
package detect

import "sort"

// Score weighting shared by the whole pipeline: brightness dominates,
// size breaks ties. Ranking stays stable because every stage uses the
// same weights.
const (
	intensityWeight = 0.7
	areaWeight      = 0.3
)

// Blob is a single bright region found in one frame. Blobs carry no
// identity across frames; association is the persistence tracker's job.
type Blob struct {
	X, Y       float64 // Centroid in camera pixels
	Area       float64 // Contour area in px²
	Intensity  float64 // Mean grayscale brightness inside the contour (0-255)
	Confidence float64 // Normalized detection score (0-1)
}

// Score returns the unnormalized selection weight used to rank blobs.
func (b Blob) Score() float64 {
	return b.Intensity*intensityWeight + b.Area*areaWeight
}

// SortByScore orders blobs best-first in place.
func SortByScore(blobs []Blob) {
	sort.Slice(blobs, func(i, j int) bool {
		return blobs[i].Score() > blobs[j].Score()
	})
}

// Best returns the highest-scoring blob, or false when the slice is empty.
// Callers must have sorted the slice or accept a linear scan.
func Best(blobs []Blob) (Blob, bool) {
	if len(blobs) == 0 {
		return Blob{}, false
	}
	best := blobs[0]
	for _, b := range blobs[1:] {
		if b.Score() > best.Score() {
			best = b
		}
	}
	return best, true
}
