package track

import (
	"math"

	"github.com/google/uuid"

	"github.com/refurboard/refurboard/pkg/detect"
)

// Defaults for the temporal debounce.
const (
	DefaultAssociationRadius = 20.0 // px
	DefaultPersistenceFrames = 3
)

// trackState follows one candidate blob across consecutive frames.
// Tracks do not survive a missed frame: a single gap destroys them.
type trackState struct {
	x, y float64
	hits int
	blob detect.Blob
}

// PersistenceTracker suppresses single-frame spurious detections (sensor
// noise, specular flashes) by requiring a blob to reappear near the same
// spot for a few consecutive frames before it is confirmed.
type PersistenceTracker struct {
	radius float64
	frames int

	tracks map[uuid.UUID]*trackState
}

// NewPersistenceTracker creates a tracker. A blob is confirmed once its
// track has been hit in `frames` consecutive frames.
func NewPersistenceTracker(radius float64, frames int) *PersistenceTracker {
	return &PersistenceTracker{
		radius: radius,
		frames: frames,
		tracks: make(map[uuid.UUID]*trackState),
	}
}

// Update associates this frame's blobs with existing tracks by nearest
// neighbor within the association radius and returns the confirmed
// blobs, best score first.
func (t *PersistenceTracker) Update(blobs []detect.Blob) []detect.Blob {
	next := make(map[uuid.UUID]*trackState, len(blobs))
	claimed := make([]bool, len(blobs))

	for id, tr := range t.tracks {
		bestIdx := -1
		bestDist := t.radius
		for i, b := range blobs {
			if claimed[i] {
				continue
			}
			d := math.Hypot(b.X-tr.x, b.Y-tr.y)
			if d <= bestDist {
				bestDist = d
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			// Unmatched track: dropped, persistence restarts from scratch.
			continue
		}
		claimed[bestIdx] = true
		b := blobs[bestIdx]
		next[id] = &trackState{x: b.X, y: b.Y, hits: tr.hits + 1, blob: b}
	}

	for i, b := range blobs {
		if claimed[i] {
			continue
		}
		next[uuid.New()] = &trackState{x: b.X, y: b.Y, hits: 1, blob: b}
	}
	t.tracks = next

	var confirmed []detect.Blob
	for _, tr := range next {
		if tr.hits >= t.frames {
			confirmed = append(confirmed, tr.blob)
		}
	}
	detect.SortByScore(confirmed)
	return confirmed
}

// Reset forgets all tracks.
func (t *PersistenceTracker) Reset() {
	t.tracks = make(map[uuid.UUID]*trackState)
}
