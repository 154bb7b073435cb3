package track

import (
	"testing"

	"github.com/refurboard/refurboard/pkg/detect"
)

func TestPersistenceTracker_ConfirmsAfterConsecutiveHits(t *testing.T) {
	tr := NewPersistenceTracker(DefaultAssociationRadius, 3)

	b := detect.Blob{X: 100, Y: 100, Intensity: 50}
	if got := tr.Update([]detect.Blob{b}); len(got) != 0 {
		t.Fatalf("confirmed after 1 frame: %v", got)
	}
	b.X, b.Y = 105, 102 // within the association radius
	if got := tr.Update([]detect.Blob{b}); len(got) != 0 {
		t.Fatalf("confirmed after 2 frames: %v", got)
	}
	b.X, b.Y = 108, 104
	got := tr.Update([]detect.Blob{b})
	if len(got) != 1 {
		t.Fatalf("not confirmed after 3 frames: %v", got)
	}
	if got[0].X != 108 {
		t.Errorf("confirmed blob carries stale position: %+v", got[0])
	}
}

func TestPersistenceTracker_GapDestroysTrack(t *testing.T) {
	tr := NewPersistenceTracker(DefaultAssociationRadius, 2)

	b := detect.Blob{X: 100, Y: 100}
	tr.Update([]detect.Blob{b})
	tr.Update(nil) // one missed frame
	if got := tr.Update([]detect.Blob{b}); len(got) != 0 {
		t.Errorf("track survived a gap: %v", got)
	}
	if got := tr.Update([]detect.Blob{b}); len(got) != 1 {
		t.Errorf("persistence should rebuild after the gap: %v", got)
	}
}

func TestPersistenceTracker_JumpStartsNewTrack(t *testing.T) {
	tr := NewPersistenceTracker(20, 2)

	tr.Update([]detect.Blob{{X: 100, Y: 100}})
	// 300px away: outside the association radius, so this is a fresh
	// track with a fresh count.
	if got := tr.Update([]detect.Blob{{X: 400, Y: 100}}); len(got) != 0 {
		t.Errorf("jump inherited the old track's count: %v", got)
	}
}

func TestPersistenceTracker_MultipleBlobsSortedByScore(t *testing.T) {
	tr := NewPersistenceTracker(20, 1)

	got := tr.Update([]detect.Blob{
		{X: 10, Y: 10, Intensity: 20, Area: 5},
		{X: 200, Y: 200, Intensity: 240, Area: 30},
	})
	if len(got) != 2 {
		t.Fatalf("want both blobs confirmed with frames=1, got %v", got)
	}
	if got[0].Intensity != 240 {
		t.Errorf("confirmed blobs not sorted by score: %v", got)
	}
}

func TestPersistenceTracker_Reset(t *testing.T) {
	tr := NewPersistenceTracker(20, 2)
	tr.Update([]detect.Blob{{X: 100, Y: 100}})
	tr.Reset()
	if got := tr.Update([]detect.Blob{{X: 100, Y: 100}}); len(got) != 0 {
		t.Errorf("track survived Reset: %v", got)
	}
}
