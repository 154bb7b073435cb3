package detect

import "testing"

func TestBlobScore_WeightsIntensityOverArea(t *testing.T) {
	bright := Blob{Intensity: 200, Area: 10}
	big := Blob{Intensity: 10, Area: 200}

	if bright.Score() <= big.Score() {
		t.Errorf("bright small blob (%.1f) should outscore dim large blob (%.1f)",
			bright.Score(), big.Score())
	}
}

func TestSortByScore(t *testing.T) {
	blobs := []Blob{
		{Intensity: 10, Area: 5},
		{Intensity: 250, Area: 40},
		{Intensity: 80, Area: 20},
	}
	SortByScore(blobs)
	for i := 1; i < len(blobs); i++ {
		if blobs[i].Score() > blobs[i-1].Score() {
			t.Fatalf("not sorted descending at index %d", i)
		}
	}
}

func TestBest(t *testing.T) {
	if _, ok := Best(nil); ok {
		t.Error("Best of empty slice reported ok")
	}

	blobs := []Blob{
		{X: 1, Intensity: 10, Area: 5},
		{X: 2, Intensity: 250, Area: 40},
	}
	best, ok := Best(blobs)
	if !ok || best.X != 2 {
		t.Errorf("Best = %+v, ok=%v; want the brighter blob", best, ok)
	}
}
