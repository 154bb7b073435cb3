package filter

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSmoother_BlendSequence(t *testing.T) {
	s := NewSmoother(0.25, 0, 0)

	x, y, ok := s.Update(0, 0)
	if !ok || x != 0 || y != 0 {
		t.Fatalf("first sample = (%v, %v, %v), want echo (0, 0, true)", x, y, ok)
	}

	x, y, _ = s.Update(1, 1)
	if !almostEqual(x, 0.25) || !almostEqual(y, 0.25) {
		t.Errorf("after (1,1): got (%v, %v), want (0.25, 0.25)", x, y)
	}

	x, y, _ = s.Update(1, 1)
	if !almostEqual(x, 0.4375) || !almostEqual(y, 0.4375) {
		t.Errorf("after second (1,1): got (%v, %v), want (0.4375, 0.4375)", x, y)
	}

	x, y, _ = s.Update(0, 1)
	if !almostEqual(x, 0.4375*0.75) || !almostEqual(y, 0.4375*0.75+0.25) {
		t.Errorf("after (0,1): got (%v, %v), want (%v, %v)",
			x, y, 0.4375*0.75, 0.4375*0.75+0.25)
	}
}

func TestSmoother_ReacquireGate(t *testing.T) {
	s := NewSmoother(0.5, 2, 10)

	// First sample is only a candidate.
	if _, _, ok := s.Update(100, 100); ok {
		t.Fatal("gate released on first sample")
	}
	// A jump restarts the candidate.
	if _, _, ok := s.Update(500, 500); ok {
		t.Fatal("gate released across a jump")
	}
	// Second stable sample passes.
	x, y, ok := s.Update(503, 504)
	if !ok {
		t.Fatal("gate held a stable candidate")
	}
	if x != 503 || y != 504 {
		t.Errorf("first trusted sample = (%v, %v), want echo (503, 504)", x, y)
	}
}

func TestSmoother_ResetRestartsGate(t *testing.T) {
	s := NewSmoother(0.5, 2, 10)
	s.Update(10, 10)
	s.Update(11, 11) // trusted now
	s.Reset()

	if _, _, ok := s.Update(10, 10); ok {
		t.Error("gate did not restart after reset")
	}
}
