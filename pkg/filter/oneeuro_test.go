package filter

import (
	"math"
	"testing"
	"time"
)

func TestOneEuro_FirstTrustedSampleEchoes(t *testing.T) {
	f := NewOneEuro(DefaultMinCutoff, DefaultBeta, 0, 0)
	now := time.Now()

	x, y, ok := f.Update(0.3, 0.7, now)
	if !ok || x != 0.3 || y != 0.7 {
		t.Fatalf("first sample = (%v, %v, %v), want echo", x, y, ok)
	}
}

func TestOneEuro_ReacquisitionGate(t *testing.T) {
	f := NewOneEuro(DefaultMinCutoff, DefaultBeta, 2, 0.1)
	now := time.Now()

	if _, _, ok := f.Update(0.5, 0.5, now); ok {
		t.Fatal("gate released on first sample")
	}
	// Jump beyond the radius restarts the count.
	now = now.Add(10 * time.Millisecond)
	if _, _, ok := f.Update(0.9, 0.9, now); ok {
		t.Fatal("gate released across a jump")
	}
	now = now.Add(10 * time.Millisecond)
	if _, _, ok := f.Update(0.905, 0.895, now); !ok {
		t.Fatal("gate held a stable candidate")
	}
}

func TestOneEuro_ConvergesTowardTarget(t *testing.T) {
	f := NewOneEuro(1.0, 0.007, 0, 0)
	now := time.Now()
	f.Update(0, 0, now)

	var x float64
	for i := 0; i < 200; i++ {
		now = now.Add(10 * time.Millisecond)
		x, _, _ = f.Update(1, 0, now)
	}
	if math.Abs(x-1) > 0.01 {
		t.Errorf("filter did not converge: x = %v", x)
	}
}

// Fast motion should be tracked with less lag than slow motion: the
// speed term widens the cutoff.
func TestOneEuro_SpeedAdaptiveLag(t *testing.T) {
	lagAfterStep := func(step float64) float64 {
		f := NewOneEuro(1.0, 0.5, 0, 0)
		now := time.Now()
		f.Update(0, 0, now)
		var x float64
		for i := 1; i <= 10; i++ {
			now = now.Add(10 * time.Millisecond)
			x, _, _ = f.Update(step*float64(i), 0, now)
		}
		return step*10 - x
	}

	slowLag := lagAfterStep(0.001) / 0.001
	fastLag := lagAfterStep(0.1) / 0.1
	if fastLag >= slowLag {
		t.Errorf("relative lag fast (%v) should be below slow (%v)", fastLag, slowLag)
	}
}

func TestOneEuro_NonMonotonicTimestamps(t *testing.T) {
	f := NewOneEuro(1.0, 0.007, 0, 0)
	now := time.Now()
	f.Update(0, 0, now)

	// Same timestamp twice must not divide by zero.
	x, y, ok := f.Update(1, 1, now)
	if !ok || math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) {
		t.Errorf("update with dt=0 produced (%v, %v, %v)", x, y, ok)
	}
}

func TestOneEuro_ResetClearsStateAndGate(t *testing.T) {
	f := NewOneEuro(1.0, 0.007, 2, 0.1)
	now := time.Now()
	f.Update(0.5, 0.5, now)
	f.Update(0.5, 0.5, now.Add(10*time.Millisecond)) // trusted

	f.Reset()
	if _, _, ok := f.Position(); ok {
		t.Error("position survived reset")
	}
	if _, _, ok := f.Update(0.5, 0.5, now.Add(20*time.Millisecond)); ok {
		t.Error("gate did not restart after reset")
	}
}
