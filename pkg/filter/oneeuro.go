package filter

import (
	"math"
	"time"
)

// Defaults tuned for normalized screen coordinates at webcam frame rates.
const (
	DefaultMinCutoff = 1.0
	DefaultBeta      = 0.007
	DefaultDCutoff   = 1.0

	// DefaultReacquireRadius is ~25% of the normalized screen diagonal.
	DefaultReacquireRadius = 0.25 * math.Sqrt2

	// fallbackDT stands in when timestamps are identical or go backwards.
	fallbackDT = 1.0 / 120.0
)

// OneEuro is a speed-adaptive low-pass filter: slow movement is smoothed
// hard to kill jitter, fast strokes raise the cutoff so the cursor does
// not visibly lag the pen. It also carries the reacquisition gate, so a
// freshly reset filter will not trust the first thing it sees.
type OneEuro struct {
	MinCutoff float64 // Position cutoff floor (Hz)
	Beta      float64 // Cutoff gain per unit of speed
	DCutoff   float64 // Derivative low-pass cutoff (Hz)

	gate    reacquireGate
	hasVal  bool
	x, y    float64
	vx, vy  float64
	lastTS  time.Time
	hasTime bool
}

// NewOneEuro creates a filter with the given tuning. reacquireFrames == 0
// disables the gate.
func NewOneEuro(minCutoff, beta float64, reacquireFrames int, reacquireRadius float64) *OneEuro {
	return &OneEuro{
		MinCutoff: minCutoff,
		Beta:      beta,
		DCutoff:   DefaultDCutoff,
		gate:      reacquireGate{frames: reacquireFrames, radius: reacquireRadius},
	}
}

// smoothingAlpha converts a cutoff frequency and time step into an
// exponential blend factor.
func smoothingAlpha(cutoff, dt float64) float64 {
	tau := 1.0 / (2 * math.Pi * cutoff)
	return 1.0 / (1.0 + tau/dt)
}

// Update feeds one raw sample observed at the given time. ok is false
// while the reacquisition gate is holding output back.
func (f *OneEuro) Update(x, y float64, now time.Time) (float64, float64, bool) {
	if !f.hasVal {
		if !f.gate.offer(x, y) {
			return 0, 0, false
		}
		f.x, f.y = x, y
		f.vx, f.vy = 0, 0
		f.lastTS = now
		f.hasTime = true
		f.hasVal = true
		return f.x, f.y, true
	}

	dt := now.Sub(f.lastTS).Seconds()
	if !f.hasTime || dt <= 0 {
		dt = fallbackDT
	}
	f.lastTS = now
	f.hasTime = true

	// Low-pass the raw derivative, then let the speed estimate widen the
	// position cutoff.
	ad := smoothingAlpha(f.DCutoff, dt)
	f.vx = ad*((x-f.x)/dt) + (1-ad)*f.vx
	f.vy = ad*((y-f.y)/dt) + (1-ad)*f.vy
	speed := math.Hypot(f.vx, f.vy)

	cutoff := f.MinCutoff + f.Beta*speed
	a := smoothingAlpha(cutoff, dt)
	f.x = a*x + (1-a)*f.x
	f.y = a*y + (1-a)*f.y
	return f.x, f.y, true
}

// Position returns the current filtered position, if any.
func (f *OneEuro) Position() (float64, float64, bool) {
	return f.x, f.y, f.hasVal
}

// Reset clears all filter state. Called whenever a frame yields no
// qualifying blob, so stale history cannot leak into an unrelated
// reappearance elsewhere on screen.
func (f *OneEuro) Reset() {
	f.hasVal = false
	f.hasTime = false
	f.vx, f.vy = 0, 0
	f.gate.reset()
}
