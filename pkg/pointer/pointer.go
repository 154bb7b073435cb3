// Package pointer injects pointer-move and click events into the host
// OS. Platform backends are selected once at startup; any backend
// failure downgrades the driver to a harmless fallback instead of
// killing the tracking loop.
package pointer

import (
	"time"

	"github.com/refurboard/refurboard/internal/log"
)

// Backend is the minimal capability a platform pointer implementation
// must provide. Coordinates are device pixels.
type Backend interface {
	Move(x, y int) error
	Press(x, y int) error
	Release(x, y int) error
	Name() string
}

// screenSizer is implemented by backends that need the target screen
// geometry to scale absolute coordinates.
type screenSizer interface {
	SetScreenSize(w, h int)
}

// Driver owns the pointer target state: deadzone suppression of tiny
// moves, click press/release bookkeeping, and the safety auto-release.
type Driver struct {
	backend Backend

	clickHold time.Duration
	minMovePx int

	lastX, lastY  int
	hasTarget     bool
	deadzoneSkips int

	clickActive  bool
	clickStarted time.Time
}

// NewDriver selects the native backend for this OS, falling back to the
// generic one if it cannot initialize.
func NewDriver(clickHoldMS, minMovePx int) *Driver {
	backend, err := newPlatformBackend()
	if err != nil {
		log.Warn("native pointer backend unavailable, using fallback", "error", err)
		backend = newFallbackBackend()
	}
	log.Info("pointer backend selected", "backend", backend.Name())
	return &Driver{
		backend:   backend,
		clickHold: time.Duration(clickHoldMS) * time.Millisecond,
		minMovePx: minMovePx,
	}
}

// NewDriverWithBackend is used by tests and by callers that already
// hold a backend.
func NewDriverWithBackend(b Backend, clickHoldMS, minMovePx int) *Driver {
	return &Driver{
		backend:   b,
		clickHold: time.Duration(clickHoldMS) * time.Millisecond,
		minMovePx: minMovePx,
	}
}

// Move places the cursor at a normalized screen position. Moves smaller
// than the deadzone are suppressed, but after two suppressed non-zero
// deltas the move is forced through so jitter near the threshold cannot
// pin the cursor permanently.
func (d *Driver) Move(nx, ny float64, screenW, screenH int) {
	if sizer, ok := d.backend.(screenSizer); ok {
		sizer.SetScreenSize(screenW, screenH)
	}
	x := int(nx * float64(screenW))
	y := int(ny * float64(screenH))

	if !d.hasTarget {
		d.dispatchMove(x, y)
		d.lastX, d.lastY = x, y
		d.hasTarget = true
		d.deadzoneSkips = 0
		return
	}

	dx := x - d.lastX
	dy := y - d.lastY
	// Radial distance so small diagonals are not overly suppressed.
	if dx*dx+dy*dy > d.minMovePx*d.minMovePx {
		d.dispatchMove(x, y)
		d.lastX, d.lastY = x, y
		d.deadzoneSkips = 0
		return
	}

	if dx != 0 || dy != 0 {
		d.deadzoneSkips++
		if d.deadzoneSkips >= 2 {
			d.dispatchMove(x, y)
			d.lastX, d.lastY = x, y
			d.deadzoneSkips = 0
		}
	}
}

// UpdateClick reconciles the desired click state with the pressed
// button. A press held past the hold limit without release is released
// automatically so a lost pen cannot leave the button stuck down.
func (d *Driver) UpdateClick(pressed bool) {
	now := time.Now()
	switch {
	case pressed && !d.clickActive:
		d.dispatch(d.backend.Press, "press")
		d.clickActive = true
		d.clickStarted = now
	case !pressed && d.clickActive:
		d.dispatch(d.backend.Release, "release")
		d.clickActive = false
	case d.clickActive && now.Sub(d.clickStarted) >= d.clickHold:
		d.dispatch(d.backend.Release, "release")
		d.clickActive = false
	}
}

// Reset clears the deadzone counter. The last target is kept on purpose
// so a release after the pen disappears still lands at the last known
// position rather than (0,0).
func (d *Driver) Reset() {
	d.deadzoneSkips = 0
}

// ClickActive reports whether a press is currently held.
func (d *Driver) ClickActive() bool {
	return d.clickActive
}

// LastTarget returns the most recent device coordinates, if any.
func (d *Driver) LastTarget() (int, int, bool) {
	return d.lastX, d.lastY, d.hasTarget
}

func (d *Driver) dispatchMove(x, y int) {
	if err := d.backend.Move(x, y); err != nil {
		d.downgrade("move", err)
		d.backend.Move(x, y)
	}
}

func (d *Driver) dispatch(op func(int, int) error, name string) {
	if err := op(d.lastX, d.lastY); err != nil {
		d.downgrade(name, err)
	}
}

// downgrade swaps in the fallback backend after a native failure so one
// broken syscall path does not take down tracking.
func (d *Driver) downgrade(op string, err error) {
	if _, already := d.backend.(*fallbackBackend); already {
		return
	}
	log.Warn("pointer backend failed, downgrading to fallback",
		"op", op, "backend", d.backend.Name(), "error", err)
	d.backend = newFallbackBackend()
}
