// Package filter smooths pen positions and gates reacquisition after the
// marker has been lost, so a stray reflection cannot teleport the cursor.
package filter

import "math"

// reacquireGate withholds position output until a candidate has stayed
// put for a number of consecutive samples. A gate with frames == 0 is
// always open.
type reacquireGate struct {
	frames int
	radius float64

	candX, candY float64
	count        int
}

// offer feeds one sample and reports whether the position can be
// trusted yet. The candidate restarts whenever the sample jumps outside
// the radius.
func (g *reacquireGate) offer(x, y float64) bool {
	if g.frames <= 0 {
		return true
	}
	if g.count == 0 {
		g.candX, g.candY = x, y
		g.count = 1
		return g.count >= g.frames
	}
	if math.Hypot(x-g.candX, y-g.candY) <= g.radius {
		g.count++
		g.candX, g.candY = x, y
		return g.count >= g.frames
	}
	g.candX, g.candY = x, y
	g.count = 1
	return g.count >= g.frames
}

func (g *reacquireGate) reset() {
	g.count = 0
}
