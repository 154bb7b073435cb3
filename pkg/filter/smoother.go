package filter

// Smoother is a fixed-factor exponential blend. It trades a constant
// amount of lag for jitter suppression regardless of pen speed; the
// OneEuro filter is the adaptive replacement, this one remains for
// simple setups and as the reference behavior for tests.
type Smoother struct {
	Factor float64

	gate   reacquireGate
	hasVal bool
	x, y   float64
}

// NewSmoother creates a smoother. reacquireFrames == 0 disables the
// reacquisition gate; radius is in the same units as the samples.
func NewSmoother(factor float64, reacquireFrames int, reacquireRadius float64) *Smoother {
	return &Smoother{
		Factor: factor,
		gate:   reacquireGate{frames: reacquireFrames, radius: reacquireRadius},
	}
}

// Update blends one sample into the running value. ok is false while the
// reacquisition gate is still holding the sample back.
func (s *Smoother) Update(x, y float64) (float64, float64, bool) {
	if !s.hasVal {
		if !s.gate.offer(x, y) {
			return 0, 0, false
		}
		s.x, s.y = x, y
		s.hasVal = true
		return s.x, s.y, true
	}
	s.x = (1-s.Factor)*s.x + s.Factor*x
	s.y = (1-s.Factor)*s.y + s.Factor*y
	return s.x, s.y, true
}

// Reset drops the running value and restarts the gate.
func (s *Smoother) Reset() {
	s.hasVal = false
	s.gate.reset()
}
