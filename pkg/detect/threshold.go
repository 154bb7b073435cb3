package detect

// AdaptiveThreshold learns a slowly moving brightness baseline and turns
// it into a click trigger with hysteresis, so a pen hovering near the
// trigger level does not produce click/unclick flicker.
//
// The baseline follows the signal with an exponential decay
// (0.98*baseline + 0.02*signal), seeded from the first observation.
// The high trigger sits sensitivity above the baseline; once active, the
// state is held until the signal falls below low = high*(1-hysteresis).
type AdaptiveThreshold struct {
	Sensitivity float64
	Hysteresis  float64

	baseline float64
	active   bool
}

// NewAdaptiveThreshold creates a threshold with an empty baseline.
func NewAdaptiveThreshold(sensitivity, hysteresis float64) *AdaptiveThreshold {
	return &AdaptiveThreshold{Sensitivity: sensitivity, Hysteresis: hysteresis}
}

// Evaluate feeds one intensity sample and reports whether the click
// state is active after the update.
func (t *AdaptiveThreshold) Evaluate(signal float64) bool {
	if t.baseline == 0 {
		t.baseline = signal
	} else {
		t.baseline = 0.98*t.baseline + 0.02*signal
	}

	high := t.baseline * (1 + t.Sensitivity)
	low := high * (1 - t.Hysteresis)

	if t.active {
		t.active = signal >= low
	} else {
		t.active = signal >= high
	}
	return t.active
}

// Active reports the current click state without feeding a sample.
func (t *AdaptiveThreshold) Active() bool {
	return t.active
}

// Baseline exposes the learned background level, mainly for telemetry.
func (t *AdaptiveThreshold) Baseline() float64 {
	return t.baseline
}

// Reset clears the baseline and state. Called between calibration
// targets so a stale baseline does not bias the next corner.
func (t *AdaptiveThreshold) Reset() {
	t.baseline = 0
	t.active = false
}
