package detect

import "testing"

func TestAdaptiveThreshold_Hysteresis(t *testing.T) {
	th := NewAdaptiveThreshold(0.5, 0.25)

	steps := []struct {
		signal float64
		want   bool
	}{
		{10, false}, // seeds the baseline, cannot trigger
		{20, true},  // well above high = baseline*1.5
		{15, true},  // below high but above low: held by hysteresis
		{5, false},  // below low: released
	}
	for i, step := range steps {
		if got := th.Evaluate(step.signal); got != step.want {
			t.Errorf("step %d: Evaluate(%v) = %v, want %v (baseline %.3f)",
				i, step.signal, got, step.want, th.Baseline())
		}
	}
}

func TestAdaptiveThreshold_BaselineDecay(t *testing.T) {
	th := NewAdaptiveThreshold(0.65, 0.15)

	th.Evaluate(100)
	if th.Baseline() != 100 {
		t.Fatalf("baseline after seed = %v, want 100", th.Baseline())
	}
	th.Evaluate(200)
	want := 0.98*100 + 0.02*200
	if th.Baseline() != want {
		t.Errorf("baseline after decay = %v, want %v", th.Baseline(), want)
	}
}

func TestAdaptiveThreshold_NoFlickerNearTrigger(t *testing.T) {
	th := NewAdaptiveThreshold(0.5, 0.25)
	th.Evaluate(10)
	th.Evaluate(20) // active

	// Oscillating just under high must not release while above low.
	for i := 0; i < 20; i++ {
		if !th.Evaluate(14) {
			t.Fatalf("iteration %d: released while inside the hysteresis band", i)
		}
	}
}

func TestAdaptiveThreshold_Reset(t *testing.T) {
	th := NewAdaptiveThreshold(0.5, 0.25)
	th.Evaluate(10)
	th.Evaluate(50)
	if !th.Active() {
		t.Fatal("expected active before reset")
	}

	th.Reset()
	if th.Active() {
		t.Error("active after reset")
	}
	if th.Baseline() != 0 {
		t.Error("baseline survived reset")
	}
	// First sample after reset seeds again and cannot trigger.
	if th.Evaluate(1000) {
		t.Error("seed sample triggered a click")
	}
}
