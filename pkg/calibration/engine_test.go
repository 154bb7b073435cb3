package calibration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refurboard/refurboard/pkg/detect"
	"github.com/refurboard/refurboard/pkg/track"
)

// penSampler simulates a user pointing the pen at whatever target the
// overlay currently shows.
type penSampler struct {
	mu      sync.Mutex
	current int // index of the shown target, -1 before the first
	spots   [4]detect.Blob
}

func (s *penSampler) setTarget(index int) {
	s.mu.Lock()
	s.current = index
	s.mu.Unlock()
}

func (s *penSampler) SampleBlobs() ([]detect.Blob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 {
		return nil, true
	}
	return []detect.Blob{s.spots[s.current]}, true
}

// scriptedOverlay records target commands and forwards them to the
// sampler, closing the loop the way a human would.
type scriptedOverlay struct {
	mu        sync.Mutex
	commands  []TargetCommand
	cancelled bool
	closed    bool
	onShow    func(cmd TargetCommand)
}

func (o *scriptedOverlay) ShowTarget(cmd TargetCommand) {
	o.mu.Lock()
	o.commands = append(o.commands, cmd)
	o.mu.Unlock()
	if o.onShow != nil {
		o.onShow(cmd)
	}
}

func (o *scriptedOverlay) Cancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

func (o *scriptedOverlay) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
}

func newPenFixture() (*penSampler, *scriptedOverlay) {
	sampler := &penSampler{
		current: -1,
		spots: [4]detect.Blob{
			{X: 100, Y: 80, Intensity: 100, Area: 12},
			{X: 1180, Y: 80, Intensity: 110, Area: 14},
			{X: 1180, Y: 640, Intensity: 90, Area: 10},
			{X: 100, Y: 640, Intensity: 100, Area: 12},
		},
	}
	overlay := &scriptedOverlay{}
	overlay.onShow = func(cmd TargetCommand) {
		sampler.setTarget(cmd.Index - 1)
	}
	return sampler, overlay
}

func TestEngine_FullRun(t *testing.T) {
	sampler, overlay := newPenFixture()
	bounds := ScreenBounds{Width: 1920, Height: 1080}
	eng := NewEngine(sampler, overlay, bounds, 1280, 720, Options{DwellFrames: 2})

	profile, err := eng.Run(context.Background(), detect.NewAdaptiveThreshold(0.65, 0.15))
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.True(t, overlay.closed, "overlay must be torn down on success")
	require.Len(t, overlay.commands, 4)
	assert.Equal(t, "top_left", overlay.commands[0].Label)
	assert.Equal(t, "bottom_left", overlay.commands[3].Label)

	// Targets sit 3.5% inside the screen edges.
	assert.Equal(t, int(1920*TargetOffset), overlay.commands[0].X)
	assert.Equal(t, int(1080*TargetOffset), overlay.commands[0].Y)

	assert.Equal(t, [2]int{1920, 1080}, profile.ScreenSize)
	assert.InDelta(t, 0, profile.ReprojectionError, 1e-6,
		"exact 4-point solve reprojects exactly")
	assert.Equal(t, 0, profile.CameraOrientation)

	// Learned bands around intensities {100, 110, 90, 100}.
	assert.InDelta(t, 79.6, profile.LearnedIntensityMin, 0.1)
	assert.InDelta(t, 124.5, profile.LearnedIntensityMax, 0.1)
	assert.GreaterOrEqual(t, profile.LearnedAreaMin, 3.0)

	for i, pt := range profile.Points {
		assert.Equal(t, TargetOrder[i].Name, pt.Name, "point %d", i)
		assert.InDelta(t, sampler.spots[i].X, pt.CameraPx[0], 1e-9)
	}
}

func TestEngine_RotatedCameraOrientation(t *testing.T) {
	sampler, overlay := newPenFixture()
	// Top-left target lands in the camera's upper-right quadrant.
	sampler.spots[0] = detect.Blob{X: 1180, Y: 80, Intensity: 100, Area: 12}
	sampler.spots[1] = detect.Blob{X: 1180, Y: 640, Intensity: 100, Area: 12}
	sampler.spots[2] = detect.Blob{X: 100, Y: 640, Intensity: 100, Area: 12}
	sampler.spots[3] = detect.Blob{X: 100, Y: 80, Intensity: 100, Area: 12}

	eng := NewEngine(sampler, overlay, ScreenBounds{Width: 1920, Height: 1080},
		1280, 720, Options{DwellFrames: 2})
	profile, err := eng.Run(context.Background(), detect.NewAdaptiveThreshold(0.65, 0.15))
	require.NoError(t, err)
	assert.Equal(t, 90, profile.CameraOrientation)
}

func TestEngine_OverlayCancellation(t *testing.T) {
	sampler, overlay := newPenFixture()
	overlay.onShow = func(cmd TargetCommand) {
		if cmd.Index == 2 {
			overlay.mu.Lock()
			overlay.cancelled = true
			overlay.mu.Unlock()
			return
		}
		sampler.setTarget(cmd.Index - 1)
	}

	eng := NewEngine(sampler, overlay, ScreenBounds{Width: 1920, Height: 1080},
		1280, 720, Options{DwellFrames: 2})
	_, err := eng.Run(context.Background(), detect.NewAdaptiveThreshold(0.65, 0.15))
	require.ErrorIs(t, err, ErrCancelled)
	assert.True(t, overlay.closed, "overlay must be torn down on cancel")
}

func TestEngine_ContextCancellation(t *testing.T) {
	sampler, overlay := newPenFixture()
	sampler.spots[1].Intensity = 0 // pen never reaches the second target

	eng := NewEngine(sampler, overlay, ScreenBounds{Width: 1920, Height: 1080},
		1280, 720, Options{DwellFrames: 2, MinIntensity: 4.0})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := eng.Run(ctx, detect.NewAdaptiveThreshold(0.65, 0.15))
	require.ErrorIs(t, err, ErrCancelled)
	assert.True(t, overlay.closed)
}

func TestEngine_EligibleFiltering(t *testing.T) {
	quad := track.NewQuadFilter(
		[4][2]float64{{50, 50}, {1200, 50}, {1200, 700}, {50, 700}}, 0)
	eng := NewEngine(nil, nil, ScreenBounds{}, 1280, 720,
		Options{MinIntensity: 4.0, Quad: quad})

	blobs := []detect.Blob{
		{X: 100, Y: 100, Intensity: 50},  // good
		{X: 100, Y: 200, Intensity: 1},   // too dim
		{X: 5000, Y: 100, Intensity: 50}, // outside quad
		{X: 310, Y: 305, Intensity: 50},  // too close to collected
	}
	existing := [][2]float64{{300, 300}}

	kept := eng.eligible(blobs, existing)
	require.Len(t, kept, 1)
	assert.Equal(t, 100.0, kept[0].X)
	assert.Equal(t, 100.0, kept[0].Y)
}

func TestChannelOverlay(t *testing.T) {
	o := NewChannelOverlay()

	o.ShowTarget(TargetCommand{Label: "top_left", Index: 1})
	cmd := <-o.Commands()
	assert.Equal(t, "top_left", cmd.Label)

	assert.False(t, o.Cancelled())
	o.Cancel()
	assert.True(t, o.Cancelled())

	o.Close()
	_, open := <-o.Commands()
	assert.False(t, open, "command channel must close with the overlay")

	// Idempotent: closing or showing after close must not panic.
	o.Close()
	o.ShowTarget(TargetCommand{})
}
