package calibration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/refurboard/refurboard/internal/log"
	"github.com/refurboard/refurboard/pkg/config"
	"github.com/refurboard/refurboard/pkg/detect"
	"github.com/refurboard/refurboard/pkg/geometry"
	"github.com/refurboard/refurboard/pkg/track"
)

// ErrCancelled is returned when the user aborts the run. Partially
// collected points are discarded; any prior profile stays in force.
var ErrCancelled = errors.New("calibration: cancelled")

// Tunables for point collection.
const (
	DefaultDwellFrames = 7
	settleRadiusPx     = 6.0
	minPointDistance   = 40.0
	samplePause        = 10 * time.Millisecond
)

// BlobSampler supplies one detection pass over the latest camera frame.
// ok is false while no frame is available yet.
type BlobSampler interface {
	SampleBlobs() ([]detect.Blob, bool)
}

// Engine collects the four corner correspondences and fits the profile.
type Engine struct {
	sampler BlobSampler
	overlay Overlay

	bounds       ScreenBounds
	frameW       int
	frameH       int
	dwellFrames  int
	minIntensity float64

	// Optional: restricts samples to the previous calibration's region.
	quad *track.QuadFilter
}

// Options configure an Engine beyond its required collaborators.
type Options struct {
	DwellFrames  int
	MinIntensity float64
	Quad         *track.QuadFilter
}

// NewEngine builds an engine for one calibration run. frameW/frameH are
// the camera resolution, used for orientation detection.
func NewEngine(sampler BlobSampler, overlay Overlay, bounds ScreenBounds, frameW, frameH int, opts Options) *Engine {
	dwell := opts.DwellFrames
	if dwell <= 0 {
		dwell = DefaultDwellFrames
	}
	return &Engine{
		sampler:      sampler,
		overlay:      overlay,
		bounds:       bounds,
		frameW:       frameW,
		frameH:       frameH,
		dwellFrames:  dwell,
		minIntensity: opts.MinIntensity,
		quad:         opts.Quad,
	}
}

// collected is the dwell-averaged observation for one corner.
type collected struct {
	cameraPx  [2]float64
	intensity float64
	area      float64
}

// Run walks the four targets and produces a complete profile. The
// overlay is torn down on every exit path. Cancellation (overlay or
// context) surfaces as ErrCancelled.
func (e *Engine) Run(ctx context.Context, threshold *detect.AdaptiveThreshold) (*config.CalibrationProfile, error) {
	defer e.overlay.Close()

	var (
		cameraPts [4][2]float64
		screenPts [4][2]float64
		points    [4]config.CalibrationPoint
		samples   [4]collected
	)

	for i, target := range TargetOrder {
		threshold.Reset()

		screenX := float64(e.bounds.Width) * target.X
		screenY := float64(e.bounds.Height) * target.Y
		e.overlay.ShowTarget(TargetCommand{
			X:     int(screenX),
			Y:     int(screenY),
			Label: target.Name,
			Index: i + 1,
		})

		got, err := e.collectPoint(ctx, cameraPts[:i])
		if err != nil {
			return nil, err
		}
		log.Info("calibration point locked",
			"target", target.Name,
			"camera_x", got.cameraPx[0], "camera_y", got.cameraPx[1],
			"intensity", got.intensity, "area", got.area)

		cameraPts[i] = got.cameraPx
		screenPts[i] = [2]float64{screenX, screenY}
		samples[i] = got
		points[i] = config.CalibrationPoint{
			Name:             target.Name,
			CameraPx:         got.cameraPx,
			ScreenPx:         screenPts[i],
			NormalizedScreen: [2]float64{target.X, target.Y},
			Intensity:        got.intensity,
			Area:             got.area,
		}
	}

	h, err := geometry.NewHomography(cameraPts, screenPts)
	if err != nil {
		return nil, fmt.Errorf("calibration: fit homography: %w", err)
	}
	reprojection := h.ReprojectionError(cameraPts, screenPts)

	intensityMin, intensityMax, areaMin, areaMax := learnThresholds(samples)
	orientation := geometry.DetectOrientation(cameraPts[0], e.frameW, e.frameH)

	profile := &config.CalibrationProfile{
		ScreenSize:          [2]int{e.bounds.Width, e.bounds.Height},
		ScreenOrigin:        [2]int{e.bounds.OriginX, e.bounds.OriginY},
		ReprojectionError:   reprojection,
		Points:              points,
		LearnedIntensityMin: intensityMin,
		LearnedIntensityMax: intensityMax,
		LearnedAreaMin:      areaMin,
		LearnedAreaMax:      areaMax,
		CameraOrientation:   orientation,
	}

	log.Info("calibration complete",
		"reprojection_error", reprojection,
		"orientation_degrees", orientation,
		"intensity_range", fmt.Sprintf("[%.1f, %.1f]", intensityMin, intensityMax),
		"area_range", fmt.Sprintf("[%.1f, %.1f]", areaMin, areaMax))
	return profile, nil
}

// collectPoint waits until the best blob dwells within a small radius
// for dwellFrames consecutive samples, then returns the averaged
// observation. Already-collected corners repel candidates so the same
// stray source cannot lock twice.
func (e *Engine) collectPoint(ctx context.Context, existing [][2]float64) (collected, error) {
	var (
		dwell            int
		reference        [2]float64
		hasRef           bool
		intensitySamples []float64
		areaSamples      []float64
	)
	reset := func() {
		dwell = 0
		hasRef = false
		intensitySamples = intensitySamples[:0]
		areaSamples = areaSamples[:0]
	}

	for {
		if e.overlay.Cancelled() {
			return collected{}, ErrCancelled
		}
		select {
		case <-ctx.Done():
			return collected{}, ErrCancelled
		default:
		}

		blobs, ok := e.sampler.SampleBlobs()
		if !ok {
			time.Sleep(samplePause)
			continue
		}

		blobs = e.eligible(blobs, existing)
		if len(blobs) == 0 {
			reset()
			time.Sleep(samplePause)
			continue
		}
		best := blobs[0]

		if !hasRef {
			reference = [2]float64{best.X, best.Y}
			hasRef = true
			dwell = 1
			intensitySamples = append(intensitySamples[:0], best.Intensity)
			areaSamples = append(areaSamples[:0], best.Area)
		} else {
			dx := best.X - reference[0]
			dy := best.Y - reference[1]
			if math.Hypot(dx, dy) <= settleRadiusPx {
				dwell++
				intensitySamples = append(intensitySamples, best.Intensity)
				areaSamples = append(areaSamples, best.Area)
				// Nudge toward the new sample so the lock point follows
				// the user's aim instead of the first noisy frame.
				reference[0] += dx * 0.5
				reference[1] += dy * 0.5
			} else {
				reference = [2]float64{best.X, best.Y}
				dwell = 1
				intensitySamples = append(intensitySamples[:0], best.Intensity)
				areaSamples = append(areaSamples[:0], best.Area)
			}
		}

		if dwell >= e.dwellFrames {
			return collected{
				cameraPx:  reference,
				intensity: stat.Mean(intensitySamples, nil),
				area:      stat.Mean(areaSamples, nil),
			}, nil
		}
		time.Sleep(samplePause)
	}
}

// eligible filters one frame's blobs down to calibration candidates.
func (e *Engine) eligible(blobs []detect.Blob, existing [][2]float64) []detect.Blob {
	kept := blobs[:0:0]
	for _, b := range blobs {
		if e.minIntensity > 0 && b.Intensity < e.minIntensity {
			continue
		}
		if e.quad != nil && !e.quad.Contains(b.X, b.Y) {
			continue
		}
		if tooClose(b, existing) {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

func tooClose(b detect.Blob, existing [][2]float64) bool {
	for _, p := range existing {
		if math.Hypot(b.X-p[0], b.Y-p[1]) < minPointDistance {
			return true
		}
	}
	return false
}

// learnThresholds derives the detection bands from the dwell-averaged
// corner samples: mean − 2.5σ (floored) to mean + 3σ.
func learnThresholds(samples [4]collected) (intMin, intMax, areaMin, areaMax float64) {
	intensities := make([]float64, 4)
	areas := make([]float64, 4)
	for i, s := range samples {
		intensities[i] = s.intensity
		areas[i] = s.area
	}

	intMean := stat.Mean(intensities, nil)
	intStd := stat.StdDev(intensities, nil)
	areaMean := stat.Mean(areas, nil)
	areaStd := stat.StdDev(areas, nil)

	intMin = math.Max(1.0, intMean-2.5*intStd)
	intMax = intMean + 3.0*intStd
	areaMin = math.Max(3.0, areaMean-2.5*areaStd)
	areaMax = areaMean + 3.0*areaStd
	return intMin, intMax, areaMin, areaMax
}
