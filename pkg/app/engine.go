// Package app runs the tracking loop: camera frames in, pointer events
// out, with calibration runs interleaved under suppression.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/refurboard/refurboard/internal/log"
	"github.com/refurboard/refurboard/pkg/calibration"
	"github.com/refurboard/refurboard/pkg/config"
	"github.com/refurboard/refurboard/pkg/detect"
	"github.com/refurboard/refurboard/pkg/filter"
	"github.com/refurboard/refurboard/pkg/geometry"
	"github.com/refurboard/refurboard/pkg/pointer"
	"github.com/refurboard/refurboard/pkg/track"
)

// State labels what the tracking loop is currently doing.
type State string

const (
	StateSearching   State = "searching"
	StateReacquiring State = "reacquiring"
	StateTracking    State = "tracking"
	StateCalibrating State = "calibrating"
)

// Loop cadence and post-calibration quiet period.
const (
	tickInterval        = 10 * time.Millisecond
	calibrationCooldown = 1500 * time.Millisecond
)

// Sampler supplies one detection pass over the latest camera frame.
// The frame-backed implementation lives in sampler.go; tests inject
// synthetic ones.
type Sampler interface {
	SampleBlobs() ([]detect.Blob, bool)
}

// Telemetry is the periodic status snapshot pushed to clients.
type Telemetry struct {
	State            State     `json:"state"`
	PointerX         float64   `json:"pointer_x"`
	PointerY         float64   `json:"pointer_y"`
	BlobIntensity    float64   `json:"blob_intensity"`
	ClickActive      bool      `json:"click_active"`
	Calibrated       bool      `json:"calibrated"`
	CalibrationError float64   `json:"calibration_error"`
	CameraOK         bool      `json:"camera_ok"`
	Baseline         float64   `json:"baseline"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Engine owns the full pipeline between a blob sampler and the pointer
// driver. All mutable state is guarded by one mutex; the hot path holds
// it for the duration of a tick, which is cheap at 100 Hz.
type Engine struct {
	mu sync.Mutex

	cfgPath string
	cfg     *config.AppConfig

	sampler Sampler
	driver  *pointer.Driver

	// OnCameraChange reopens the capture device after a camera settings
	// update. Set once before Run; nil when the process has no camera
	// of its own (remote ingest).
	OnCameraChange func(config.CameraSettings) error

	threshold *detect.AdaptiveThreshold
	euro      *filter.OneEuro
	tracker   *track.PersistenceTracker

	homography *geometry.Homography
	quad       *track.QuadFilter

	frameW, frameH int

	state         State
	calibrating   bool
	cooldownUntil time.Time
	telemetry     Telemetry

	stop chan struct{}
	done chan struct{}
}

// New assembles an engine from its collaborators. The calibration
// profile in cfg, if present, is loaded immediately; a broken profile
// degrades to uncalibrated rather than failing startup.
func New(cfgPath string, cfg *config.AppConfig, sampler Sampler, driver *pointer.Driver) *Engine {
	d := cfg.Detection
	e := &Engine{
		cfgPath:   cfgPath,
		cfg:       cfg,
		sampler:   sampler,
		driver:    driver,
		threshold: detect.NewAdaptiveThreshold(d.Sensitivity, d.Hysteresis),
		euro:      filter.NewOneEuro(d.MinCutoff, d.Beta, d.ReacquireFrames, d.ReacquireRadius),
		tracker:   track.NewPersistenceTracker(d.AssociationRadius, d.PersistenceFrames),
		frameW:    cfg.Camera.FrameWidth,
		frameH:    cfg.Camera.FrameHeight,
		state:     StateSearching,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if cfg.Calibration != nil {
		if err := e.installProfile(cfg.Calibration); err != nil {
			log.Warn("stored calibration profile unusable, starting uncalibrated", "error", err)
			e.cfg.Calibration = nil
		}
	}
	return e
}

// installProfile rebuilds the homography and quad filter from a stored
// profile. Caller holds the lock (or has exclusive access during New).
func (e *Engine) installProfile(p *config.CalibrationProfile) error {
	h, err := geometry.NewHomography(p.CameraPoints(), p.ScreenPoints())
	if err != nil {
		return err
	}
	e.homography = h
	e.quad = track.NewQuadFilter(p.CameraPoints(), track.DefaultQuadMargin)
	return nil
}

// Run drives the tracking loop until Stop or ctx cancellation.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case now := <-ticker.C:
			e.tick(now)
		}
	}
}

// Stop ends the loop and waits for the final tick to finish.
func (e *Engine) Stop() {
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
	<-e.done
}

func (e *Engine) tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.calibrating {
		// Tracking is suppressed, not the camera; carry its last known
		// state instead of claiming it went away.
		e.state = StateCalibrating
		e.publishTelemetry(now, e.telemetry.CameraOK, 0)
		return
	}
	if now.Before(e.cooldownUntil) {
		// Residual target glow right after calibration must not turn
		// into a click at the last corner.
		e.publishTelemetry(now, e.telemetry.CameraOK, 0)
		return
	}

	blobs, cameraOK := e.sampler.SampleBlobs()
	if !cameraOK {
		e.lostPen(now, false)
		return
	}

	blobs = e.filterBlobs(blobs)
	blobs = e.tracker.Update(blobs)
	best, ok := detect.Best(blobs)
	if !ok {
		e.lostPen(now, true)
		return
	}

	clicked := e.threshold.Evaluate(best.Intensity)

	if e.homography == nil {
		e.state = StateSearching
		e.publishTelemetry(now, true, best.Intensity)
		return
	}

	nx, ny := e.homography.ProjectNormalized(best.X, best.Y,
		e.screenW(), e.screenH())
	fx, fy, trusted := e.euro.Update(nx, ny, now)
	if !trusted {
		e.state = StateReacquiring
		e.publishTelemetry(now, true, best.Intensity)
		return
	}

	e.driver.Move(fx, fy, e.screenW(), e.screenH())
	e.driver.UpdateClick(clicked)
	e.state = StateTracking

	e.telemetry.PointerX = fx
	e.telemetry.PointerY = fy
	e.publishTelemetry(now, true, best.Intensity)
}

// lostPen resets per-pen state when no qualifying blob is present. The
// pointer stays where it was; a held click is released.
func (e *Engine) lostPen(now time.Time, cameraOK bool) {
	e.euro.Reset()
	e.driver.Reset()
	e.driver.UpdateClick(false)
	e.state = StateSearching
	e.publishTelemetry(now, cameraOK, 0)
}

// filterBlobs applies the spatial quad and the learned intensity/area
// bands from the active profile, plus the static floor from config.
func (e *Engine) filterBlobs(blobs []detect.Blob) []detect.Blob {
	if e.quad != nil {
		blobs = e.quad.Filter(blobs)
	}
	d := e.cfg.Detection
	p := e.cfg.Calibration
	kept := blobs[:0:0]
	for _, b := range blobs {
		if b.Intensity < d.MinIntensity {
			continue
		}
		if p != nil {
			if b.Intensity < p.LearnedIntensityMin || b.Intensity > p.LearnedIntensityMax {
				continue
			}
			if b.Area < p.LearnedAreaMin || b.Area > p.LearnedAreaMax {
				continue
			}
		}
		kept = append(kept, b)
	}
	return kept
}

func (e *Engine) publishTelemetry(now time.Time, cameraOK bool, intensity float64) {
	e.telemetry.State = e.state
	e.telemetry.BlobIntensity = intensity
	e.telemetry.ClickActive = e.driver.ClickActive()
	e.telemetry.Calibrated = e.homography != nil
	if e.cfg.Calibration != nil {
		e.telemetry.CalibrationError = e.cfg.Calibration.ReprojectionError
	} else {
		e.telemetry.CalibrationError = 0
	}
	e.telemetry.CameraOK = cameraOK
	e.telemetry.Baseline = e.threshold.Baseline()
	e.telemetry.UpdatedAt = now
}

// Snapshot returns the latest telemetry by value.
func (e *Engine) Snapshot() Telemetry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.telemetry
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() config.AppConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.cfg
}

// UpdateDetection applies new detection settings at runtime and
// persists them. Filters are rebuilt so stale tuning cannot linger.
func (e *Engine) UpdateDetection(d config.DetectionSettings) error {
	e.mu.Lock()
	e.cfg.Detection = d
	e.cfg.Validate()
	d = e.cfg.Detection
	e.threshold = detect.NewAdaptiveThreshold(d.Sensitivity, d.Hysteresis)
	e.euro = filter.NewOneEuro(d.MinCutoff, d.Beta, d.ReacquireFrames, d.ReacquireRadius)
	e.tracker = track.NewPersistenceTracker(d.AssociationRadius, d.PersistenceFrames)
	cfg := *e.cfg
	path := e.cfgPath
	e.mu.Unlock()
	return config.Save(path, &cfg)
}

// UpdateCamera switches to a new capture device at runtime. The new
// settings are persisted even when the device fails to open, matching
// a user picking a camera that is unplugged right now; tracking idles
// with camera_ok=false until a working device is selected.
func (e *Engine) UpdateCamera(c config.CameraSettings) error {
	e.mu.Lock()
	e.cfg.Camera = c
	e.cfg.Validate()
	c = e.cfg.Camera
	e.frameW = c.FrameWidth
	e.frameH = c.FrameHeight
	reopen := e.OnCameraChange
	cfg := *e.cfg
	path := e.cfgPath
	e.mu.Unlock()

	if reopen != nil {
		if err := reopen(c); err != nil {
			log.Warn("camera switch failed, tracking idles until a working device is selected",
				"device", c.DeviceID, "error", err)
		}
	}
	return config.Save(path, &cfg)
}

// Calibrate runs a full calibration pass. Tracking is suppressed for
// the duration; on success the new profile replaces the old one
// atomically, is persisted, and a short cooldown holds tracking back.
// A cancelled run leaves the previous profile untouched.
func (e *Engine) Calibrate(ctx context.Context, overlay calibration.Overlay, bounds calibration.ScreenBounds) (*config.CalibrationProfile, error) {
	e.mu.Lock()
	if e.calibrating {
		e.mu.Unlock()
		overlay.Close()
		return nil, errors.New("app: calibration already in progress")
	}
	e.calibrating = true
	prevQuad := e.quad
	minIntensity := e.cfg.Detection.MinIntensity
	threshold := e.threshold
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.calibrating = false
		e.cooldownUntil = time.Now().Add(calibrationCooldown)
		e.mu.Unlock()
	}()

	eng := calibration.NewEngine(e.sampler, overlay, bounds, e.frameW, e.frameH, calibration.Options{
		MinIntensity: minIntensity,
		Quad:         prevQuad,
	})
	// The live threshold goes along so its baseline is rebuilt from the
	// calibration corners instead of carrying pre-run history.
	profile, err := eng.Run(ctx, threshold)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if err := e.installProfile(profile); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.cfg.Calibration = profile
	e.euro.Reset()
	e.tracker.Reset()
	cfg := *e.cfg
	path := e.cfgPath
	e.mu.Unlock()

	if err := config.Save(path, &cfg); err != nil {
		log.Warn("calibration profile not persisted", "error", err)
	}
	return profile, nil
}

// ClearCalibration drops the active profile and persists the removal.
func (e *Engine) ClearCalibration() error {
	e.mu.Lock()
	e.cfg.Calibration = nil
	e.homography = nil
	e.quad = nil
	e.euro.Reset()
	e.tracker.Reset()
	cfg := *e.cfg
	path := e.cfgPath
	e.mu.Unlock()
	return config.Save(path, &cfg)
}

// Calibrating reports whether a calibration run is active.
func (e *Engine) Calibrating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calibrating
}

func (e *Engine) screenW() int {
	if p := e.cfg.Calibration; p != nil && p.ScreenSize[0] > 0 {
		return p.ScreenSize[0]
	}
	return 1920
}

func (e *Engine) screenH() int {
	if p := e.cfg.Calibration; p != nil && p.ScreenSize[1] > 0 {
		return p.ScreenSize[1]
	}
	return 1080
}
