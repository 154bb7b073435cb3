// Package config persists camera, detection and calibration settings as
// a JSON record in the per-user config directory.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Filename is the on-disk name of the config record.
const Filename = "refurboard.config.json"

// CameraSettings selects and shapes the local capture device.
type CameraSettings struct {
	DeviceID    int  `json:"device_id"`
	FrameWidth  int  `json:"frame_width"`
	FrameHeight int  `json:"frame_height"`
	FPS         int  `json:"fps"`
	Mirror      bool `json:"mirror"`
}

// DetectionSettings tunes blob extraction, click detection and motion
// filtering.
type DetectionSettings struct {
	Sensitivity  float64 `json:"sensitivity"`
	Hysteresis   float64 `json:"hysteresis"`
	Smoothing    float64 `json:"smoothing"`
	ClickHoldMS  int     `json:"click_hold_ms"`
	MinBlobArea  float64 `json:"min_blob_area"`
	MaxBlobArea  float64 `json:"max_blob_area"`
	MinIntensity float64 `json:"min_intensity"`
	MinMovePx    int     `json:"min_move_px"`

	// One-Euro position filter
	MinCutoff       float64 `json:"min_cutoff"`
	Beta            float64 `json:"beta"`
	ReacquireFrames int     `json:"reacquire_frames"`
	ReacquireRadius float64 `json:"reacquire_radius"`

	// Temporal debounce
	PersistenceFrames int     `json:"persistence_frames"`
	AssociationRadius float64 `json:"association_radius"`
}

// CalibrationPoint records one corner correspondence.
type CalibrationPoint struct {
	Name             string     `json:"name"`
	CameraPx         [2]float64 `json:"camera_px"`
	ScreenPx         [2]float64 `json:"screen_px"`
	NormalizedScreen [2]float64 `json:"normalized_screen"`
	Intensity        float64    `json:"intensity"`
	Area             float64    `json:"area"`
}

// CalibrationProfile is the atomic result of a successful calibration
// run: either absent, or exactly four points from which a valid
// homography can be rebuilt.
type CalibrationProfile struct {
	ScreenSize   [2]int  `json:"screen_size"`
	ScreenOrigin [2]int  `json:"screen_origin"`
	CompletedAt  float64 `json:"completed_at,omitempty"`

	ReprojectionError float64 `json:"reprojection_error"`

	Points [4]CalibrationPoint `json:"points"`

	LearnedIntensityMin float64 `json:"learned_intensity_min"`
	LearnedIntensityMax float64 `json:"learned_intensity_max"`
	LearnedAreaMin      float64 `json:"learned_area_min"`
	LearnedAreaMax      float64 `json:"learned_area_max"`

	// Camera rotation relative to the display: 0, 90, 180 or 270° CW.
	CameraOrientation int `json:"camera_orientation"`
}

// CameraPoints returns the four camera-space corner positions in
// collection order.
func (p *CalibrationProfile) CameraPoints() [4][2]float64 {
	var out [4][2]float64
	for i, pt := range p.Points {
		out[i] = pt.CameraPx
	}
	return out
}

// ScreenPoints returns the four screen-space targets in collection order.
func (p *CalibrationProfile) ScreenPoints() [4][2]float64 {
	var out [4][2]float64
	for i, pt := range p.Points {
		out[i] = pt.ScreenPx
	}
	return out
}

// AppConfig is the full persisted record.
type AppConfig struct {
	Camera      CameraSettings      `json:"camera"`
	Detection   DetectionSettings   `json:"detection"`
	Calibration *CalibrationProfile `json:"calibration,omitempty"`
}

// Default returns the stock configuration for a 720p webcam and an IR
// pen LED.
func Default() *AppConfig {
	return &AppConfig{
		Camera: CameraSettings{
			DeviceID:    0,
			FrameWidth:  1280,
			FrameHeight: 720,
			FPS:         30,
		},
		Detection: DetectionSettings{
			Sensitivity:       0.65,
			Hysteresis:        0.15,
			Smoothing:         0.25,
			ClickHoldMS:       120,
			MinBlobArea:       5,
			MaxBlobArea:       500,
			MinIntensity:      4.0,
			MinMovePx:         5,
			MinCutoff:         1.0,
			Beta:              0.007,
			ReacquireFrames:   3,
			ReacquireRadius:   0.35,
			PersistenceFrames: 3,
			AssociationRadius: 20,
		},
	}
}

// Validate clamps values to safe ranges.
func (c *AppConfig) Validate() {
	d := &c.Detection
	if d.MinBlobArea <= 0 {
		d.MinBlobArea = 5
	}
	if d.MaxBlobArea <= d.MinBlobArea {
		d.MaxBlobArea = d.MinBlobArea + 495
	}
	if d.Smoothing <= 0 || d.Smoothing > 1 {
		d.Smoothing = 0.25
	}
	if d.MinCutoff <= 0 {
		d.MinCutoff = 1.0
	}
	if d.ReacquireFrames < 0 {
		d.ReacquireFrames = 0
	}
	if d.AssociationRadius <= 0 {
		d.AssociationRadius = 20
	}
	if d.PersistenceFrames < 1 {
		d.PersistenceFrames = 1
	}
	if c.Camera.FPS <= 0 {
		c.Camera.FPS = 30
	}
}

// DefaultPath returns the per-user config file location, creating the
// parent directory if needed.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "refurboard")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, Filename), nil
}

// Load reads the record at path. A missing file yields defaults, which
// are written back so the file exists from first run on.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return Default(), err
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return Default(), err
	}
	cfg.Validate()
	return cfg, nil
}

// Save atomically rewrites the record: the new content lands in a temp
// file first and replaces the old one by rename, so a crash mid-write
// never leaves a torn config behind.
func Save(path string, cfg *AppConfig) error {
	cfg.Validate()
	if cfg.Calibration != nil && cfg.Calibration.CompletedAt == 0 {
		cfg.Calibration.CompletedAt = float64(time.Now().Unix())
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
