package app

import (
	"sync"

	"github.com/refurboard/refurboard/pkg/camera"
	"github.com/refurboard/refurboard/pkg/detect"
)

// FrameSampler runs the blob detector over whatever frame the camera
// source currently holds. The source is swappable at runtime (camera
// selection) and may be nil while no device is open; ok is false until
// a source exists and its first frame lands.
type FrameSampler struct {
	mu       sync.Mutex
	source   camera.Source
	detector *detect.Detector
}

// NewFrameSampler pairs a camera source with a detector. source may be
// nil when no capture device could be opened yet.
func NewFrameSampler(source camera.Source, detector *detect.Detector) *FrameSampler {
	return &FrameSampler{source: source, detector: detector}
}

// SetSource swaps the frame supply. nil detaches the sampler, which
// idles until a working source is set.
func (s *FrameSampler) SetSource(source camera.Source) {
	s.mu.Lock()
	s.source = source
	s.mu.Unlock()
}

// SampleBlobs grabs the latest frame, runs detection and releases the
// frame before returning.
func (s *FrameSampler) SampleBlobs() ([]detect.Blob, bool) {
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()
	if src == nil {
		return nil, false
	}
	frame, ok := src.LatestFrame()
	if !ok {
		return nil, false
	}
	defer frame.Close()
	return s.detector.FindBlobs(frame), true
}
