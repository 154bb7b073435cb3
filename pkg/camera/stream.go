package camera

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/refurboard/refurboard/internal/log"
	"github.com/refurboard/refurboard/pkg/config"
)

// Stream keeps grabbing frames from a local capture device on a
// background goroutine and publishes only the newest one.
type Stream struct {
	settings config.CameraSettings

	mu      sync.Mutex
	frame   gocv.Mat
	hasNew  bool
	capture *gocv.VideoCapture

	stop chan struct{}
	done chan struct{}
}

// NewStream creates a stream for the configured device. Call Start to
// begin grabbing.
func NewStream(settings config.CameraSettings) *Stream {
	return &Stream{settings: settings}
}

// Start opens the device and launches the grab loop. An unopenable
// device is reported as an error; the caller decides whether to retry
// with a different one.
func (s *Stream) Start() error {
	capture, err := gocv.OpenVideoCapture(s.settings.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", s.settings.DeviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open camera %d: device not available", s.settings.DeviceID)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(s.settings.FrameWidth))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(s.settings.FrameHeight))
	capture.Set(gocv.VideoCaptureFPS, float64(s.settings.FPS))

	s.capture = capture
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop()

	log.Info("camera stream started",
		"device", s.settings.DeviceID,
		"width", s.settings.FrameWidth,
		"height", s.settings.FrameHeight,
		"fps", s.settings.FPS)
	return nil
}

func (s *Stream) loop() {
	defer close(s.done)

	fps := s.settings.FPS
	if fps <= 0 {
		fps = 30
	}
	delay := time.Second / time.Duration(fps)

	raw := gocv.NewMat()
	defer raw.Close()

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		if ok := s.capture.Read(&raw); !ok || raw.Empty() {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if s.settings.Mirror {
			gocv.Flip(raw, &raw, 1)
		}

		s.mu.Lock()
		if s.hasNew {
			s.frame.Close()
		}
		s.frame = raw.Clone()
		s.hasNew = true
		s.mu.Unlock()

		time.Sleep(delay)
	}
}

// LatestFrame returns a copy of the most recent frame. ok is false
// until the first frame has been grabbed.
func (s *Stream) LatestFrame() (gocv.Mat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasNew {
		return gocv.Mat{}, false
	}
	return s.frame.Clone(), true
}

// Stop halts the grab loop and releases the device.
func (s *Stream) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil

	s.mu.Lock()
	if s.hasNew {
		s.frame.Close()
		s.hasNew = false
	}
	s.mu.Unlock()

	s.capture.Close()
	s.capture = nil
}
