package camera

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// IngestSource accepts frames pushed over the network (a phone camera
// posting JPEGs) and exposes them through the same Source contract as a
// local device. Frames older than the staleness window are withheld so
// a disconnected sender does not freeze the pointer on its last frame.
type IngestSource struct {
	staleAfter time.Duration

	mu       sync.Mutex
	frame    gocv.Mat
	hasFrame bool
	received time.Time
}

// DefaultIngestStaleness is the window after which a pushed frame is
// considered dead. Remote senders post at 15-30 fps; half a second of
// silence means the sender is gone.
const DefaultIngestStaleness = 500 * time.Millisecond

// NewIngestSource creates an ingest source. staleAfter <= 0 disables
// the staleness check.
func NewIngestSource(staleAfter time.Duration) *IngestSource {
	return &IngestSource{staleAfter: staleAfter}
}

// Publish decodes one JPEG frame and makes it the latest.
func (s *IngestSource) Publish(jpeg []byte) error {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return fmt.Errorf("decode ingest frame: %w", err)
	}
	if img.Empty() {
		img.Close()
		return fmt.Errorf("decode ingest frame: empty image")
	}

	s.mu.Lock()
	if s.hasFrame {
		s.frame.Close()
	}
	s.frame = img
	s.hasFrame = true
	s.received = time.Now()
	s.mu.Unlock()
	return nil
}

// LatestFrame returns a copy of the most recently published frame.
func (s *IngestSource) LatestFrame() (gocv.Mat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFrame {
		return gocv.Mat{}, false
	}
	if s.staleAfter > 0 && time.Since(s.received) > s.staleAfter {
		return gocv.Mat{}, false
	}
	return s.frame.Clone(), true
}

// Close releases the held frame.
func (s *IngestSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasFrame {
		s.frame.Close()
		s.hasFrame = false
	}
}
