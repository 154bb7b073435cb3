package pointer

import (
	"sync"

	"github.com/refurboard/refurboard/internal/log"
)

// fallbackBackend performs no OS injection. It keeps the driver alive
// on platforms without a native backend and after native failures;
// telemetry still shows where the pointer would be.
type fallbackBackend struct {
	mu      sync.Mutex
	x, y    int
	pressed bool
}

func newFallbackBackend() *fallbackBackend {
	return &fallbackBackend{}
}

func (f *fallbackBackend) Name() string { return "fallback" }

func (f *fallbackBackend) Move(x, y int) error {
	f.mu.Lock()
	f.x, f.y = x, y
	f.mu.Unlock()
	log.Debug("pointer move (fallback)", "x", x, "y", y)
	return nil
}

func (f *fallbackBackend) Press(x, y int) error {
	f.mu.Lock()
	f.x, f.y = x, y
	f.pressed = true
	f.mu.Unlock()
	log.Debug("pointer press (fallback)", "x", x, "y", y)
	return nil
}

func (f *fallbackBackend) Release(x, y int) error {
	f.mu.Lock()
	f.x, f.y = x, y
	f.pressed = false
	f.mu.Unlock()
	log.Debug("pointer release (fallback)", "x", x, "y", y)
	return nil
}
