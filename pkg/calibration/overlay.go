package calibration

import "sync"

// TargetCommand tells the overlay surface what to draw.
type TargetCommand struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Label string `json:"label"`
	Index int    `json:"index"` // 1-based sequence position
}

// Overlay is the display surface the engine drives. The engine only
// sends target commands and a close; the surface reports cancellation
// at most once. Rendering mechanics live with the consumer (a browser
// page over the websocket transport, in this repo).
type Overlay interface {
	ShowTarget(cmd TargetCommand)
	Cancelled() bool
	Close()
}

// ChannelOverlay bridges the engine to a remote surface over plain
// channels: commands out, one cancellation in. The web layer attaches
// its websocket pump to both ends.
type ChannelOverlay struct {
	commands chan TargetCommand

	mu        sync.Mutex
	cancelled bool
	closed    bool
}

// NewChannelOverlay creates an overlay bridge with a small command
// buffer so the engine never blocks on a slow surface.
func NewChannelOverlay() *ChannelOverlay {
	return &ChannelOverlay{commands: make(chan TargetCommand, 8)}
}

// Commands returns the stream of display commands. The channel is
// closed when the engine tears the overlay down.
func (o *ChannelOverlay) Commands() <-chan TargetCommand {
	return o.commands
}

// ShowTarget queues a display command, dropping it if the surface has
// fallen behind; only the latest target matters.
func (o *ChannelOverlay) ShowTarget(cmd TargetCommand) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.commands <- cmd:
	default:
	}
}

// Cancel records the surface's cancellation. Safe to call repeatedly.
func (o *ChannelOverlay) Cancel() {
	o.mu.Lock()
	o.cancelled = true
	o.mu.Unlock()
}

// Cancelled reports whether the surface asked to abort.
func (o *ChannelOverlay) Cancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

// Close tears down the command stream. Runs in every engine exit path.
func (o *ChannelOverlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.commands)
	}
}
