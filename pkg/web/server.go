// Package web exposes the tracker over HTTP: status and config
// endpoints, calibration control, a frame ingest route for remote
// cameras, and websocket streams for live telemetry and the
// calibration overlay page.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"

	"github.com/refurboard/refurboard/internal/log"
	"github.com/refurboard/refurboard/pkg/app"
	"github.com/refurboard/refurboard/pkg/calibration"
	"github.com/refurboard/refurboard/pkg/config"
	"github.com/refurboard/refurboard/pkg/hub"
)

// telemetryPeriod is how often the status hub pushes a snapshot.
const telemetryPeriod = 100 * time.Millisecond

// Controller is the slice of the tracking engine the web layer needs.
type Controller interface {
	Snapshot() app.Telemetry
	Config() config.AppConfig
	UpdateDetection(config.DetectionSettings) error
	UpdateCamera(config.CameraSettings) error
	Calibrate(ctx context.Context, overlay calibration.Overlay, bounds calibration.ScreenBounds) (*config.CalibrationProfile, error)
	ClearCalibration() error
	Calibrating() bool
}

// Server is the HTTP/websocket front of the tracker.
type Server struct {
	fiberApp *fiber.App
	addr     string

	engine Controller

	statusHub *hub.Hub

	// OnFrame receives raw JPEG bodies posted to /api/frame. Left nil,
	// the route answers 404.
	OnFrame func(jpeg []byte) error

	// OnListCameras enumerates local capture devices for the settings
	// page. Optional.
	OnListCameras func() any

	overlayMu sync.Mutex
	overlay   *calibration.ChannelOverlay
	calCancel context.CancelFunc

	stopTelemetry chan struct{}
}

// NewServer wires routes against the controller. Call Start to listen.
func NewServer(addr string, engine Controller) *Server {
	s := &Server{
		addr:          addr,
		engine:        engine,
		statusHub:     hub.New("status"),
		stopTelemetry: make(chan struct{}),
	}

	f := fiber.New(fiber.Config{
		AppName:               "refurboard",
		DisableStartupMessage: true,
	})

	// CORS for the overlay page served from another origin during dev
	f.Use(cors.New())

	api := f.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleGetConfig)
	api.Patch("/config", s.handlePatchConfig)
	api.Post("/camera", s.handleSelectCamera)
	api.Get("/calibration", s.handleGetCalibration)
	api.Post("/calibration", s.handleStartCalibration)
	api.Delete("/calibration", s.handleDeleteCalibration)
	api.Post("/frame", s.handleFrame)
	api.Get("/cameras", s.handleListCameras)

	f.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	f.Get("/ws/status", websocket.New(s.handleStatusWS))
	f.Get("/ws/overlay", websocket.New(s.handleOverlayWS))

	// Status and overlay pages are compiled into the binary; routes
	// above win because they register first.
	f.Use("/", filesystem.New(filesystem.Config{
		Root:  http.FS(staticFiles()),
		Index: "index.html",
	}))

	s.fiberApp = f
	return s
}

// Start listens on the configured address and begins the telemetry
// push. Blocks until Shutdown.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.telemetryLoop()
	log.Info("web server listening", "addr", s.addr)
	return s.fiberApp.Listen(s.addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server stopped", "error", err)
		}
	}()
}

// Shutdown stops the listener and the telemetry loop. A calibration in
// flight is cancelled.
func (s *Server) Shutdown() error {
	select {
	case <-s.stopTelemetry:
	default:
		close(s.stopTelemetry)
	}
	s.overlayMu.Lock()
	if s.calCancel != nil {
		s.calCancel()
	}
	s.overlayMu.Unlock()
	return s.fiberApp.Shutdown()
}

// telemetryLoop pushes engine snapshots to all status clients.
func (s *Server) telemetryLoop() {
	ticker := time.NewTicker(telemetryPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopTelemetry:
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			s.statusHub.BroadcastJSON(s.engine.Snapshot())
		}
	}
}
