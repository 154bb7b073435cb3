package web

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/refurboard/refurboard/internal/log"
	"github.com/refurboard/refurboard/pkg/calibration"
	"github.com/refurboard/refurboard/pkg/hub"
)

// handleStatus returns the latest telemetry snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.engine.Snapshot())
}

// handleGetConfig returns the full persisted configuration
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.engine.Config())
}

// handlePatchConfig updates detection settings. The body is merged
// over the current values, so clients may send only the fields they
// change.
func (s *Server) handlePatchConfig(c *fiber.Ctx) error {
	settings := s.engine.Config().Detection
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid detection settings: " + err.Error(),
		})
	}
	if err := s.engine.UpdateDetection(settings); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.engine.Config().Detection)
}

// handleSelectCamera switches capture devices at runtime. The body is
// merged over the current camera settings; a device that fails to open
// is still persisted and tracking idles until a working one is picked.
func (s *Server) handleSelectCamera(c *fiber.Ctx) error {
	settings := s.engine.Config().Camera
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid camera settings: " + err.Error(),
		})
	}
	if err := s.engine.UpdateCamera(settings); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.engine.Config().Camera)
}

// handleGetCalibration returns the active profile, or 404 when the
// tracker has never been calibrated.
func (s *Server) handleGetCalibration(c *fiber.Ctx) error {
	cfg := s.engine.Config()
	if cfg.Calibration == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not calibrated",
		})
	}
	return c.JSON(cfg.Calibration)
}

// CalibrationRequest carries the display geometry the overlay page
// reports about itself.
type CalibrationRequest struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	OriginX int `json:"origin_x"`
	OriginY int `json:"origin_y"`
}

// handleStartCalibration kicks off a calibration run in the
// background. The overlay page then connects to /ws/overlay to
// receive target commands.
func (s *Server) handleStartCalibration(c *fiber.Ctx) error {
	var req CalibrationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid calibration request: " + err.Error(),
		})
	}
	if req.Width <= 0 || req.Height <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "screen width and height are required",
		})
	}
	if s.engine.Calibrating() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "calibration already in progress",
		})
	}

	overlay := calibration.NewChannelOverlay()
	ctx, cancel := context.WithCancel(context.Background())

	s.overlayMu.Lock()
	s.overlay = overlay
	s.calCancel = cancel
	s.overlayMu.Unlock()

	bounds := calibration.ScreenBounds{
		Width:   req.Width,
		Height:  req.Height,
		OriginX: req.OriginX,
		OriginY: req.OriginY,
	}
	go func() {
		defer cancel()
		profile, err := s.engine.Calibrate(ctx, overlay, bounds)
		s.overlayMu.Lock()
		s.overlay = nil
		s.calCancel = nil
		s.overlayMu.Unlock()

		switch {
		case errors.Is(err, calibration.ErrCancelled):
			log.Info("calibration cancelled")
		case err != nil:
			log.Error("calibration failed", "error", err)
		default:
			log.Info("calibration stored", "reprojection_error", profile.ReprojectionError)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"started": true})
}

// handleDeleteCalibration cancels a run in progress, otherwise drops
// the stored profile.
func (s *Server) handleDeleteCalibration(c *fiber.Ctx) error {
	if s.engine.Calibrating() {
		s.overlayMu.Lock()
		if s.overlay != nil {
			s.overlay.Cancel()
		}
		if s.calCancel != nil {
			s.calCancel()
		}
		s.overlayMu.Unlock()
		return c.JSON(fiber.Map{"cancelled": true})
	}
	if err := s.engine.ClearCalibration(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"cleared": true})
}

// handleFrame accepts a JPEG frame from a remote camera (for example
// a phone pointed at the whiteboard when no local webcam exists).
func (s *Server) handleFrame(c *fiber.Ctx) error {
	if s.OnFrame == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "frame ingest not enabled",
		})
	}
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "empty frame",
		})
	}
	if err := s.OnFrame(body); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleListCameras enumerates local capture devices
func (s *Server) handleListCameras(c *fiber.Ctx) error {
	if s.OnListCameras == nil {
		return c.JSON([]any{})
	}
	return c.JSON(s.OnListCameras())
}

// handleStatusWS streams telemetry snapshots
func (s *Server) handleStatusWS(c *websocket.Conn) {
	// Send the current snapshot immediately so the page renders before
	// the first periodic push.
	if err := c.WriteJSON(s.engine.Snapshot()); err != nil {
		c.Close()
		return
	}
	client := hub.NewClient(s.statusHub, c)
	client.Run()
}

// handleOverlayWS serves the calibration overlay page: target commands
// out, a single "cancel" text message in. The socket closes when the
// run ends.
func (s *Server) handleOverlayWS(c *websocket.Conn) {
	s.overlayMu.Lock()
	overlay := s.overlay
	s.overlayMu.Unlock()
	if overlay == nil {
		c.WriteJSON(fiber.Map{"error": "no calibration in progress"})
		c.Close()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			if m := string(msg); m == "cancel" || m == "cancelled" {
				overlay.Cancel()
				return
			}
		}
	}()

	for {
		select {
		case cmd, ok := <-overlay.Commands():
			if !ok {
				c.WriteMessage(websocket.CloseMessage, []byte{})
				c.Close()
				<-done
				return
			}
			if err := c.WriteJSON(cmd); err != nil {
				// Surface gone mid-run: treat as cancellation so the
				// engine does not dwell forever on an invisible target.
				overlay.Cancel()
				c.Close()
				<-done
				return
			}
		case <-done:
			c.Close()
			return
		}
	}
}
