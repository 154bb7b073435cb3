// refurboard turns a webcam pointed at a projected display into a
// touch input device: an IR or LED pen shows up as a bright blob, the
// calibrated homography maps it to screen coordinates, and the pointer
// driver injects OS cursor events.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	env "github.com/refurboard/refurboard/internal/config"
	"github.com/refurboard/refurboard/internal/log"
	"github.com/refurboard/refurboard/pkg/app"
	"github.com/refurboard/refurboard/pkg/camera"
	"github.com/refurboard/refurboard/pkg/config"
	"github.com/refurboard/refurboard/pkg/detect"
	"github.com/refurboard/refurboard/pkg/pointer"
	"github.com/refurboard/refurboard/pkg/web"
)

func main() {
	var (
		addr       = flag.String("addr", env.ListenAddr(), "HTTP listen address")
		cfgPath    = flag.String("config", env.Path(), "config file path (default: per-user config dir)")
		device     = flag.Int("device", -1, "camera device ID (overrides config)")
		ingestOnly = flag.Bool("ingest-only", false, "no local camera; frames arrive via POST /api/frame")
		logLevel   = flag.String("log", env.LogLevel(), "log level: debug, info, warn, error")
	)
	flag.Parse()
	log.Init(*logLevel)

	path := *cfgPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			log.Error("cannot resolve config directory", "error", err)
			os.Exit(1)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Warn("config load failed, using defaults", "path", path, "error", err)
	}
	if *device >= 0 {
		cfg.Camera.DeviceID = *device
	}
	log.Info("configuration loaded", "path", path,
		"device", cfg.Camera.DeviceID, "calibrated", cfg.Calibration != nil)

	detector := detect.NewDetector(detect.Params{
		MinArea: cfg.Detection.MinBlobArea,
		MaxArea: cfg.Detection.MaxBlobArea,
	})

	sampler := app.NewFrameSampler(nil, detector)

	var (
		ingest   *camera.IngestSource
		streamMu sync.Mutex
		stream   *camera.Stream
	)
	// openCamera swaps the live capture stream under the sampler. A
	// device that fails to open leaves the sampler detached so the
	// tracking loop idles with camera_ok=false instead of crashing.
	openCamera := func(c config.CameraSettings) error {
		streamMu.Lock()
		defer streamMu.Unlock()
		if stream != nil {
			stream.Stop()
			stream = nil
		}
		next := camera.NewStream(c)
		if err := next.Start(); err != nil {
			sampler.SetSource(nil)
			return err
		}
		stream = next
		sampler.SetSource(next)
		return nil
	}

	if *ingestOnly {
		ingest = camera.NewIngestSource(camera.DefaultIngestStaleness)
		sampler.SetSource(ingest)
		log.Info("running in ingest mode, waiting for POST /api/frame")
	} else if err := openCamera(cfg.Camera); err != nil {
		log.Warn("camera unavailable, tracking idles until one is selected",
			"device", cfg.Camera.DeviceID, "error", err)
	}

	driver := pointer.NewDriver(cfg.Detection.ClickHoldMS, cfg.Detection.MinMovePx)
	engine := app.New(path, cfg, sampler, driver)
	if !*ingestOnly {
		engine.OnCameraChange = openCamera
	}

	server := web.NewServer(*addr, engine)
	if ingest != nil {
		server.OnFrame = ingest.Publish
	}
	server.OnListCameras = func() any {
		return camera.EnumerateDevices(8)
	}
	server.StartAsync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go engine.Run(ctx)
	<-ctx.Done()

	log.Info("shutting down")
	engine.Stop()
	if err := server.Shutdown(); err != nil {
		log.Warn("web server shutdown", "error", err)
	}
	if ingest != nil {
		ingest.Close()
	}
	streamMu.Lock()
	if stream != nil {
		stream.Stop()
	}
	streamMu.Unlock()
}
