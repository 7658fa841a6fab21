package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/occupancy.report/internal/store"
	"github.com/banshee-data/occupancy.report/internal/vision"
	"github.com/banshee-data/occupancy.report/internal/vision/capture"
	"github.com/banshee-data/occupancy.report/internal/vision/detect"
	"github.com/banshee-data/occupancy.report/internal/vision/monitor"
)

var (
	configPath = flag.String("config", "cameras.json", "Path to camera configuration file")
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "occupancy.db", "SQLite database path (empty disables persistence)")
	devMode    = flag.Bool("dev", false, "Run all cameras against synthetic capture devices")
	cycle      = flag.Duration("cycle", vision.DefaultCyclePeriod, "Pipeline cycle period")
	enableDiag = flag.Bool("diag", false, "Enable diagnostic logging")
	enableTrac = flag.Bool("trace", false, "Enable trace logging (implies -diag)")
)

// newDevice picks the capture backend for a camera: synthetic frames in
// dev mode or for an explicit "synthetic" source, otherwise a real
// camera device.
func newDevice(cam vision.CameraConfig, dev bool) vision.CaptureDevice {
	if dev || cam.Source == "synthetic" {
		return capture.NewSyntheticDevice(capture.DefaultSyntheticConfig(
			cam.Resolution.Width, cam.Resolution.Height, cam.FPS))
	}
	return capture.NewCameraDevice(cam.Source, cam.Resolution.Width, cam.Resolution.Height, cam.FPS)
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	logs := vision.LogWriters{Ops: os.Stderr}
	if *enableDiag || *enableTrac {
		logs.Diag = os.Stderr
	}
	if *enableTrac {
		logs.Trace = os.Stderr
	}
	vision.SetLogWriters(logs)

	cfg, err := vision.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var sink vision.TransitionSink
	var events *store.Store
	if *dbFile != "" {
		events, err = store.Open(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer events.Close()
		sink = events
	}

	sessions := make([]*vision.CameraSession, 0, len(cfg.Cameras))
	for _, cam := range cfg.Cameras {
		source := vision.NewFrameSource(cam.ID, newDevice(cam, *devMode))
		detector := detect.NewMotionDetector(detect.DefaultMotionConfig())
		sessions = append(sessions, vision.NewCameraSession(
			cam, source, detector, cfg.Tracking.TrackerConfig(), cfg.Detection))
	}

	metrics := vision.NewMetrics()
	orch := vision.NewOrchestrator(vision.OrchestratorConfig{CyclePeriod: *cycle}, sessions, metrics, sink)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch.Start()
	if events != nil {
		if err := events.RecordRun(orch.RunID(), time.Now()); err != nil {
			log.Printf("failed to record run: %v", err)
		}
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		ws := monitor.NewWebServer(monitor.WebServerConfig{
			Address:      *listen,
			Orchestrator: orch,
			Events:       events,
		})
		if err := ws.Start(ctx); err != nil {
			log.Printf("web server error: %v", err)
		}
	}()

	// Wait for shutdown signal, then stop the pipeline before the
	// process exits.
	<-ctx.Done()
	orch.Stop()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
