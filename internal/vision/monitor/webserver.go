// Package monitor handles the HTTP interface for the occupancy
// pipeline. It serves per-camera snapshots, zone statistics, heatmaps
// and aggregate metrics; all reads go through published snapshots, so
// handlers never block the cycle loop.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/banshee-data/occupancy.report/internal/store"
	"github.com/banshee-data/occupancy.report/internal/vision"
)

// WebServer handles the HTTP interface for monitoring the pipeline.
type WebServer struct {
	address string
	orch    *vision.Orchestrator
	events  *store.Store // may be nil
	server  *http.Server
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address      string
	Orchestrator *vision.Orchestrator
	Events       *store.Store
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		orch:    config.Orchestrator,
		events:  config.Events,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Start begins the HTTP server in a goroutine and handles graceful
// shutdown when the context is cancelled.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		vision.Opsf("starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			vision.Opsf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	vision.Opsf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		vision.Opsf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			vision.Opsf("HTTP server force close error: %v", err)
		}
	}

	vision.Opsf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", ws.handleHealth)
	mux.HandleFunc("GET /api/cameras", ws.handleCameras)
	mux.HandleFunc("GET /api/cameras/{id}", ws.handleCamera)
	mux.HandleFunc("GET /api/cameras/{id}/heatmap", ws.handleHeatmap)
	mux.HandleFunc("POST /api/cameras/{id}/heatmap/reset", ws.handleHeatmapReset)
	mux.HandleFunc("GET /api/cameras/{id}/events", ws.handleEvents)
	mux.HandleFunc("GET /api/stats", ws.handleStats)
	mux.HandleFunc("GET /api/zones", ws.handleZones)
	mux.HandleFunc("GET /api/metrics/timeseries", ws.handleTimeSeries)
	mux.HandleFunc("GET /charts/occupancy", ws.handleOccupancyChart)
	mux.HandleFunc("GET /charts/zones", ws.handleZonesChart)

	return mux
}

// handleHealth handles the health check endpoint.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "occupancy", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

// handleCameras returns the latest snapshot for every configured
// camera, inactive ones included.
func (ws *WebServer) handleCameras(w http.ResponseWriter, r *http.Request) {
	sessions := ws.orch.Sessions()
	snaps := make([]*vision.CameraSnapshot, 0, len(sessions))
	for _, s := range sessions {
		snaps = append(snaps, s.Snapshot())
	}
	ws.writeJSON(w, snaps)
}

// handleCamera returns the latest snapshot for one camera.
func (ws *WebServer) handleCamera(w http.ResponseWriter, r *http.Request) {
	s := ws.orch.Session(r.PathValue("id"))
	if s == nil {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown camera %q", r.PathValue("id")))
		return
	}
	ws.writeJSON(w, s.Snapshot())
}

// handleHeatmap serves the camera's intensity field, rendered as a PNG
// by default or as a raw JSON field with format=json.
func (ws *WebServer) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	s := ws.orch.Session(r.PathValue("id"))
	if s == nil {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown camera %q", r.PathValue("id")))
		return
	}

	field, width, height := s.HeatmapField()

	if r.URL.Query().Get("format") == "json" {
		ws.writeJSON(w, map[string]interface{}{
			"camera_id": s.ID,
			"width":     width,
			"height":    height,
			"field":     field,
		})
		return
	}

	png, err := vision.RenderHeatmapPNG(field, width, height)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render heatmap: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// handleHeatmapReset zeroes the camera's intensity field.
func (ws *WebServer) handleHeatmapReset(w http.ResponseWriter, r *http.Request) {
	s := ws.orch.Session(r.PathValue("id"))
	if s == nil {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown camera %q", r.PathValue("id")))
		return
	}
	s.ResetHeatmap()
	ws.writeJSON(w, map[string]string{"status": "ok", "camera_id": s.ID})
}

// handleEvents returns recent persisted zone transitions for a camera.
// Query params:
//
//	limit (optional, default 100, max 1000)
func (ws *WebServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if ws.events == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no event store configured")
		return
	}
	s := ws.orch.Session(r.PathValue("id"))
	if s == nil {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown camera %q", r.PathValue("id")))
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		fmt.Sscanf(l, "%d", &limit)
	}
	events, err := ws.events.RecentEvents(s.ID, limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query events: %v", err))
		return
	}
	if events == nil {
		events = []store.ZoneEvent{}
	}
	ws.writeJSON(w, events)
}
