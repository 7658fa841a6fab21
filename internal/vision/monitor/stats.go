package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/occupancy.report/internal/vision"
)

// StatsResponse is the aggregate served by /api/stats.
type StatsResponse struct {
	RunID   string                   `json:"run_id"`
	Cameras []*vision.CameraSnapshot `json:"cameras"`
	Metrics vision.MetricsSummary    `json:"metrics"`
}

// handleStats returns every camera snapshot plus the metrics summary.
func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	sessions := ws.orch.Sessions()
	snaps := make([]*vision.CameraSnapshot, 0, len(sessions))
	for _, s := range sessions {
		snaps = append(snaps, s.Snapshot())
	}

	ws.writeJSON(w, StatsResponse{
		RunID:   ws.orch.RunID(),
		Cameras: snaps,
		Metrics: ws.orch.Metrics().Summary(time.Now()),
	})
}

// handleZones returns zone statistics keyed by camera ID.
func (ws *WebServer) handleZones(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]map[string]vision.ZoneStatsSnapshot)
	for _, s := range ws.orch.Sessions() {
		out[s.ID] = s.Snapshot().ZoneStats
	}
	ws.writeJSON(w, out)
}

// handleTimeSeries returns metric samples for charting.
// Query params:
//
//	metric (required: "count" or "footfall")
//	minutes (optional, default 15, max 60)
func (ws *WebServer) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric != "count" && metric != "footfall" {
		ws.writeJSONError(w, http.StatusBadRequest, "metric must be 'count' or 'footfall'")
		return
	}

	minutes := 15
	if m := r.URL.Query().Get("minutes"); m != "" {
		if v, err := strconv.Atoi(m); err == nil && v > 0 && v <= 60 {
			minutes = v
		}
	}

	samples := ws.orch.Metrics().TimeSeries(metric, minutes, time.Now())
	if samples == nil {
		samples = []vision.SamplePoint{}
	}
	ws.writeJSON(w, map[string]interface{}{
		"metric":  metric,
		"minutes": minutes,
		"samples": samples,
	})
}
