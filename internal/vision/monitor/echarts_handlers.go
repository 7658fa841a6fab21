package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleOccupancyChart renders a line chart of recent occupancy and
// footfall samples using go-echarts. This is a debugging-only endpoint
// (no auth) to eyeball pipeline output without a frontend.
// Query params:
//   - minutes (optional; default 15, max 60)
func (ws *WebServer) handleOccupancyChart(w http.ResponseWriter, r *http.Request) {
	minutes := 15
	if m := r.URL.Query().Get("minutes"); m != "" {
		if v, err := strconv.Atoi(m); err == nil && v > 0 && v <= 60 {
			minutes = v
		}
	}

	now := time.Now()
	occupancy := ws.orch.Metrics().TimeSeries("count", minutes, now)
	footfall := ws.orch.Metrics().TimeSeries("footfall", minutes, now)

	labels := make([]string, len(occupancy))
	occData := make([]opts.LineData, len(occupancy))
	for i, s := range occupancy {
		labels[i] = s.Timestamp.Format("15:04:05")
		occData[i] = opts.LineData{Value: s.Value}
	}
	ffData := make([]opts.LineData, len(footfall))
	for i, s := range footfall {
		ffData[i] = opts.LineData{Value: s.Value}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Occupancy", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Occupancy & Footfall", Subtitle: fmt.Sprintf("last %dm, %d samples", minutes, len(occupancy))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(labels).
		AddSeries("occupancy", occData).
		AddSeries("footfall", ffData)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleZonesChart renders a bar chart of per-zone current counts and
// cumulative entries across all cameras.
func (ws *WebServer) handleZonesChart(w http.ResponseWriter, r *http.Request) {
	var labels []string
	var current []opts.BarData
	var entries []opts.BarData
	for _, s := range ws.orch.Sessions() {
		snap := s.Snapshot()
		for zone, stats := range snap.ZoneStats {
			labels = append(labels, fmt.Sprintf("%s/%s", snap.CameraID, zone))
			current = append(current, opts.BarData{Value: stats.CurrentCount})
			entries = append(entries, opts.BarData{Value: stats.TotalEntries})
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Zones", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Zone Activity", Subtitle: time.Now().Format(time.RFC3339)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("current", current, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})).
		AddSeries("entries", entries)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
