package monitor

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/occupancy.report/internal/vision"
)

type stubDevice struct{}

func (stubDevice) Open() error { return nil }
func (stubDevice) Read() (vision.Frame, error) {
	return vision.Frame{}, errors.New("no frames in tests")
}
func (stubDevice) Close() error { return nil }

type stubDetector struct{ dets []vision.Detection }

func (d stubDetector) Available() bool { return true }
func (d stubDetector) Detect(vision.Frame) ([]vision.Detection, error) {
	return d.dets, nil
}

func newTestServer(t *testing.T) (*WebServer, *vision.Orchestrator) {
	t.Helper()

	var sessions []*vision.CameraSession
	for _, id := range []string{"cam1", "cam2"} {
		cfg := vision.CameraConfig{
			ID:         id,
			Name:       "Camera " + id,
			Source:     "synthetic",
			Resolution: vision.Resolution{Width: 64, Height: 48},
			Zones: []vision.ZoneConfig{
				{Name: "floor", Points: [][2]float64{{0, 0}, {64, 0}, {64, 48}, {0, 48}}},
			},
		}
		source := vision.NewFrameSource(id, stubDevice{})
		sessions = append(sessions, vision.NewCameraSession(cfg, source, stubDetector{},
			vision.DefaultTrackerConfig(), vision.DetectionTuning{}))
	}

	orch := vision.NewOrchestrator(vision.OrchestratorConfig{}, sessions, vision.NewMetrics(), nil)
	ws := NewWebServer(WebServerConfig{Address: ":0", Orchestrator: orch})
	return ws, orch
}

func get(t *testing.T, ws *WebServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	ws.setupRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	ws, _ := newTestServer(t)

	rec := get(t, ws, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "occupancy", body["service"])
}

func TestHandleCameras(t *testing.T) {
	t.Parallel()
	ws, _ := newTestServer(t)

	rec := get(t, ws, "/api/cameras")
	require.Equal(t, http.StatusOK, rec.Code)

	var snaps []vision.CameraSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 2)

	ids := []string{snaps[0].CameraID, snaps[1].CameraID}
	if diff := cmp.Diff([]string{"cam1", "cam2"}, ids); diff != "" {
		t.Errorf("camera ids mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "inactive", snaps[0].Status)
	assert.Contains(t, snaps[0].ZoneStats, "floor")
}

func TestHandleCamera(t *testing.T) {
	t.Parallel()
	ws, _ := newTestServer(t)

	rec := get(t, ws, "/api/cameras/cam1")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap vision.CameraSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "cam1", snap.CameraID)
	assert.Equal(t, "Camera cam1", snap.Name)
}

func TestHandleCameraNotFound(t *testing.T) {
	t.Parallel()
	ws, _ := newTestServer(t)

	rec := get(t, ws, "/api/cameras/ghost")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "ghost")
}

func TestHandleHeatmap(t *testing.T) {
	t.Parallel()
	ws, _ := newTestServer(t)

	t.Run("png by default", func(t *testing.T) {
		rec := get(t, ws, "/api/cameras/cam1/heatmap")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, "\x89PNG", rec.Body.String()[:4])
	})

	t.Run("raw field as json", func(t *testing.T) {
		rec := get(t, ws, "/api/cameras/cam1/heatmap?format=json")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			CameraID string    `json:"camera_id"`
			Width    int       `json:"width"`
			Height   int       `json:"height"`
			Field    []float64 `json:"field"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "cam1", body.CameraID)
		assert.Equal(t, 64, body.Width)
		assert.Equal(t, 48, body.Height)
		assert.Len(t, body.Field, 64*48)
	})
}

func TestHandleHeatmapReset(t *testing.T) {
	t.Parallel()
	ws, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/cameras/cam1/heatmap/reset", nil)
	rec := httptest.NewRecorder()
	ws.setupRoutes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Reset is POST-only.
	rec = get(t, ws, "/api/cameras/cam1/heatmap/reset")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleStats(t *testing.T) {
	t.Parallel()
	ws, orch := newTestServer(t)
	orch.Metrics().RecordOccupancy(4, time.Now())

	rec := get(t, ws, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Cameras, 2)
	assert.Equal(t, 4, body.Metrics.PeakOccupancy)
}

func TestHandleZones(t *testing.T) {
	t.Parallel()
	ws, _ := newTestServer(t)

	rec := get(t, ws, "/api/zones")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]map[string]vision.ZoneStatsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "cam1")
	assert.Contains(t, body["cam1"], "floor")
}

func TestHandleTimeSeries(t *testing.T) {
	t.Parallel()
	ws, orch := newTestServer(t)
	orch.Metrics().RecordOccupancy(2, time.Now())

	t.Run("valid metric", func(t *testing.T) {
		rec := get(t, ws, "/api/metrics/timeseries?metric=count&minutes=5")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Metric  string               `json:"metric"`
			Minutes int                  `json:"minutes"`
			Samples []vision.SamplePoint `json:"samples"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "count", body.Metric)
		assert.Equal(t, 5, body.Minutes)
		require.Len(t, body.Samples, 1)
		assert.Equal(t, 2.0, body.Samples[0].Value)
	})

	t.Run("unknown metric rejected", func(t *testing.T) {
		rec := get(t, ws, "/api/metrics/timeseries?metric=bogus")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing metric rejected", func(t *testing.T) {
		rec := get(t, ws, "/api/metrics/timeseries")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleEventsWithoutStore(t *testing.T) {
	t.Parallel()
	ws, _ := newTestServer(t)

	rec := get(t, ws, "/api/cameras/cam1/events")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChartsRender(t *testing.T) {
	t.Parallel()
	ws, orch := newTestServer(t)
	orch.Metrics().RecordOccupancy(3, time.Now())

	for _, path := range []string{"/charts/occupancy", "/charts/zones"} {
		rec := get(t, ws, path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", path)
		assert.Contains(t, rec.Body.String(), "echarts", path)
	}
}
