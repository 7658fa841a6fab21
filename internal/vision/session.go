package vision

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DetectorPort is the session's view of the pluggable detection
// capability. Implementations live outside this package (see
// internal/vision/detect); the session contains their failures.
type DetectorPort interface {
	Detect(frame Frame) ([]Detection, error)
	Available() bool
}

// TrackSnapshot is one confirmed track as served externally.
type TrackSnapshot struct {
	ID     uint64 `json:"id"`
	BBox   BBox   `json:"bbox"`
	Center Point  `json:"center"`
	Zone   string `json:"zone,omitempty"`
}

// CameraSnapshot is the immutable per-camera state published after each
// cycle for external consumers.
type CameraSnapshot struct {
	CameraID        string                       `json:"camera_id"`
	Name            string                       `json:"name"`
	Status          string                       `json:"status"` // "active" or "inactive"
	Timestamp       time.Time                    `json:"timestamp"`
	CurrentCount    int                          `json:"current_count"`
	TotalFootfall   int64                        `json:"total_footfall"`
	ProcessedFrames int64                        `json:"processed_frames"`
	Tracks          []TrackSnapshot              `json:"tracks"`
	ZoneStats       map[string]ZoneStatsSnapshot `json:"zone_stats"`
}

// CameraSession owns one camera's full pipeline: frame source, detector
// port, tracker, zone analytics and heatmap, plus the running counters.
// All pipeline state is mutated only by RunCycle, which the orchestrator
// invokes from exactly one goroutine per cycle; external consumers read
// the atomically published snapshot.
type CameraSession struct {
	ID   string
	Name string

	Source   *FrameSource
	Detector DetectorPort
	Tracker  *Tracker
	Zones    *ZoneAnalytics

	heatmapMu sync.Mutex // serving-layer bridge; held only for update/copy
	heatmap   *Heatmap

	detection DetectionTuning

	currentCount    int
	totalFootfall   int64
	processedFrames int64

	active   atomic.Bool
	snapshot atomic.Pointer[CameraSnapshot]
}

// NewCameraSession wires a session from its parts. The session starts
// inactive; the orchestrator flips it once the frame source is up.
func NewCameraSession(cfg CameraConfig, source *FrameSource, detector DetectorPort, tracking TrackerConfig, detection DetectionTuning) *CameraSession {
	zones := make([]Zone, len(cfg.Zones))
	for i, z := range cfg.Zones {
		zones[i] = z.Zone()
	}

	s := &CameraSession{
		ID:        cfg.ID,
		Name:      cfg.Name,
		Source:    source,
		Detector:  detector,
		Tracker:   NewTracker(tracking),
		Zones:     NewZoneAnalytics(zones),
		heatmap:   NewHeatmap(DefaultHeatmapConfig(cfg.Resolution.Width, cfg.Resolution.Height)),
		detection: detection,
	}
	s.publishSnapshot(time.Time{}, nil)
	return s
}

// Active reports whether the session participates in the cycle loop.
func (s *CameraSession) Active() bool { return s.active.Load() }

// SetActive flips cycle participation and refreshes the published status.
func (s *CameraSession) SetActive(active bool) {
	s.active.Store(active)
	cur := s.snapshot.Load()
	s.publishSnapshot(cur.Timestamp, cur.Tracks)
}

// RunCycle executes one pipeline pass at the given cycle timestamp:
// latest frame → detect → track → zone/heatmap update → counters. It
// returns the zone transitions emitted this cycle. Errors are per-cycle:
// the caller logs them and retries next tick.
func (s *CameraSession) RunCycle(now time.Time) ([]ZoneTransition, error) {
	frame, ok := s.Source.Latest()
	if !ok {
		// No frame yet; not a failure, the source may still be warming up.
		Tracef("camera %s: no frame available", s.ID)
		return nil, nil
	}

	detections, err := s.detectFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("camera %s: detect: %w", s.ID, err)
	}

	tracks := s.Tracker.Update(detections)
	transitions := s.Zones.Update(tracks, now)

	s.heatmapMu.Lock()
	s.heatmap.Update(tracks)
	s.heatmapMu.Unlock()

	s.currentCount = len(tracks)
	for _, t := range tracks {
		// A track contributes to footfall once, the first cycle it
		// appears in the confirmed set.
		if !t.footfallCounted {
			t.footfallCounted = true
			s.totalFootfall++
		}
	}
	s.processedFrames++

	trackSnaps := make([]TrackSnapshot, len(tracks))
	for i, t := range tracks {
		center := t.Center()
		zone, _ := s.Zones.Locate(center)
		trackSnaps[i] = TrackSnapshot{ID: t.ID, BBox: t.BBox, Center: center, Zone: zone}
	}
	s.publishSnapshot(now, trackSnaps)

	Tracef("camera %s: cycle seq=%d detections=%d confirmed=%d", s.ID, frame.Seq, len(detections), len(tracks))
	return transitions, nil
}

// detectFrame runs the detection port with failure containment: an
// unavailable port means zero detections, an error or panic surfaces as
// this cycle's error, and results are filtered by the detection tuning.
func (s *CameraSession) detectFrame(frame Frame) (dets []Detection, err error) {
	if !s.Detector.Available() {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			dets = nil
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()

	raw, err := s.Detector.Detect(frame)
	if err != nil {
		return nil, err
	}

	threshold := s.detection.Threshold()
	out := raw[:0]
	for _, d := range raw {
		if d.Confidence < threshold {
			continue
		}
		if len(s.detection.Classes) > 0 && !containsInt(s.detection.Classes, d.ClassID) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// publishSnapshot swaps in a fresh immutable snapshot of the session.
func (s *CameraSession) publishSnapshot(at time.Time, tracks []TrackSnapshot) {
	status := "inactive"
	if s.active.Load() {
		status = "active"
	}
	if tracks == nil {
		tracks = []TrackSnapshot{}
	}
	s.snapshot.Store(&CameraSnapshot{
		CameraID:        s.ID,
		Name:            s.Name,
		Status:          status,
		Timestamp:       at,
		CurrentCount:    s.currentCount,
		TotalFootfall:   s.totalFootfall,
		ProcessedFrames: s.processedFrames,
		Tracks:          tracks,
		ZoneStats:       s.Zones.Stats(),
	})
}

// Snapshot returns the most recently published per-camera state. Safe
// for concurrent use.
func (s *CameraSession) Snapshot() *CameraSnapshot {
	return s.snapshot.Load()
}

// HeatmapField returns a copy of the camera's intensity field plus its
// dimensions. Safe for concurrent use with the cycle loop.
func (s *CameraSession) HeatmapField() ([]float64, int, int) {
	s.heatmapMu.Lock()
	defer s.heatmapMu.Unlock()
	return s.heatmap.Field(), s.heatmap.Width(), s.heatmap.Height()
}

// ResetHeatmap zeroes the camera's intensity field.
func (s *CameraSession) ResetHeatmap() {
	s.heatmapMu.Lock()
	defer s.heatmapMu.Unlock()
	s.heatmap.Reset()
}
