package vision

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCyclePeriod is the target pipeline cadence, ≈30 Hz.
const DefaultCyclePeriod = 33 * time.Millisecond

// DefaultMetricsInterval is how often the driver samples aggregate
// occupancy and footfall into the metrics windows.
const DefaultMetricsInterval = time.Second

// TransitionSink receives zone transition events from the cycle loop.
// Implementations must be safe for concurrent use; errors are logged and
// never fed back into the pipeline.
type TransitionSink interface {
	RecordTransition(runID, cameraID string, tr ZoneTransition) error
}

// OrchestratorConfig tunes the cycle driver.
type OrchestratorConfig struct {
	CyclePeriod     time.Duration // Zero means DefaultCyclePeriod
	MetricsInterval time.Duration // Zero means DefaultMetricsInterval
}

// Orchestrator owns one CameraSession per configured camera and drives
// all active sessions concurrently on a fixed cadence: each tick fans
// out one unit of work per active camera and waits for all of them
// before sleeping until the next tick. Session failures are contained
// per cycle; a failing camera is retried next tick, never removed.
type Orchestrator struct {
	cfg      OrchestratorConfig
	sessions []*CameraSession
	byID     map[string]*CameraSession
	metrics  *Metrics
	sink     TransitionSink // may be nil

	runID        string
	lastFootfall int64

	cancel   context.CancelFunc
	driverWG sync.WaitGroup
	started  bool
}

// NewOrchestrator assembles the driver over its sessions. sink may be
// nil for fully in-memory operation.
func NewOrchestrator(cfg OrchestratorConfig, sessions []*CameraSession, metrics *Metrics, sink TransitionSink) *Orchestrator {
	if cfg.CyclePeriod <= 0 {
		cfg.CyclePeriod = DefaultCyclePeriod
	}
	if cfg.MetricsInterval <= 0 {
		cfg.MetricsInterval = DefaultMetricsInterval
	}

	byID := make(map[string]*CameraSession, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}
	return &Orchestrator{
		cfg:      cfg,
		sessions: sessions,
		byID:     byID,
		metrics:  metrics,
		sink:     sink,
	}
}

// RunID identifies the current start/stop span; minted on Start.
func (o *Orchestrator) RunID() string { return o.runID }

// Metrics exposes the shared aggregator for the serving layer.
func (o *Orchestrator) Metrics() *Metrics { return o.metrics }

// Sessions returns all sessions in configuration order, inactive ones
// included.
func (o *Orchestrator) Sessions() []*CameraSession { return o.sessions }

// Session returns the session for a camera ID, or nil.
func (o *Orchestrator) Session(cameraID string) *CameraSession { return o.byID[cameraID] }

// Start brings up every session's frame source and launches the cycle
// driver. A camera whose source fails to start is marked inactive and
// excluded from the cycle loop but remains queryable; it never aborts
// startup of the others.
func (o *Orchestrator) Start() {
	if o.started {
		return
	}
	o.started = true
	o.runID = uuid.NewString()

	for _, s := range o.sessions {
		if s.Source.Start() {
			s.SetActive(true)
		} else {
			s.SetActive(false)
			Opsf("camera %s: marked inactive, frame source failed to start", s.ID)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.driverWG.Add(1)
	go o.driveCycles(ctx)

	Opsf("orchestrator started: run=%s cameras=%d period=%v", o.runID, len(o.sessions), o.cfg.CyclePeriod)
}

// driveCycles is the periodic driver: bounded fan-out/fan-in per tick.
func (o *Orchestrator) driveCycles(ctx context.Context) {
	defer o.driverWG.Done()

	ticker := time.NewTicker(o.cfg.CyclePeriod)
	defer ticker.Stop()

	lastSample := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := time.Now()
		o.runCycle(now)

		if now.Sub(lastSample) >= o.cfg.MetricsInterval {
			lastSample = now
			o.sampleMetrics(now)
		}
	}
}

// runCycle dispatches one unit of work per active session and waits for
// all of them. A session erroring (or panicking) is logged and excluded
// from this cycle's results only.
func (o *Orchestrator) runCycle(now time.Time) {
	var wg sync.WaitGroup
	for _, s := range o.sessions {
		if !s.Active() {
			continue
		}
		wg.Add(1)
		go func(s *CameraSession) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					Opsf("camera %s: cycle panic contained: %v", s.ID, r)
				}
			}()

			transitions, err := s.RunCycle(now)
			if err != nil {
				Opsf("camera %s: cycle failed: %v", s.ID, err)
				return
			}
			o.recordTransitions(s.ID, transitions)
		}(s)
	}
	wg.Wait()
}

// recordTransitions forwards zone events to the sink, if any.
func (o *Orchestrator) recordTransitions(cameraID string, transitions []ZoneTransition) {
	if o.sink == nil {
		return
	}
	for _, tr := range transitions {
		if err := o.sink.RecordTransition(o.runID, cameraID, tr); err != nil {
			Diagf("camera %s: recording %s for track %d: %v", cameraID, tr.Kind, tr.TrackID, err)
		}
	}
}

// sampleMetrics records one aggregate occupancy and footfall sample
// across all sessions, reading only published snapshots.
func (o *Orchestrator) sampleMetrics(now time.Time) {
	var occupancy int
	var footfall int64
	for _, s := range o.sessions {
		snap := s.Snapshot()
		occupancy += snap.CurrentCount
		footfall += snap.TotalFootfall
	}

	o.metrics.RecordOccupancy(occupancy, now)
	delta := footfall - o.lastFootfall
	o.lastFootfall = footfall
	if delta < 0 {
		delta = 0
	}
	o.metrics.RecordFootfall(int(delta), now)
}

// Stop cancels the cycle driver first, then stops every session's frame
// source. In-flight cycle work finishes before the driver exits; source
// joins are individually bounded, so shutdown cannot hang indefinitely.
func (o *Orchestrator) Stop() {
	if !o.started {
		return
	}
	o.started = false

	o.cancel()
	o.driverWG.Wait()

	for _, s := range o.sessions {
		s.Source.Stop()
		s.SetActive(false)
	}
	Opsf("orchestrator stopped: run=%s", o.runID)
}
