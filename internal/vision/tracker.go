package vision

// TrackState represents the lifecycle state of a track.
type TrackState string

const (
	TrackTentative TrackState = "tentative" // New track, needs confirmation
	TrackConfirmed TrackState = "confirmed" // Enough hits, externally visible
)

// TrailMaxPoints is the maximum number of recent centre points kept per
// track; the oldest point is evicted first.
const TrailMaxPoints = 50

// TrackerConfig holds configuration parameters for the tracker.
type TrackerConfig struct {
	MaxAge       int     // Cycles without a match before a track is pruned
	MinHits      int     // Matched cycles needed before a track is confirmed
	IoUThreshold float64 // Minimum IoU for an association to be accepted
}

// DefaultTrackerConfig returns default tracker configuration.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxAge:       30,
		MinHits:      3,
		IoUThreshold: 0.3,
	}
}

// Track is a persistent identity for one subject across frames.
type Track struct {
	// Identity. IDs are assigned monotonically from 1 and never reused
	// within a tracker's lifetime.
	ID uint64

	// Latest matched observation.
	BBox       BBox
	Confidence float64

	// Lifecycle counters, in cycles.
	Age             int // Cycles since creation
	Hits            int // Cycles matched to a detection
	TimeSinceUpdate int // Cycles since last match

	// Trail of recent centre points, oldest first, capped at TrailMaxPoints.
	Trail []Point

	// Set once the track has contributed to cumulative footfall.
	footfallCounted bool
}

// Center returns the centre of the track's current bounding box.
func (t *Track) Center() Point { return t.BBox.Center() }

// State reports the track's lifecycle state under the given config.
func (t *Track) State(cfg TrackerConfig) TrackState {
	if t.Hits >= cfg.MinHits {
		return TrackConfirmed
	}
	return TrackTentative
}

// predict advances the track's bookkeeping one cycle. Positions are held
// constant between updates; there is no motion model beyond the counters.
func (t *Track) predict() {
	t.Age++
	t.TimeSinceUpdate++
}

// update replaces the track's observation with a matched detection.
func (t *Track) update(det Detection) {
	t.BBox = det.BBox
	t.Confidence = det.Confidence
	t.Hits++
	t.TimeSinceUpdate = 0
	t.Age++
	t.appendTrail(t.Center())
}

func (t *Track) appendTrail(p Point) {
	t.Trail = append(t.Trail, p)
	if len(t.Trail) > TrailMaxPoints {
		t.Trail = t.Trail[1:]
	}
}

// Tracker maintains the live track set for one camera using SORT-style
// IoU association. It is operated exclusively by its owning camera's
// cycle and is not safe for concurrent use.
type Tracker struct {
	Config TrackerConfig

	tracks     []*Track
	nextID     uint64
	cycleCount int
}

// NewTracker creates a tracker with the specified configuration.
func NewTracker(config TrackerConfig) *Tracker {
	return &Tracker{Config: config, nextID: 1}
}

// Update processes one cycle's detections and returns the confirmed track
// set (hits ≥ MinHits), which is what zone and heatmap updates consume.
func (tr *Tracker) Update(detections []Detection) []*Track {
	tr.cycleCount++

	// Step 1: Predict: advance age and staleness for every live track.
	for _, t := range tr.tracks {
		t.predict()
	}

	// Step 2: Associate detections to tracks, then update matches and
	// spawn tentative tracks for the unmatched remainder.
	if len(tr.tracks) > 0 && len(detections) > 0 {
		matches, unmatchedDets := tr.associate(detections)

		// Step 3: Update matched tracks.
		for trackIdx, detIdx := range matches {
			tr.tracks[trackIdx].update(detections[detIdx])
		}

		// Step 4: Spawn a tentative track per unmatched detection.
		for _, detIdx := range unmatchedDets {
			tr.spawn(detections[detIdx])
		}
	} else if len(detections) > 0 {
		for _, det := range detections {
			tr.spawn(det)
		}
	}

	// Step 5: Prune tracks that have gone stale.
	live := tr.tracks[:0]
	for _, t := range tr.tracks {
		if t.TimeSinceUpdate < tr.Config.MaxAge {
			live = append(live, t)
		}
	}
	// Clear the tail so pruned tracks do not linger in the backing array.
	for i := len(live); i < len(tr.tracks); i++ {
		tr.tracks[i] = nil
	}
	tr.tracks = live

	// Step 6: Report confirmed tracks only.
	confirmed := make([]*Track, 0, len(tr.tracks))
	for _, t := range tr.tracks {
		if t.Hits >= tr.Config.MinHits {
			confirmed = append(confirmed, t)
		}
	}
	return confirmed
}

// associate solves the track×detection assignment on cost = 1 − IoU and
// rejects solver pairs below the IoU threshold. Returns matched pairs as
// trackIdx → detIdx plus the unmatched detection indices.
func (tr *Tracker) associate(detections []Detection) (map[int]int, []int) {
	numTracks := len(tr.tracks)
	numDets := len(detections)

	iou := make([][]float64, numTracks)
	cost := make([][]float64, numTracks)
	for ti, t := range tr.tracks {
		iou[ti] = make([]float64, numDets)
		cost[ti] = make([]float64, numDets)
		for di, det := range detections {
			v := IoU(t.BBox, det.BBox)
			iou[ti][di] = v
			cost[ti][di] = 1 - v
		}
	}

	assignment := HungarianAssign(cost)

	matches := make(map[int]int)
	matchedDets := make(map[int]bool)
	for ti, di := range assignment {
		// The solver may pair boxes with negligible overlap when nothing
		// better exists; those pairs go back to the unmatched pools.
		if di >= 0 && iou[ti][di] >= tr.Config.IoUThreshold {
			matches[ti] = di
			matchedDets[di] = true
		}
	}

	unmatchedDets := make([]int, 0, numDets)
	for di := 0; di < numDets; di++ {
		if !matchedDets[di] {
			unmatchedDets = append(unmatchedDets, di)
		}
	}
	return matches, unmatchedDets
}

// spawn creates a new tentative track from an unmatched detection.
func (tr *Tracker) spawn(det Detection) *Track {
	t := &Track{
		ID:         tr.nextID,
		BBox:       det.BBox,
		Confidence: det.Confidence,
		Hits:       1,
	}
	tr.nextID++
	t.appendTrail(t.Center())
	tr.tracks = append(tr.tracks, t)
	return t
}

// Tracks returns the full live track set, tentative included.
func (tr *Tracker) Tracks() []*Track { return tr.tracks }

// CycleCount returns the number of Update calls since creation or Reset.
func (tr *Tracker) CycleCount() int { return tr.cycleCount }

// Reset clears all tracks and restarts ID assignment. Used only on
// explicit reinitialisation, never automatically.
func (tr *Tracker) Reset() {
	tr.tracks = nil
	tr.nextID = 1
	tr.cycleCount = 0
}
