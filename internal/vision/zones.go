package vision

import (
	"math"
	"time"
)

// Zone is an immutable named polygon in frame pixel space.
type Zone struct {
	Name    string
	Polygon []Point
}

// TransitionKind distinguishes zone entries from exits.
type TransitionKind string

const (
	ZoneEntry TransitionKind = "entry"
	ZoneExit  TransitionKind = "exit"
)

// ZoneTransition is one boundary-crossing event emitted by a zone update.
// Dwell is set on exits only.
type ZoneTransition struct {
	TrackID uint64
	Zone    string
	Kind    TransitionKind
	At      time.Time
	Dwell   time.Duration
}

// ZoneStats holds cumulative counters for one zone. PeakCount is a
// monotonic high-water mark.
type ZoneStats struct {
	Name         string
	CurrentCount int
	TotalEntries int
	TotalExits   int
	TotalDwell   time.Duration
	PeakCount    int
}

// AvgDwellSeconds returns cumulative dwell over total exits, rounded to
// two decimals, or 0 when no exits have occurred.
func (zs *ZoneStats) AvgDwellSeconds() float64 {
	if zs.TotalExits == 0 {
		return 0
	}
	avg := zs.TotalDwell.Seconds() / float64(zs.TotalExits)
	return math.Round(avg*100) / 100
}

// ZoneStatsSnapshot is the externally served form of ZoneStats.
type ZoneStatsSnapshot struct {
	CurrentCount int     `json:"current_count"`
	TotalEntries int     `json:"total_entries"`
	TotalExits   int     `json:"total_exits"`
	AvgDwellTime float64 `json:"avg_dwell_time"` // seconds, 2-decimal
	PeakCount    int     `json:"peak_count"`
}

// zoneResidency records which zone a track currently occupies and when
// it entered. It exists only while the track is inside a zone.
type zoneResidency struct {
	zone      string
	enteredAt time.Time
}

// ZoneAnalytics classifies confirmed track positions against the
// configured zones and maintains occupancy, entry/exit and dwell-time
// accounting. Owned exclusively by one camera's cycle.
type ZoneAnalytics struct {
	zones     []Zone
	stats     map[string]*ZoneStats
	residency map[uint64]zoneResidency
}

// NewZoneAnalytics builds analytics over an ordered zone list. Zones are
// not required to be disjoint; containment is resolved first-match-wins
// in list order.
func NewZoneAnalytics(zones []Zone) *ZoneAnalytics {
	za := &ZoneAnalytics{
		zones:     zones,
		stats:     make(map[string]*ZoneStats, len(zones)),
		residency: make(map[uint64]zoneResidency),
	}
	for _, z := range zones {
		za.stats[z.Name] = &ZoneStats{Name: z.Name}
	}
	return za
}

// Locate returns the first zone (in configured order) whose polygon
// contains p, or ("", false) when p lies outside all zones.
func (za *ZoneAnalytics) Locate(p Point) (string, bool) {
	for _, z := range za.zones {
		if PointInPolygon(p, z.Polygon) {
			return z.Name, true
		}
	}
	return "", false
}

// Update processes one cycle's confirmed tracks at the given timestamp.
// Occupancy is recounted from scratch; entries and exits are derived by
// comparing each track's current zone with its recorded residency.
// Tracks that vanished since the previous cycle exit their last zone at
// now. Returns the transitions emitted this cycle, entries and exits in
// track order.
func (za *ZoneAnalytics) Update(tracks []*Track, now time.Time) []ZoneTransition {
	var transitions []ZoneTransition

	for _, s := range za.stats {
		s.CurrentCount = 0
	}

	present := make(map[uint64]bool, len(tracks))
	for _, t := range tracks {
		present[t.ID] = true
		zone, inZone := za.Locate(t.Center())
		prev, wasResident := za.residency[t.ID]

		if inZone {
			za.stats[zone].CurrentCount++
			if !wasResident || prev.zone != zone {
				if wasResident {
					transitions = append(transitions, za.exit(t.ID, prev, now))
				}
				za.stats[zone].TotalEntries++
				za.residency[t.ID] = zoneResidency{zone: zone, enteredAt: now}
				transitions = append(transitions, ZoneTransition{
					TrackID: t.ID, Zone: zone, Kind: ZoneEntry, At: now,
				})
			}
		} else if wasResident {
			transitions = append(transitions, za.exit(t.ID, prev, now))
			delete(za.residency, t.ID)
		}
	}

	// Tracks gone from the confirmed set exit their last known zone,
	// stamped with this cycle's timestamp.
	for id, prev := range za.residency {
		if !present[id] {
			transitions = append(transitions, za.exit(id, prev, now))
			delete(za.residency, id)
		}
	}

	for _, s := range za.stats {
		if s.CurrentCount > s.PeakCount {
			s.PeakCount = s.CurrentCount
		}
	}

	return transitions
}

// exit accrues dwell time into the departed zone's stats and returns the
// exit transition.
func (za *ZoneAnalytics) exit(trackID uint64, r zoneResidency, now time.Time) ZoneTransition {
	dwell := now.Sub(r.enteredAt)
	s := za.stats[r.zone]
	s.TotalExits++
	s.TotalDwell += dwell
	return ZoneTransition{TrackID: trackID, Zone: r.zone, Kind: ZoneExit, At: now, Dwell: dwell}
}

// Stats returns a snapshot of every zone's counters keyed by zone name.
func (za *ZoneAnalytics) Stats() map[string]ZoneStatsSnapshot {
	out := make(map[string]ZoneStatsSnapshot, len(za.stats))
	for name, s := range za.stats {
		out[name] = ZoneStatsSnapshot{
			CurrentCount: s.CurrentCount,
			TotalEntries: s.TotalEntries,
			TotalExits:   s.TotalExits,
			AvgDwellTime: s.AvgDwellSeconds(),
			PeakCount:    s.PeakCount,
		}
	}
	return out
}
