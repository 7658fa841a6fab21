package vision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testZones() []Zone {
	return []Zone{
		{Name: "entrance", Polygon: []Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}},
		{Name: "checkout", Polygon: []Point{{X: 200, Y: 0}, {X: 300, Y: 0}, {X: 300, Y: 100}, {X: 200, Y: 100}}},
	}
}

func trackAt(id uint64, x, y float64) *Track {
	return &Track{ID: id, BBox: BBox{X1: x - 5, Y1: y - 5, X2: x + 5, Y2: y + 5}}
}

func TestZoneAnalytics_Locate(t *testing.T) {
	t.Parallel()
	za := NewZoneAnalytics(testZones())

	t.Run("inside first zone", func(t *testing.T) {
		zone, ok := za.Locate(Point{X: 50, Y: 50})
		require.True(t, ok)
		assert.Equal(t, "entrance", zone)
	})

	t.Run("inside second zone", func(t *testing.T) {
		zone, ok := za.Locate(Point{X: 250, Y: 50})
		require.True(t, ok)
		assert.Equal(t, "checkout", zone)
	})

	t.Run("outside all zones", func(t *testing.T) {
		_, ok := za.Locate(Point{X: 150, Y: 50})
		assert.False(t, ok)
	})
}

func TestZoneAnalytics_OverlappingZonesFirstMatch(t *testing.T) {
	t.Parallel()
	square := []Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}
	za := NewZoneAnalytics([]Zone{
		{Name: "first", Polygon: square},
		{Name: "second", Polygon: square},
	})

	zone, ok := za.Locate(Point{X: 50, Y: 50})
	require.True(t, ok)
	assert.Equal(t, "first", zone, "overlap resolves to the first configured zone")

	za.Update([]*Track{trackAt(1, 50, 50)}, time.Now())
	stats := za.Stats()
	assert.Equal(t, 1, stats["first"].CurrentCount)
	assert.Equal(t, 0, stats["second"].CurrentCount, "a track occupies exactly one zone")
}

func TestZoneAnalytics_EntryExitDwell(t *testing.T) {
	t.Parallel()
	za := NewZoneAnalytics(testZones())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Cycle 0: the track appears inside the entrance zone.
	transitions := za.Update([]*Track{trackAt(1, 50, 50)}, base)
	require.Len(t, transitions, 1)
	assert.Equal(t, ZoneEntry, transitions[0].Kind)
	assert.Equal(t, "entrance", transitions[0].Zone)
	assert.Equal(t, uint64(1), transitions[0].TrackID)

	// Cycles 1-4: still inside, no further transitions.
	for i := 1; i <= 4; i++ {
		transitions = za.Update([]*Track{trackAt(1, 50+float64(i), 50)}, base.Add(time.Duration(i)*time.Second))
		assert.Empty(t, transitions, "cycle %d", i)
	}

	// Cycle 5: the track has moved to checkout. One exit (with dwell
	// measured from the original entry) plus one entry.
	transitions = za.Update([]*Track{trackAt(1, 250, 50)}, base.Add(5*time.Second))
	require.Len(t, transitions, 2)
	assert.Equal(t, ZoneExit, transitions[0].Kind)
	assert.Equal(t, "entrance", transitions[0].Zone)
	assert.Equal(t, 5*time.Second, transitions[0].Dwell)
	assert.Equal(t, ZoneEntry, transitions[1].Kind)
	assert.Equal(t, "checkout", transitions[1].Zone)

	stats := za.Stats()
	assert.Equal(t, 0, stats["entrance"].CurrentCount)
	assert.Equal(t, 1, stats["entrance"].TotalEntries)
	assert.Equal(t, 1, stats["entrance"].TotalExits)
	assert.Equal(t, 5.0, stats["entrance"].AvgDwellTime)
	assert.Equal(t, 1, stats["checkout"].CurrentCount)
	assert.Equal(t, 1, stats["checkout"].TotalEntries)
}

func TestZoneAnalytics_ExitToNowhere(t *testing.T) {
	t.Parallel()
	za := NewZoneAnalytics(testZones())
	base := time.Now()

	za.Update([]*Track{trackAt(1, 50, 50)}, base)

	// The track steps into the gap between zones.
	transitions := za.Update([]*Track{trackAt(1, 150, 50)}, base.Add(2*time.Second))
	require.Len(t, transitions, 1)
	assert.Equal(t, ZoneExit, transitions[0].Kind)
	assert.Equal(t, 2*time.Second, transitions[0].Dwell)

	// Re-entering later counts as a fresh entry.
	transitions = za.Update([]*Track{trackAt(1, 50, 50)}, base.Add(4*time.Second))
	require.Len(t, transitions, 1)
	assert.Equal(t, ZoneEntry, transitions[0].Kind)
	assert.Equal(t, 2, za.Stats()["entrance"].TotalEntries)
}

func TestZoneAnalytics_VanishedTrackExits(t *testing.T) {
	t.Parallel()
	za := NewZoneAnalytics(testZones())
	base := time.Now()

	za.Update([]*Track{trackAt(7, 50, 50)}, base)

	// The track drops out of the confirmed set entirely; it must exit its
	// zone at this cycle's timestamp.
	transitions := za.Update(nil, base.Add(3*time.Second))
	require.Len(t, transitions, 1)
	assert.Equal(t, ZoneExit, transitions[0].Kind)
	assert.Equal(t, uint64(7), transitions[0].TrackID)
	assert.Equal(t, 3*time.Second, transitions[0].Dwell)
	assert.Equal(t, 0, za.Stats()["entrance"].CurrentCount)
}

func TestZoneAnalytics_PeakCountMonotonic(t *testing.T) {
	t.Parallel()
	za := NewZoneAnalytics(testZones())
	now := time.Now()

	za.Update([]*Track{trackAt(1, 40, 50), trackAt(2, 60, 50), trackAt(3, 50, 70)}, now)
	assert.Equal(t, 3, za.Stats()["entrance"].PeakCount)

	// Occupancy drops; the peak does not.
	za.Update([]*Track{trackAt(1, 40, 50)}, now.Add(time.Second))
	stats := za.Stats()
	assert.Equal(t, 1, stats["entrance"].CurrentCount)
	assert.Equal(t, 3, stats["entrance"].PeakCount)
}

func TestZoneAnalytics_AvgDwellRounding(t *testing.T) {
	t.Parallel()
	za := NewZoneAnalytics(testZones())
	base := time.Now()

	// Two visits: 1s and 2s dwell → average 1.5s.
	za.Update([]*Track{trackAt(1, 50, 50)}, base)
	za.Update(nil, base.Add(time.Second))
	za.Update([]*Track{trackAt(2, 50, 50)}, base.Add(2*time.Second))
	za.Update(nil, base.Add(4*time.Second))

	assert.Equal(t, 1.5, za.Stats()["entrance"].AvgDwellTime)
}

func TestZoneAnalytics_NoExitsNoAverage(t *testing.T) {
	t.Parallel()
	za := NewZoneAnalytics(testZones())
	za.Update([]*Track{trackAt(1, 50, 50)}, time.Now())
	assert.Equal(t, 0.0, za.Stats()["entrance"].AvgDwellTime)
}
