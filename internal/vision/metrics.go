package vision

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// MetricsWindowSize is the ring capacity for each time series: one hour
// of one-per-second samples.
const MetricsWindowSize = 3600

// rollingAverageWindow bounds the occupancy average served by Summary.
const rollingAverageWindow = 5 * time.Minute

// SamplePoint is one time-series sample as served externally.
type SamplePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// sampleRing is a fixed-capacity ring of samples; once full, the oldest
// sample is overwritten.
type sampleRing struct {
	buf   []SamplePoint
	start int // index of oldest sample
	n     int
}

func newSampleRing(capacity int) *sampleRing {
	return &sampleRing{buf: make([]SamplePoint, capacity)}
}

func (r *sampleRing) push(s SamplePoint) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = s
		r.n++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

// since returns all samples at or after cutoff, oldest first.
func (r *sampleRing) since(cutoff time.Time) []SamplePoint {
	out := make([]SamplePoint, 0, r.n)
	for i := 0; i < r.n; i++ {
		s := r.buf[(r.start+i)%len(r.buf)]
		if !s.Timestamp.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// MetricsSummary is the aggregate served by Summary.
type MetricsSummary struct {
	TotalFootfall       int64      `json:"total_footfall"`
	PeakOccupancy       int        `json:"peak_occupancy"`
	PeakTime            *time.Time `json:"peak_time"` // nil until first sample
	CurrentAvgOccupancy float64    `json:"current_avg_occupancy"`
	HourlyFootfall      [24]int64  `json:"hourly_footfall"`
}

// Metrics aggregates occupancy and footfall across all cameras. Unlike
// the per-camera pipeline state it is written by the cycle driver and
// read by the serving layer concurrently, so it carries its own lock.
type Metrics struct {
	mu sync.Mutex

	occupancy *sampleRing
	footfall  *sampleRing

	totalFootfall int64
	peakOccupancy int
	peakTime      time.Time

	// Footfall per hour-of-day, accumulated additively, never reset.
	hourlyFootfall [24]int64
}

// NewMetrics creates an aggregator with hour-long sample windows.
func NewMetrics() *Metrics {
	return &Metrics{
		occupancy: newSampleRing(MetricsWindowSize),
		footfall:  newSampleRing(MetricsWindowSize),
	}
}

// RecordOccupancy samples the current combined occupancy and advances the
// all-time peak high-water mark.
func (m *Metrics) RecordOccupancy(count int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.occupancy.push(SamplePoint{Timestamp: at, Value: float64(count)})
	if count > m.peakOccupancy {
		m.peakOccupancy = count
		m.peakTime = at
	}
}

// RecordFootfall samples newly counted footfall and accumulates the
// cumulative and hourly totals.
func (m *Metrics) RecordFootfall(count int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.footfall.push(SamplePoint{Timestamp: at, Value: float64(count)})
	m.totalFootfall += int64(count)
	m.hourlyFootfall[at.Hour()] += int64(count)
}

// Summary computes the rolling occupancy average over the most recent
// five minutes (0 with no samples, 1-decimal rounding) alongside the
// cumulative counters.
func (m *Metrics) Summary(now time.Time) MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := m.occupancy.since(now.Add(-rollingAverageWindow))
	var avg float64
	if len(recent) > 0 {
		values := make([]float64, len(recent))
		for i, s := range recent {
			values[i] = s.Value
		}
		avg = math.Round(stat.Mean(values, nil)*10) / 10
	}

	s := MetricsSummary{
		TotalFootfall:       m.totalFootfall,
		PeakOccupancy:       m.peakOccupancy,
		CurrentAvgOccupancy: avg,
		HourlyFootfall:      m.hourlyFootfall,
	}
	if !m.peakTime.IsZero() {
		t := m.peakTime
		s.PeakTime = &t
	}
	return s
}

// TimeSeries returns samples newer than now − minutes for the requested
// metric ("count" or "footfall"), oldest first. Unknown metrics yield an
// empty slice.
func (m *Metrics) TimeSeries(metric string, minutes int, now time.Time) []SamplePoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-time.Duration(minutes) * time.Minute)
	switch metric {
	case "count":
		return m.occupancy.since(cutoff)
	case "footfall":
		return m.footfall.since(cutoff)
	default:
		return nil
	}
}
