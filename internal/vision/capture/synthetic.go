// Package capture provides CaptureDevice implementations for the frame
// source: a real camera device backed by OpenCV (build tag "cv") and a
// synthetic generator for development and tests.
package capture

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/occupancy.report/internal/vision"
)

// Blob is one bright moving square rendered by the synthetic device. It
// orbits the frame centre so motion is continuous and deterministic.
type Blob struct {
	Size   int     // Side length in pixels
	Radius float64 // Orbit radius in pixels
	Period float64 // Seconds per revolution
	Phase  float64 // Starting angle in radians
}

// SyntheticConfig describes a synthetic camera.
type SyntheticConfig struct {
	Width  int
	Height int
	FPS    int
	Blobs  []Blob
}

// DefaultSyntheticConfig returns a camera with two orbiting subjects.
func DefaultSyntheticConfig(width, height, fps int) SyntheticConfig {
	if fps <= 0 {
		fps = 30
	}
	return SyntheticConfig{
		Width:  width,
		Height: height,
		FPS:    fps,
		Blobs: []Blob{
			{Size: 48, Radius: float64(width) / 4, Period: 12, Phase: 0},
			{Size: 40, Radius: float64(height) / 3, Period: 8, Phase: math.Pi},
		},
	}
}

// SyntheticDevice generates frames with moving blobs at the configured
// frame rate. Read blocks to pace output like a real capture device.
type SyntheticDevice struct {
	cfg SyntheticConfig

	mu     sync.Mutex
	open   bool
	start  time.Time
	frames uint64
}

// NewSyntheticDevice builds a generator for the given configuration.
func NewSyntheticDevice(cfg SyntheticConfig) *SyntheticDevice {
	return &SyntheticDevice{cfg: cfg}
}

// Open validates the configuration and starts the clock.
func (d *SyntheticDevice) Open() error {
	if d.cfg.Width <= 0 || d.cfg.Height <= 0 {
		return fmt.Errorf("synthetic device needs positive dimensions, got %dx%d", d.cfg.Width, d.cfg.Height)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	d.start = time.Now()
	d.frames = 0
	return nil
}

// Read renders the next frame, pacing to the configured FPS.
func (d *SyntheticDevice) Read() (vision.Frame, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return vision.Frame{}, fmt.Errorf("synthetic device not open")
	}
	n := d.frames
	d.frames++
	start := d.start
	d.mu.Unlock()

	interval := time.Second / time.Duration(d.cfg.FPS)
	due := start.Add(time.Duration(n) * interval)
	if wait := time.Until(due); wait > 0 {
		time.Sleep(wait)
	}

	t := float64(n) / float64(d.cfg.FPS)
	frame := vision.Frame{
		Width:  d.cfg.Width,
		Height: d.cfg.Height,
		Stamp:  time.Now(),
		Pixels: make([]byte, d.cfg.Width*d.cfg.Height),
	}
	for _, b := range d.cfg.Blobs {
		d.renderBlob(&frame, b, t)
	}
	return frame, nil
}

// renderBlob draws one blob at its orbital position for time t.
func (d *SyntheticDevice) renderBlob(frame *vision.Frame, b Blob, t float64) {
	angle := b.Phase + 2*math.Pi*t/b.Period
	cx := d.cfg.Width/2 + int(b.Radius*math.Cos(angle))
	cy := d.cfg.Height/2 + int(b.Radius*math.Sin(angle))

	half := b.Size / 2
	for y := cy - half; y < cy+half; y++ {
		if y < 0 || y >= frame.Height {
			continue
		}
		for x := cx - half; x < cx+half; x++ {
			if x < 0 || x >= frame.Width {
				continue
			}
			frame.Pixels[y*frame.Width+x] = 255
		}
	}
}

// Close stops the device.
func (d *SyntheticDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}
