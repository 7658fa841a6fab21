package vision

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// HeatmapConfig holds tuning for the spatial density accumulator.
type HeatmapConfig struct {
	Width  int
	Height int
	Decay  float64 // Multiplicative per-cycle decay, (0, 1]
	Sigma  float64 // Gaussian kernel stddev in pixels
}

// DefaultHeatmapConfig returns the default accumulator tuning for the
// given field dimensions.
func DefaultHeatmapConfig(width, height int) HeatmapConfig {
	return HeatmapConfig{
		Width:  width,
		Height: height,
		Decay:  0.995,
		Sigma:  30,
	}
}

// Heatmap is a dense decaying intensity field over the camera's frame,
// one cell per pixel, each cell in [0, 1]. Owned exclusively by one
// camera's cycle.
type Heatmap struct {
	cfg   HeatmapConfig
	field []float64 // row-major, len = Width*Height
}

// NewHeatmap allocates a zeroed field for the given configuration.
func NewHeatmap(cfg HeatmapConfig) *Heatmap {
	return &Heatmap{
		cfg:   cfg,
		field: make([]float64, cfg.Width*cfg.Height),
	}
}

// Width returns the field width in cells.
func (h *Heatmap) Width() int { return h.cfg.Width }

// Height returns the field height in cells.
func (h *Heatmap) Height() int { return h.cfg.Height }

// Update applies one cycle: decay the whole field, then deposit a
// truncated Gaussian kernel at each confirmed track centre that lies
// within bounds. Cells saturate at 1.0.
func (h *Heatmap) Update(tracks []*Track) {
	floats.Scale(h.cfg.Decay, h.field)

	for _, t := range tracks {
		c := t.Center()
		cx, cy := int(c.X), int(c.Y)
		if cx < 0 || cx >= h.cfg.Width || cy < 0 || cy >= h.cfg.Height {
			continue
		}
		h.deposit(cx, cy, 1.0)
	}
}

// deposit adds a radially symmetric Gaussian centred at (x, y), truncated
// to a ±3σ window and clamped per cell to 1.0 so repeated visits saturate
// rather than overflow.
func (h *Heatmap) deposit(x, y int, intensity float64) {
	radius := int(h.cfg.Sigma * 3)
	xMin := max(0, x-radius)
	xMax := min(h.cfg.Width, x+radius)
	yMin := max(0, y-radius)
	yMax := min(h.cfg.Height, y+radius)
	twoSigmaSq := 2 * h.cfg.Sigma * h.cfg.Sigma

	for py := yMin; py < yMax; py++ {
		row := py * h.cfg.Width
		for px := xMin; px < xMax; px++ {
			distSq := float64((px-x)*(px-x) + (py-y)*(py-y))
			v := h.field[row+px] + intensity*math.Exp(-distSq/twoSigmaSq)
			if v > 1.0 {
				v = 1.0
			}
			h.field[row+px] = v
		}
	}
}

// Field returns a copy of the raw intensity field, row-major.
func (h *Heatmap) Field() []float64 {
	out := make([]float64, len(h.field))
	copy(out, h.field)
	return out
}

// Reset zeroes the field.
func (h *Heatmap) Reset() {
	for i := range h.field {
		h.field[i] = 0
	}
}
