package detect

import (
	"fmt"

	"github.com/banshee-data/occupancy.report/internal/vision"
)

// MotionConfig tunes the frame-differencing detector.
type MotionConfig struct {
	// Downsample is the luma block size in pixels; the detector works on
	// a grid of Downsample×Downsample cell averages.
	Downsample int

	// DiffThreshold is the minimum per-cell absolute luma change for a
	// cell to count as moving.
	DiffThreshold int

	// MinCells is the minimum connected-component size, in grid cells,
	// for a component to become a detection.
	MinCells int

	// ConfidenceThreshold drops detections below this confidence.
	ConfidenceThreshold float64
}

// DefaultMotionConfig returns the default motion detector tuning.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		Downsample:          8,
		DiffThreshold:       25,
		MinCells:            4,
		ConfidenceThreshold: 0.5,
	}
}

// MotionDetector detects moving subjects by frame differencing on a
// downsampled luma grid: cells whose average luma changed beyond the
// threshold are grouped into connected components, and each component's
// bounding box becomes a detection. It needs two frames before it can
// report anything. Stateful (previous grid), so use one instance per
// camera.
type MotionDetector struct {
	cfg      MotionConfig
	prev     []float64
	prevCols int
	prevRows int
}

// NewMotionDetector builds a detector with the given tuning; zero-value
// fields fall back to defaults.
func NewMotionDetector(cfg MotionConfig) *MotionDetector {
	def := DefaultMotionConfig()
	if cfg.Downsample <= 0 {
		cfg.Downsample = def.Downsample
	}
	if cfg.DiffThreshold <= 0 {
		cfg.DiffThreshold = def.DiffThreshold
	}
	if cfg.MinCells <= 0 {
		cfg.MinCells = def.MinCells
	}
	return &MotionDetector{cfg: cfg}
}

// Available is always true; the detector has no external model to load.
func (d *MotionDetector) Available() bool { return true }

// Detect compares the frame's cell grid against the previous frame's and
// returns one detection per moving component.
func (d *MotionDetector) Detect(frame vision.Frame) ([]vision.Detection, error) {
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Pixels) != frame.Width*frame.Height {
		return nil, fmt.Errorf("malformed frame: %dx%d with %d pixels", frame.Width, frame.Height, len(frame.Pixels))
	}

	cols := (frame.Width + d.cfg.Downsample - 1) / d.cfg.Downsample
	rows := (frame.Height + d.cfg.Downsample - 1) / d.cfg.Downsample
	grid := d.cellAverages(frame, cols, rows)

	defer func() {
		d.prev = grid
		d.prevCols = cols
		d.prevRows = rows
	}()

	if d.prev == nil || d.prevCols != cols || d.prevRows != rows {
		// First frame (or a resolution change): nothing to diff against.
		return nil, nil
	}

	moving := make([]bool, len(grid))
	for i := range grid {
		delta := grid[i] - d.prev[i]
		if delta < 0 {
			delta = -delta
		}
		if delta >= float64(d.cfg.DiffThreshold) {
			moving[i] = true
		}
	}

	var detections []vision.Detection
	visited := make([]bool, len(moving))
	for idx := range moving {
		if !moving[idx] || visited[idx] {
			continue
		}
		cells, minC, minR, maxC, maxR := floodComponent(moving, visited, idx, cols, rows)
		if cells < d.cfg.MinCells {
			continue
		}

		boxCells := (maxC - minC + 1) * (maxR - minR + 1)
		confidence := float64(cells) / float64(boxCells)
		if confidence < d.cfg.ConfidenceThreshold {
			continue
		}

		ds := float64(d.cfg.Downsample)
		detections = append(detections, vision.Detection{
			BBox: vision.BBox{
				X1: float64(minC) * ds,
				Y1: float64(minR) * ds,
				X2: float64(maxC+1) * ds,
				Y2: float64(maxR+1) * ds,
			},
			Confidence: confidence,
			ClassID:    0,
		})
	}
	return detections, nil
}

// cellAverages reduces the frame to a cols×rows grid of mean luma values.
func (d *MotionDetector) cellAverages(frame vision.Frame, cols, rows int) []float64 {
	grid := make([]float64, cols*rows)
	ds := d.cfg.Downsample
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var sum, n int
			for y := r * ds; y < (r+1)*ds && y < frame.Height; y++ {
				row := y * frame.Width
				for x := c * ds; x < (c+1)*ds && x < frame.Width; x++ {
					sum += int(frame.Pixels[row+x])
					n++
				}
			}
			if n > 0 {
				grid[r*cols+c] = float64(sum) / float64(n)
			}
		}
	}
	return grid
}

// floodComponent walks a 4-connected moving component starting at idx,
// marking cells visited, and returns its size and cell-space bounds.
func floodComponent(moving, visited []bool, idx, cols, rows int) (cells, minC, minR, maxC, maxR int) {
	minC, minR = cols, rows
	stack := []int{idx}
	visited[idx] = true

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cells++

		c, r := cur%cols, cur/cols
		if c < minC {
			minC = c
		}
		if c > maxC {
			maxC = c
		}
		if r < minR {
			minR = r
		}
		if r > maxR {
			maxR = r
		}

		for _, n := range [4]int{cur - 1, cur + 1, cur - cols, cur + cols} {
			if n < 0 || n >= len(moving) {
				continue
			}
			// Horizontal neighbours must stay on the same row.
			if (n == cur-1 || n == cur+1) && n/cols != r {
				continue
			}
			if moving[n] && !visited[n] {
				visited[n] = true
				stack = append(stack, n)
			}
		}
	}
	return cells, minC, minR, maxC, maxR
}
