package vision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the root configuration: the camera inventory plus global
// detection and tracking tuning blocks. Tuning fields are pointers so
// partial configs inherit defaults.
type Config struct {
	Cameras   []CameraConfig  `json:"cameras"`
	Detection DetectionTuning `json:"detection"`
	Tracking  TrackingTuning  `json:"tracking"`
}

// CameraConfig describes one camera and its analytics zones.
type CameraConfig struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Source     string       `json:"source"` // device index, file path or URL; "synthetic" for the generator
	FPS        int          `json:"fps,omitempty"`
	Resolution Resolution   `json:"resolution"`
	Zones      []ZoneConfig `json:"zones,omitempty"`
}

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ZoneConfig is a named polygon, vertices in configured order.
type ZoneConfig struct {
	Name   string       `json:"name"`
	Points [][2]float64 `json:"points"`
}

// Zone converts the config form to the analytics value type.
func (zc ZoneConfig) Zone() Zone {
	poly := make([]Point, len(zc.Points))
	for i, p := range zc.Points {
		poly[i] = Point{X: p[0], Y: p[1]}
	}
	return Zone{Name: zc.Name, Polygon: poly}
}

// DetectionTuning configures the detection port consumers.
type DetectionTuning struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	Classes             []int    `json:"classes,omitempty"`
}

// Threshold returns the configured confidence threshold or the 0.5 default.
func (d DetectionTuning) Threshold() float64 {
	if d.ConfidenceThreshold != nil {
		return *d.ConfidenceThreshold
	}
	return 0.5
}

// TrackingTuning configures the per-camera trackers.
type TrackingTuning struct {
	MaxAge       *int     `json:"max_age,omitempty"`
	MinHits      *int     `json:"min_hits,omitempty"`
	IoUThreshold *float64 `json:"iou_threshold,omitempty"`
}

// TrackerConfig resolves the tuning against defaults.
func (t TrackingTuning) TrackerConfig() TrackerConfig {
	cfg := DefaultTrackerConfig()
	if t.MaxAge != nil {
		cfg.MaxAge = *t.MaxAge
	}
	if t.MinHits != nil {
		cfg.MinHits = *t.MinHits
	}
	if t.IoUThreshold != nil {
		cfg.IoUThreshold = *t.IoUThreshold
	}
	return cfg
}

// LoadConfig loads and validates a JSON config file. The file must have
// a .json extension and stay under 1 MB; fields omitted from the JSON
// retain their defaults, so partial configs are safe.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks structural invariants the pipeline depends on.
func (c *Config) Validate() error {
	if len(c.Cameras) == 0 {
		return fmt.Errorf("at least one camera is required")
	}

	seen := make(map[string]bool, len(c.Cameras))
	for i, cam := range c.Cameras {
		if cam.ID == "" {
			return fmt.Errorf("camera %d: id is required", i)
		}
		if seen[cam.ID] {
			return fmt.Errorf("duplicate camera id %q", cam.ID)
		}
		seen[cam.ID] = true

		if cam.Source == "" {
			return fmt.Errorf("camera %q: source is required", cam.ID)
		}
		if cam.Resolution.Width <= 0 || cam.Resolution.Height <= 0 {
			return fmt.Errorf("camera %q: resolution must be positive, got %dx%d",
				cam.ID, cam.Resolution.Width, cam.Resolution.Height)
		}
		for _, z := range cam.Zones {
			if z.Name == "" {
				return fmt.Errorf("camera %q: zone name is required", cam.ID)
			}
			if len(z.Points) < 3 {
				return fmt.Errorf("camera %q zone %q: polygon needs at least 3 points, got %d",
					cam.ID, z.Name, len(z.Points))
			}
		}
	}

	if d := c.Detection.ConfidenceThreshold; d != nil && (*d < 0 || *d > 1) {
		return fmt.Errorf("detection.confidence_threshold must be in [0,1], got %v", *d)
	}
	if t := c.Tracking.IoUThreshold; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("tracking.iou_threshold must be in [0,1], got %v", *t)
	}
	if t := c.Tracking.MaxAge; t != nil && *t <= 0 {
		return fmt.Errorf("tracking.max_age must be positive, got %d", *t)
	}
	if t := c.Tracking.MinHits; t != nil && *t <= 0 {
		return fmt.Errorf("tracking.min_hits must be positive, got %d", *t)
	}
	return nil
}
