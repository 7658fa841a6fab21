//go:build !cv

package capture

import (
	"fmt"

	"github.com/banshee-data/occupancy.report/internal/vision"
)

// CameraDevice is unavailable without the "cv" build tag (OpenCV).
type CameraDevice struct {
	source string
}

// NewCameraDevice returns a device whose Open always fails, so a binary
// built without OpenCV degrades to an inactive camera instead of
// failing to compile.
func NewCameraDevice(source string, width, height, fps int) *CameraDevice {
	return &CameraDevice{source: source}
}

// Open reports that camera support is not compiled in.
func (d *CameraDevice) Open() error {
	return fmt.Errorf("camera source %q requires a binary built with -tags cv", d.source)
}

// Read never succeeds; Open has already failed.
func (d *CameraDevice) Read() (vision.Frame, error) {
	return vision.Frame{}, fmt.Errorf("camera %q not open", d.source)
}

// Close is a no-op.
func (d *CameraDevice) Close() error { return nil }
