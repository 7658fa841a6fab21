// Package detect provides the detection port consumed by the tracking
// pipeline, plus the built-in detector implementations. Any detector can
// be substituted as long as it satisfies Port; the pipeline treats a
// failing or unavailable detector as "zero detections this cycle".
package detect

import (
	"errors"

	"github.com/banshee-data/occupancy.report/internal/vision"
)

// Port is the pluggable detection capability: given a frame, return the
// detections observed in it. Implementations must be side-effect-free
// from the pipeline's perspective and report availability explicitly
// rather than degrading silently.
type Port interface {
	// Detect returns the detections for one frame. Errors are contained
	// by the caller and never propagate beyond the camera's cycle.
	Detect(frame vision.Frame) ([]vision.Detection, error)

	// Available reports whether the detector is usable. An unavailable
	// port yields zero detections without being treated as a failure.
	Available() bool
}

// ErrUnavailable is returned by detectors that have been constructed but
// cannot operate (missing model, closed device).
var ErrUnavailable = errors.New("detector unavailable")

// Failing is a Port whose Detect always returns the wrapped error. Used
// to exercise the pipeline's failure containment.
type Failing struct {
	Err error
}

// Detect always fails.
func (f Failing) Detect(vision.Frame) ([]vision.Detection, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return nil, ErrUnavailable
}

// Available reports true so the pipeline actually invokes Detect.
func (f Failing) Available() bool { return true }
