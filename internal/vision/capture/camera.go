//go:build cv

package capture

import (
	"fmt"
	"image"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/banshee-data/occupancy.report/internal/vision"
)

// CameraDevice reads frames from a real capture source via OpenCV. The
// source is a device index ("0"), a file path, or a stream URL; frames
// are converted to single-channel luma for the pipeline.
type CameraDevice struct {
	source string
	width  int
	height int
	fps    int

	cap  *gocv.VideoCapture
	bgr  gocv.Mat
	gray gocv.Mat
}

// NewCameraDevice describes a camera without opening it.
func NewCameraDevice(source string, width, height, fps int) *CameraDevice {
	return &CameraDevice{source: source, width: width, height: height, fps: fps}
}

// Open opens the capture source and applies resolution and frame-rate
// hints. Drivers may ignore the hints; Read scales nothing and reports
// whatever the device delivers.
func (d *CameraDevice) Open() error {
	var (
		cap *gocv.VideoCapture
		err error
	)
	if idx, convErr := strconv.Atoi(d.source); convErr == nil {
		cap, err = gocv.OpenVideoCapture(idx)
	} else {
		cap, err = gocv.OpenVideoCapture(d.source)
	}
	if err != nil {
		return fmt.Errorf("open capture source %q: %w", d.source, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return fmt.Errorf("capture source %q did not open", d.source)
	}

	if d.width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(d.width))
	}
	if d.height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(d.height))
	}
	if d.fps > 0 {
		cap.Set(gocv.VideoCaptureFPS, float64(d.fps))
	}

	d.cap = cap
	d.bgr = gocv.NewMat()
	d.gray = gocv.NewMat()
	return nil
}

// Read pulls one frame, converting BGR to luma.
func (d *CameraDevice) Read() (vision.Frame, error) {
	if d.cap == nil {
		return vision.Frame{}, fmt.Errorf("camera %q not open", d.source)
	}
	if ok := d.cap.Read(&d.bgr); !ok || d.bgr.Empty() {
		return vision.Frame{}, fmt.Errorf("camera %q: read failed", d.source)
	}

	gocv.CvtColor(d.bgr, &d.gray, gocv.ColorBGRToGray)
	if d.width > 0 && d.height > 0 && (d.gray.Cols() != d.width || d.gray.Rows() != d.height) {
		gocv.Resize(d.gray, &d.gray, image.Pt(d.width, d.height), 0, 0, gocv.InterpolationLinear)
	}

	pixels := make([]byte, d.gray.Cols()*d.gray.Rows())
	copy(pixels, d.gray.ToBytes())
	return vision.Frame{
		Width:  d.gray.Cols(),
		Height: d.gray.Rows(),
		Pixels: pixels,
	}, nil
}

// Close releases the capture handle and scratch mats.
func (d *CameraDevice) Close() error {
	if d.cap == nil {
		return nil
	}
	d.bgr.Close()
	d.gray.Close()
	err := d.cap.Close()
	d.cap = nil
	if err != nil {
		return fmt.Errorf("close capture source %q: %w", d.source, err)
	}
	return nil
}
