package vision

import "time"

// Frame is a single-channel (luma) pixel buffer captured from a camera.
// Seq increases monotonically per source. A Frame handed out by a
// FrameSource is a private copy: the holder may mutate it freely.
type Frame struct {
	Seq    uint64
	Width  int
	Height int
	Stamp  time.Time
	Pixels []byte // len = Width*Height, row-major
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	out := f
	out.Pixels = make([]byte, len(f.Pixels))
	copy(out.Pixels, f.Pixels)
	return out
}

// At returns the pixel value at (x, y), or 0 outside the frame.
func (f Frame) At(x, y int) byte {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	return f.Pixels[y*f.Width+x]
}

// Detection is one detector observation for a single frame. Detections
// carry no identity across frames; the tracker assigns that.
type Detection struct {
	BBox       BBox
	Confidence float64
	ClassID    int
}
