package vision

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeDevice serves a scripted frame list; once exhausted, Read fails so
// the acquisition loop idles on its retry delay instead of spinning.
type fakeDevice struct {
	mu      sync.Mutex
	frames  []Frame
	idx     int
	openErr error
	opened  bool
	closed  bool
}

func (d *fakeDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return d.openErr
	}
	d.opened = true
	return nil
}

func (d *fakeDevice) Read() (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.idx >= len(d.frames) {
		return Frame{}, errors.New("script exhausted")
	}
	f := d.frames[d.idx]
	d.idx++
	return f, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func grayFrame(w, h int, fill byte) Frame {
	px := make([]byte, w*h)
	for i := range px {
		px[i] = fill
	}
	return Frame{Width: w, Height: h, Pixels: px}
}

func TestFrameSource_OpenFailure(t *testing.T) {
	s := NewFrameSource("cam1", &fakeDevice{openErr: errors.New("no such device")})
	if s.Start() {
		t.Fatal("expected Start to report failure when the device cannot open")
	}
	if s.Running() {
		t.Error("source must not be running after a failed start")
	}
}

func TestFrameSource_DropOldest(t *testing.T) {
	s := NewFrameSource("cam1", &fakeDevice{})

	// Publish past capacity without starting the goroutine.
	for i := 0; i < DefaultFrameBufferSize+5; i++ {
		s.publish(grayFrame(4, 4, byte(i)))
	}

	if got := s.BufferLen(); got != DefaultFrameBufferSize {
		t.Fatalf("expected buffer capped at %d, got %d", DefaultFrameBufferSize, got)
	}

	frame, ok := s.Latest()
	if !ok {
		t.Fatal("expected a frame")
	}
	if frame.Seq != uint64(DefaultFrameBufferSize+5) {
		t.Errorf("expected freshest frame seq %d, got %d", DefaultFrameBufferSize+5, frame.Seq)
	}
}

func TestFrameSource_SeqMonotonic(t *testing.T) {
	s := NewFrameSource("cam1", &fakeDevice{})
	for i := 0; i < 3; i++ {
		s.publish(grayFrame(2, 2, 0))
	}
	frame, _ := s.Latest()
	if frame.Seq != 3 {
		t.Errorf("expected seq 3 after three publishes, got %d", frame.Seq)
	}
}

func TestFrameSource_LatestEmpty(t *testing.T) {
	s := NewFrameSource("cam1", &fakeDevice{})
	if _, ok := s.Latest(); ok {
		t.Error("expected no frame before any publish")
	}
}

func TestFrameSource_LatestIsCopy(t *testing.T) {
	s := NewFrameSource("cam1", &fakeDevice{})
	s.publish(grayFrame(2, 2, 7))

	frame, _ := s.Latest()
	frame.Pixels[0] = 99

	again, _ := s.Latest()
	if again.Pixels[0] != 7 {
		t.Error("mutating a returned frame leaked into the buffer")
	}
}

func TestFrameSource_StartStop(t *testing.T) {
	dev := &fakeDevice{frames: []Frame{
		grayFrame(4, 4, 1),
		grayFrame(4, 4, 2),
		grayFrame(4, 4, 3),
	}}
	s := NewFrameSource("cam1", dev)

	if !s.Start() {
		t.Fatal("expected Start to succeed")
	}
	if !s.Running() {
		t.Error("expected source running after start")
	}

	// Wait for the acquisition goroutine to drain the script.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if frame, ok := s.Latest(); ok && frame.Seq == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for frames to be acquired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Stop()
	if s.Running() {
		t.Error("expected source stopped")
	}
	if !dev.isClosed() {
		t.Error("expected the device to be closed on stop")
	}

	// Stopping twice is a no-op.
	s.Stop()
}

func TestFrameSource_FramesStampedOnPublish(t *testing.T) {
	s := NewFrameSource("cam1", &fakeDevice{})
	s.publish(grayFrame(2, 2, 0))
	frame, _ := s.Latest()
	if frame.Stamp.IsZero() {
		t.Error("expected a publish timestamp on unstamped frames")
	}
}
