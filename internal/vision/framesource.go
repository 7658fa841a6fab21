package vision

import (
	"sync"
	"time"
)

// DefaultFrameBufferSize is the bounded frame buffer capacity.
const DefaultFrameBufferSize = 10

// DefaultJoinTimeout bounds how long Stop waits for the acquisition
// goroutine before giving up.
const DefaultJoinTimeout = 2 * time.Second

// readRetryDelay paces the acquisition loop after a device read failure
// so a wedged device cannot spin the goroutine hot.
const readRetryDelay = 50 * time.Millisecond

// CaptureDevice is the underlying frame producer a FrameSource pulls
// from. Read may block at the device's native frame rate; it must return
// an error (not panic) on transient read failures.
type CaptureDevice interface {
	Open() error
	Read() (Frame, error)
	Close() error
}

// FrameSource acquires frames from a capture device on a dedicated
// goroutine and buffers the most recent ones. The buffer is bounded and
// drops the oldest frame on overflow, so consumers always observe the
// freshest available frame at the cost of completeness. The buffer is
// the only state shared between the acquisition goroutine and Latest
// callers; the lock is held only for the copy/swap, never across I/O.
type FrameSource struct {
	cameraID    string
	device      CaptureDevice
	bufferSize  int
	joinTimeout time.Duration

	mu      sync.Mutex
	buffer  []Frame
	seq     uint64
	running bool

	stop chan struct{}
	done chan struct{}
}

// NewFrameSource wraps a capture device for the given camera.
func NewFrameSource(cameraID string, device CaptureDevice) *FrameSource {
	return &FrameSource{
		cameraID:    cameraID,
		device:      device,
		bufferSize:  DefaultFrameBufferSize,
		joinTimeout: DefaultJoinTimeout,
	}
}

// Start opens the device and launches the acquisition goroutine. A
// device that fails to open is a startup failure: it is logged and
// reported as false, never raised into the pipeline.
func (s *FrameSource) Start() bool {
	if err := s.device.Open(); err != nil {
		Opsf("camera %s: failed to open capture device: %v", s.cameraID, err)
		return false
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.acquireLoop()

	Opsf("camera %s: frame source started", s.cameraID)
	return true
}

// acquireLoop pulls frames from the device continuously, independent of
// consumption, until stopped.
func (s *FrameSource) acquireLoop() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		frame, err := s.device.Read()
		if err != nil {
			// Mid-stream read failures are skipped; Latest keeps
			// returning the last good frame.
			Diagf("camera %s: frame read failed: %v", s.cameraID, err)
			select {
			case <-s.stop:
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}

		s.publish(frame)
	}
}

// publish stamps the frame with the next sequence number and appends it,
// evicting the oldest buffered frame when the buffer is full.
func (s *FrameSource) publish(frame Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	frame.Seq = s.seq
	if frame.Stamp.IsZero() {
		frame.Stamp = time.Now()
	}

	if len(s.buffer) >= s.bufferSize {
		copy(s.buffer, s.buffer[1:])
		s.buffer = s.buffer[:len(s.buffer)-1]
	}
	s.buffer = append(s.buffer, frame)
}

// Latest returns a private copy of the freshest buffered frame. It is
// safe to call concurrently with acquisition and never blocks waiting
// for a new frame.
func (s *FrameSource) Latest() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buffer) == 0 {
		return Frame{}, false
	}
	return s.buffer[len(s.buffer)-1].Clone(), true
}

// Running reports whether the source started successfully and has not
// been stopped.
func (s *FrameSource) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// BufferLen returns the number of currently buffered frames.
func (s *FrameSource) BufferLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// Stop signals the acquisition goroutine and joins it with a bounded
// timeout; failing to join in time is logged, not fatal. The device is
// closed either way.
func (s *FrameSource) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	if !wasRunning {
		return
	}

	close(s.stop)
	select {
	case <-s.done:
	case <-time.After(s.joinTimeout):
		Opsf("camera %s: acquisition goroutine did not stop within %v", s.cameraID, s.joinTimeout)
	}

	if err := s.device.Close(); err != nil {
		Opsf("camera %s: closing capture device: %v", s.cameraID, err)
	}
	Opsf("camera %s: frame source stopped", s.cameraID)
}
