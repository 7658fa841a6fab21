package detect

import "github.com/banshee-data/occupancy.report/internal/vision"

// Scripted is a deterministic Port that plays back a fixed sequence of
// detection sets, one per Detect call. After the script runs out it
// keeps returning the final set (or loops when Loop is set). It stands
// in for a real model in dev mode and in tests, where reproducibility
// matters more than realism.
type Scripted struct {
	Script [][]vision.Detection
	Loop   bool

	cursor int
}

// NewScripted builds a scripted detector over the given sequence.
func NewScripted(script [][]vision.Detection, loop bool) *Scripted {
	return &Scripted{Script: script, Loop: loop}
}

// Available reports whether any script is loaded.
func (s *Scripted) Available() bool { return len(s.Script) > 0 }

// Detect returns the next scripted detection set. The returned slice is
// a copy so callers may mutate it.
func (s *Scripted) Detect(vision.Frame) ([]vision.Detection, error) {
	if len(s.Script) == 0 {
		return nil, nil
	}

	step := s.Script[s.cursor]
	if s.cursor < len(s.Script)-1 {
		s.cursor++
	} else if s.Loop {
		s.cursor = 0
	}

	out := make([]vision.Detection, len(step))
	copy(out, step)
	return out, nil
}

// Rewind restarts the script from the beginning.
func (s *Scripted) Rewind() { s.cursor = 0 }
