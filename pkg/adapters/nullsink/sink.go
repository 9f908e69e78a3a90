// Package nullsink provides a frame sink that discards everything.
package nullsink

import "github.com/user/framepace/pkg/ports"

// Sink discards frames and counts them.
type Sink struct {
	frames int
	bytes  int64
}

// New creates a new Sink.
func New() *Sink {
	return &Sink{}
}

// Upload counts the frame and drops it.
func (s *Sink) Upload(frame *ports.NormalizedFrame) error {
	s.frames++
	s.bytes += int64(len(frame.Pix))
	return nil
}

// Close does nothing.
func (s *Sink) Close() error {
	return nil
}

// Frames returns the number of frames received.
func (s *Sink) Frames() int {
	return s.frames
}

// Bytes returns the total pixel bytes received.
func (s *Sink) Bytes() int64 {
	return s.bytes
}

var _ ports.FrameSink = (*Sink)(nil)
