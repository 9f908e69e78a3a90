package mocks

import (
	"sync"

	"github.com/user/framepace/pkg/ports"
)

// FrameSink is a mock ports.FrameSink recording uploaded frames.
type FrameSink struct {
	mu         sync.Mutex
	Frames     []*ports.NormalizedFrame
	UploadFunc func(frame *ports.NormalizedFrame) error
	Closed     bool
}

// NewFrameSink creates a recording sink.
func NewFrameSink() *FrameSink {
	return &FrameSink{}
}

func (s *FrameSink) Upload(frame *ports.NormalizedFrame) error {
	if s.UploadFunc != nil {
		if err := s.UploadFunc(frame); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Frames = append(s.Frames, frame)
	return nil
}

func (s *FrameSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

var _ ports.FrameSink = (*FrameSink)(nil)
