// Package framequeue buffers decoded frames between SendPacket and
// ReceiveFrame for codecs that decode eagerly.
package framequeue

import (
	"errors"

	"github.com/user/framepace/pkg/ports"
)

// ErrAfterFlush is returned when a packet is sent after the flush signal.
var ErrAfterFlush = errors.New("packet sent after flush")

// Queue is a FIFO of decoded frames plus the flush state of the codec.
type Queue struct {
	frames   []ports.RawFrame
	flushing bool
}

// Push appends a decoded frame.
func (q *Queue) Push(f ports.RawFrame) {
	q.frames = append(q.frames, f)
}

// Flush marks that no more input will arrive.
func (q *Queue) Flush() {
	q.flushing = true
}

// Flushing reports whether Flush has been called.
func (q *Queue) Flushing() bool {
	return q.flushing
}

// Len returns the number of buffered frames.
func (q *Queue) Len() int {
	return len(q.frames)
}

// Pop moves the oldest frame into dst. It returns ports.ErrNeedMoreInput
// when empty, or ports.ErrEndOfStream when empty after a flush.
func (q *Queue) Pop(dst *ports.RawFrame) error {
	if len(q.frames) == 0 {
		if q.flushing {
			return ports.ErrEndOfStream
		}
		return ports.ErrNeedMoreInput
	}
	f := q.frames[0]
	q.frames[0] = ports.RawFrame{}
	q.frames = q.frames[1:]

	dst.Reset()
	dst.Width = f.Width
	dst.Height = f.Height
	dst.Format = f.Format
	dst.BitDepth = f.BitDepth
	dst.Planes = append(dst.Planes, f.Planes...)
	dst.Strides = append(dst.Strides, f.Strides...)
	dst.PTS = f.PTS
	return nil
}

// Reset drops buffered frames and clears the flush state.
func (q *Queue) Reset() {
	q.frames = nil
	q.flushing = false
}
