// Package decode drives a packet-in/frame-out codec for one selected
// video stream.
//
// The engine is a small state machine:
//
//	Idle -> AwaitingPacket -> Decoding -> FrameReady -> (AwaitingPacket | Exhausted)
//
// Callers submit packets and then drain TryReceiveFrame until it reports
// NeedsMoreInput. After the container is exhausted they call SubmitFlush
// and keep draining until EndOfStream.
package decode

import (
	"errors"
	"fmt"

	"github.com/user/framepace/pkg/ports"
)

var (
	// ErrFlushed is returned when a packet is submitted after SubmitFlush.
	ErrFlushed = errors.New("decode: packet submitted after flush")
	// ErrFrameSize is returned when a decoded frame's dimensions differ
	// from the stream descriptor.
	ErrFrameSize = errors.New("decode: frame size differs from stream")
)

// State is the engine's position in the decode protocol.
type State int

const (
	StateIdle State = iota
	StateAwaitingPacket
	StateDecoding
	StateFrameReady
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPacket:
		return "awaiting-packet"
	case StateDecoding:
		return "decoding"
	case StateFrameReady:
		return "frame-ready"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Status tags the outcome of TryReceiveFrame.
type Status int

const (
	NeedsMoreInput Status = iota
	FrameReady
	EndOfStream
)

func (s Status) String() string {
	switch s {
	case NeedsMoreInput:
		return "needs-more-input"
	case FrameReady:
		return "frame-ready"
	case EndOfStream:
		return "end-of-stream"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of one receive step. Frame is set only when
// Status is FrameReady and stays valid until the next engine call.
type Result struct {
	Status Status
	Frame  *ports.RawFrame
}

// Stats counts engine activity over a session.
type Stats struct {
	PacketsSubmitted int
	PacketsDiscarded int
	FramesDecoded    int
	// OutOfOrder counts frames whose PTS went backwards.
	OutOfOrder int
}

// Engine owns the decoder state of one stream.
type Engine struct {
	stream ports.StreamDescriptor
	codec  ports.Codec
	log    ports.Logger

	state     State
	submitted bool
	flushed   bool
	closed    bool

	frame   ports.RawFrame
	lastPTS int64
	hasPTS  bool
	stats   Stats
}

// NewEngine creates an engine for stream. It takes ownership of codec.
func NewEngine(stream ports.StreamDescriptor, codec ports.Codec, log ports.Logger) *Engine {
	if log == nil {
		log = ports.NopLogger()
	}
	return &Engine{
		stream: stream,
		codec:  codec,
		log:    log,
		state:  StateIdle,
	}
}

// State returns the current protocol state.
func (e *Engine) State() State {
	return e.state
}

// Stats returns activity counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// SubmitPacket feeds one compressed unit. Packets for other streams are
// discarded without error.
func (e *Engine) SubmitPacket(pkt ports.Packet) error {
	if e.closed {
		return ports.ErrClosed
	}
	if pkt.StreamIndex != e.stream.Index {
		e.stats.PacketsDiscarded++
		return nil
	}
	if e.flushed {
		return &ports.DecodeSubmitError{Stream: pkt.StreamIndex, PTS: pkt.PTS, Err: ErrFlushed}
	}

	if err := e.codec.SendPacket(&pkt); err != nil {
		return &ports.DecodeSubmitError{Stream: pkt.StreamIndex, PTS: pkt.PTS, Err: err}
	}
	e.stats.PacketsSubmitted++
	e.submitted = true
	e.state = StateDecoding
	e.log.Debug("Submitted packet pts=%d size=%d", pkt.PTS, len(pkt.Data))
	return nil
}

// SubmitFlush signals that the container is exhausted. Calling it more
// than once has no further effect.
func (e *Engine) SubmitFlush() error {
	if e.closed {
		return ports.ErrClosed
	}
	if e.flushed {
		return nil
	}
	if err := e.codec.SendPacket(nil); err != nil {
		return &ports.DecodeSubmitError{Stream: e.stream.Index, Err: err}
	}
	e.flushed = true
	e.submitted = true
	if e.state != StateExhausted {
		e.state = StateDecoding
	}
	e.log.Debug("Flushing decoder")
	return nil
}

// TryReceiveFrame pulls the next frame from the codec. It never queries
// the codec before the first packet or flush has been submitted.
func (e *Engine) TryReceiveFrame() (Result, error) {
	if e.closed {
		return Result{}, ports.ErrClosed
	}
	if e.state == StateExhausted {
		return Result{Status: EndOfStream}, nil
	}
	if !e.submitted {
		e.state = StateAwaitingPacket
		return Result{Status: NeedsMoreInput}, nil
	}

	err := e.codec.ReceiveFrame(&e.frame)
	switch {
	case err == nil:
		if e.frame.Width != e.stream.Width || e.frame.Height != e.stream.Height {
			return Result{}, &ports.DecodeReceiveError{
				Stream: e.stream.Index,
				Err: fmt.Errorf("%w: frame %dx%d, stream %dx%d", ErrFrameSize,
					e.frame.Width, e.frame.Height, e.stream.Width, e.stream.Height),
			}
		}
		e.accept()
		return Result{Status: FrameReady, Frame: &e.frame}, nil
	case errors.Is(err, ports.ErrNeedMoreInput):
		if e.flushed {
			// A flushed codec has nothing more to wait for.
			e.state = StateExhausted
			return Result{Status: EndOfStream}, nil
		}
		e.state = StateAwaitingPacket
		return Result{Status: NeedsMoreInput}, nil
	case errors.Is(err, ports.ErrEndOfStream):
		e.state = StateExhausted
		e.log.Debug("Decoder drained after %d frames", e.stats.FramesDecoded)
		return Result{Status: EndOfStream}, nil
	default:
		return Result{}, &ports.DecodeReceiveError{Stream: e.stream.Index, Err: err}
	}
}

func (e *Engine) accept() {
	e.state = StateFrameReady
	e.stats.FramesDecoded++
	if e.hasPTS && e.frame.PTS < e.lastPTS {
		e.stats.OutOfOrder++
		e.log.Warn("Frame pts %d precedes previous pts %d", e.frame.PTS, e.lastPTS)
	}
	e.lastPTS = e.frame.PTS
	e.hasPTS = true
}

// Close releases the codec. It is safe to call more than once.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.frame.Reset()
	e.codec.Close()
}
