package ports

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfStream signals that every frame has been delivered. It is a
	// terminal state, not a failure.
	ErrEndOfStream = errors.New("end of stream")

	// ErrNeedMoreInput is returned by Codec.ReceiveFrame when the decoder
	// needs another packet before it can emit a frame.
	ErrNeedMoreInput = errors.New("decoder needs more input")

	// ErrNoVideoStream is returned when a container has no decodable video stream.
	ErrNoVideoStream = errors.New("no video stream")

	// ErrUnsupportedCodec is returned when no decoder is registered for a codec.
	ErrUnsupportedCodec = errors.New("unsupported codec")

	// ErrUnknownContainer is returned when the container format is not recognised.
	ErrUnknownContainer = errors.New("unknown container format")

	// ErrInvalidStream is returned when stream geometry or time base is unusable.
	ErrInvalidStream = errors.New("invalid stream parameters")

	// ErrClosed is returned when a closed session or codec is used.
	ErrClosed = errors.New("closed")
)

// OpenError reports a failure to open a media resource.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// DecodeSubmitError reports that a compressed unit could not be submitted,
// either because it could not be read or because the decoder rejected it.
type DecodeSubmitError struct {
	Stream int
	PTS    int64
	Err    error
}

func (e *DecodeSubmitError) Error() string {
	return fmt.Sprintf("submit packet (stream %d, pts %d): %v", e.Stream, e.PTS, e.Err)
}

func (e *DecodeSubmitError) Unwrap() error { return e.Err }

// DecodeReceiveError reports a decoder failure while pulling a frame.
type DecodeReceiveError struct {
	Stream int
	Err    error
}

func (e *DecodeReceiveError) Error() string {
	return fmt.Sprintf("receive frame (stream %d): %v", e.Stream, e.Err)
}

func (e *DecodeReceiveError) Unwrap() error { return e.Err }

// UnsupportedLayoutError reports a decoded frame layout the normalizer
// cannot convert.
type UnsupportedLayoutError struct {
	Format   PixelFormat
	Planes   int
	BitDepth int
	Reason   string
}

func (e *UnsupportedLayoutError) Error() string {
	return fmt.Sprintf("unsupported frame layout %s (%d planes, %d-bit): %s",
		e.Format, e.Planes, e.BitDepth, e.Reason)
}
