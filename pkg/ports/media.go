package ports

import "fmt"

// MediaType classifies an elementary stream inside a container.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaVideo
	MediaAudio
	MediaSubtitle
	MediaData
)

// String returns the string representation of the media type.
func (m MediaType) String() string {
	switch m {
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	case MediaSubtitle:
		return "subtitle"
	case MediaData:
		return "data"
	default:
		return "unknown"
	}
}

// CodecID identifies the compression format of a stream.
type CodecID string

const (
	CodecVP8     CodecID = "vp8"
	CodecVP9     CodecID = "vp9"
	CodecMJPEG   CodecID = "mjpeg"
	CodecH264    CodecID = "h264"
	CodecH265    CodecID = "h265"
	CodecAV1     CodecID = "av1"
	CodecAAC     CodecID = "aac"
	CodecOpus    CodecID = "opus"
	CodecUnknown CodecID = "unknown"
)

// Rational is an exact fraction used for stream time bases.
// A valid time base has Den > 0.
type Rational struct {
	Num int64
	Den int64
}

// Valid reports whether the rational can be used as a time base.
func (r Rational) Valid() bool {
	return r.Den > 0 && r.Num > 0
}

// String returns the rational as "num/den".
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// StreamInfo describes one stream as enumerated by a demuxer.
type StreamInfo struct {
	Index     int
	MediaType MediaType
	Codec     CodecID
	// FourCC is the container's raw codec tag (sample entry type or IVF fourcc).
	FourCC   string
	Width    int
	Height   int
	TimeBase Rational
	// Extradata carries codec private data from the container, if any.
	Extradata []byte
}

// StreamDescriptor is the immutable description of the selected video stream.
type StreamDescriptor struct {
	Index    int
	Codec    CodecID
	Width    int
	Height   int
	TimeBase Rational
}

// Descriptor converts stream info into a StreamDescriptor.
func (s StreamInfo) Descriptor() StreamDescriptor {
	return StreamDescriptor{
		Index:    s.Index,
		Codec:    s.Codec,
		Width:    s.Width,
		Height:   s.Height,
		TimeBase: s.TimeBase,
	}
}

// Packet is one compressed unit for a single stream.
type Packet struct {
	StreamIndex int
	Data        []byte
	PTS         int64
	DTS         int64
	Duration    int64
	Keyframe    bool
}

// PixelFormat is the source plane layout of a decoded frame.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	// FormatGray8 has a single 8-bit intensity plane.
	FormatGray8
	// FormatYUV420P has full-size luma and quarter-size chroma planes.
	FormatYUV420P
	// FormatYUV422P has full-size luma and half-width chroma planes.
	FormatYUV422P
	// FormatYUV444P has three full-size planes.
	FormatYUV444P
)

// String returns the string representation of the pixel format.
func (f PixelFormat) String() string {
	switch f {
	case FormatGray8:
		return "gray8"
	case FormatYUV420P:
		return "yuv420p"
	case FormatYUV422P:
		return "yuv422p"
	case FormatYUV444P:
		return "yuv444p"
	default:
		return "unknown"
	}
}

// RawFrame is a decoded frame in the codec's native layout.
// Planes alias codec-owned storage and are only valid until the next
// ReceiveFrame call on the same codec.
type RawFrame struct {
	Width    int
	Height   int
	Format   PixelFormat
	BitDepth int
	Planes   [][]byte
	Strides  []int
	PTS      int64
}

// Reset clears plane references while keeping slice capacity.
func (f *RawFrame) Reset() {
	f.Width, f.Height = 0, 0
	f.Format = FormatUnknown
	f.BitDepth = 0
	f.Planes = f.Planes[:0]
	f.Strides = f.Strides[:0]
	f.PTS = 0
}

// NormalizedFrame is a packed RGBA frame owned by the caller.
// Pix holds exactly Width*Height*4 bytes with no row padding.
type NormalizedFrame struct {
	Width  int
	Height int
	Pix    []byte
	PTS    int64
	// Seconds is the presentation time derived from PTS and the stream time base.
	Seconds float64
}

// Stride returns the row length in bytes.
func (f *NormalizedFrame) Stride() int {
	return f.Width * 4
}
