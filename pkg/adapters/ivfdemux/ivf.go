// Package ivfdemux reads and writes IVF, the simple frame container used
// for VP8/VP9/AV1 elementary streams.
package ivfdemux

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/user/framepace/pkg/adapters/codecdetect"
	"github.com/user/framepace/pkg/ports"
)

const (
	signature  = "DKIF"
	headerSize = 32
	// maxFrameSize bounds a single frame allocation against corrupt headers.
	maxFrameSize = 64 << 20
)

var (
	// ErrBadSignature is returned when the file does not start with DKIF.
	ErrBadSignature = errors.New("ivfdemux: not an IVF file")
	// ErrUnsupportedVersion is returned for IVF versions other than 0.
	ErrUnsupportedVersion = errors.New("ivfdemux: unsupported IVF version")
	// ErrFrameTooLarge is returned when a frame header declares an implausible size.
	ErrFrameTooLarge = errors.New("ivfdemux: frame too large")
)

// Header is the 32-byte IVF file header.
type Header struct {
	Signature  [4]byte
	Version    uint16
	Size       uint16
	FourCC     [4]byte
	Width      uint16
	Height     uint16
	FrameRate  uint32
	FrameScale uint32
	FrameCount uint32
	_          uint32
}

// TimeBase returns the stream time base: FrameScale/FrameRate seconds per tick.
func (h Header) TimeBase() ports.Rational {
	return ports.Rational{Num: int64(h.FrameScale), Den: int64(h.FrameRate)}
}

type frameHeader struct {
	Size uint32
	PTS  uint64
}

// Demuxer implements ports.Demuxer for IVF files. An IVF file carries
// exactly one video stream, reported as stream 0.
type Demuxer struct {
	reader io.Reader
	closer io.Closer
	header Header
	stream ports.StreamInfo
	closed bool
}

// Open reads and validates the IVF header from r.
func Open(r io.Reader) (*Demuxer, error) {
	var hdr Header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Signature[:]) != signature {
		return nil, ErrBadSignature
	}
	if hdr.Version != 0 {
		return nil, ErrUnsupportedVersion
	}
	// Skip any header extension beyond the fixed 32 bytes.
	if hdr.Size > headerSize {
		if _, err := io.CopyN(io.Discard, r, int64(hdr.Size-headerSize)); err != nil {
			return nil, fmt.Errorf("skip header extension: %w", err)
		}
	}

	fourcc := string(hdr.FourCC[:])
	d := &Demuxer{
		reader: r,
		header: hdr,
		stream: ports.StreamInfo{
			Index:     0,
			MediaType: ports.MediaVideo,
			Codec:     codecdetect.FromFourCC(fourcc),
			FourCC:    fourcc,
			Width:     int(hdr.Width),
			Height:    int(hdr.Height),
			TimeBase:  hdr.TimeBase(),
		},
	}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	return d, nil
}

// Header returns the parsed file header.
func (d *Demuxer) Header() Header {
	return d.header
}

// Streams returns the single video stream.
func (d *Demuxer) Streams() []ports.StreamInfo {
	return []ports.StreamInfo{d.stream}
}

// ReadPacket reads the next frame. A clean end of file yields io.EOF; a
// frame cut short yields io.ErrUnexpectedEOF.
func (d *Demuxer) ReadPacket(ctx context.Context) (ports.Packet, error) {
	if d.closed {
		return ports.Packet{}, ports.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return ports.Packet{}, err
	}

	var fh frameHeader
	if err := binary.Read(d.reader, binary.LittleEndian, &fh); err != nil {
		if errors.Is(err, io.EOF) {
			return ports.Packet{}, io.EOF
		}
		return ports.Packet{}, fmt.Errorf("read frame header: %w", err)
	}
	if fh.Size > maxFrameSize {
		return ports.Packet{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, fh.Size)
	}

	data := make([]byte, fh.Size)
	if _, err := io.ReadFull(d.reader, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return ports.Packet{}, fmt.Errorf("read frame: %w", err)
	}

	pts := int64(fh.PTS)
	return ports.Packet{
		StreamIndex: 0,
		Data:        data,
		PTS:         pts,
		DTS:         pts,
		Keyframe:    isKeyframe(d.stream.Codec, data),
	}, nil
}

// isKeyframe inspects the VP8 frame tag; other codecs report every frame
// as a keyframe.
func isKeyframe(codec ports.CodecID, data []byte) bool {
	if codec == ports.CodecVP8 {
		return len(data) > 0 && data[0]&0x01 == 0
	}
	return true
}

// Close releases the underlying reader. It is safe to call more than once.
func (d *Demuxer) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
