// Package probe opens a media file and selects the video stream to play.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/user/framepace/pkg/adapters/ivfdemux"
	"github.com/user/framepace/pkg/adapters/mp4demux"
	"github.com/user/framepace/pkg/decode"
	"github.com/user/framepace/pkg/ports"
)

// Container identifies a file format.
type Container int

const (
	ContainerUnknown Container = iota
	ContainerMP4
	ContainerIVF
)

func (c Container) String() string {
	switch c {
	case ContainerMP4:
		return "mp4"
	case ContainerIVF:
		return "ivf"
	default:
		return "unknown"
	}
}

// sniffSize is enough for the IVF signature and one ISO box header.
const sniffSize = 12

var isoBoxTypes = [][]byte{
	[]byte("ftyp"), []byte("moov"), []byte("styp"),
	[]byte("free"), []byte("mdat"), []byte("skip"), []byte("wide"),
}

// Sniff identifies a container from its leading bytes.
func Sniff(head []byte) Container {
	if len(head) >= 4 && bytes.Equal(head[:4], []byte("DKIF")) {
		return ContainerIVF
	}
	if len(head) >= 8 {
		for _, t := range isoBoxTypes {
			if bytes.Equal(head[4:8], t) {
				return ContainerMP4
			}
		}
	}
	return ContainerUnknown
}

// Result is an opened container with its selected video stream.
type Result struct {
	Container  Container
	Demuxer    ports.Demuxer
	Stream     ports.StreamInfo
	Descriptor ports.StreamDescriptor
	Streams    []ports.StreamInfo
	// Limitation is set when the selected stream's decoder handles only
	// part of the codec, such as key frames only.
	Limitation string
}

// Close releases the demuxer.
func (r *Result) Close() error {
	return r.Demuxer.Close()
}

// Prober opens files through a FileSystem.
type Prober struct {
	fs       ports.FileSystem
	registry *decode.Registry
	log      ports.Logger
}

// New creates a prober. A nil registry means decode.DefaultRegistry and a
// nil logger discards output.
func New(fs ports.FileSystem, registry *decode.Registry, log ports.Logger) *Prober {
	if registry == nil {
		registry = decode.DefaultRegistry()
	}
	if log == nil {
		log = ports.NopLogger()
	}
	return &Prober{fs: fs, registry: registry, log: log}
}

// Open reads the container at path and selects the first decodable video
// stream. Every failure is an *ports.OpenError, and nothing stays open
// when Open fails.
func (p *Prober) Open(ctx context.Context, path string) (*Result, error) {
	fail := func(err error) (*Result, error) {
		return nil, &ports.OpenError{Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	f, err := p.fs.Open(path)
	if err != nil {
		return fail(err)
	}

	res, err := p.openReader(f)
	if err != nil {
		f.Close()
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		res.Demuxer.Close()
		return fail(err)
	}

	p.log.Info("Opened %s: %s stream %d (%s %dx%d, time base %s)",
		path, res.Container, res.Descriptor.Index, res.Descriptor.Codec,
		res.Descriptor.Width, res.Descriptor.Height, res.Descriptor.TimeBase)
	if res.Limitation != "" {
		p.log.Warn("Stream %d (%s) is only partly supported: %s",
			res.Descriptor.Index, res.Descriptor.Codec, res.Limitation)
	}
	return res, nil
}

// openReader does not close r on failure; the caller owns it until a
// Result is returned.
func (p *Prober) openReader(r ports.ReadSeekCloser) (*Result, error) {
	head := make([]byte, sniffSize)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return nil, ports.ErrUnknownContainer
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}

	res := &Result{Container: Sniff(head[:n])}
	switch res.Container {
	case ContainerIVF:
		d, err := ivfdemux.Open(r)
		if err != nil {
			return nil, err
		}
		res.Demuxer = d
	case ContainerMP4:
		d, err := mp4demux.Open(r)
		if err != nil {
			return nil, err
		}
		res.Demuxer = d
	default:
		return nil, ports.ErrUnknownContainer
	}

	res.Streams = res.Demuxer.Streams()
	for _, s := range res.Streams {
		p.log.Debug("Stream %d: %s %s %dx%d", s.Index, s.MediaType, s.Codec, s.Width, s.Height)
	}

	stream, err := SelectVideoStream(res.Streams, p.registry)
	if err != nil {
		return nil, err
	}
	res.Stream = stream
	res.Descriptor = stream.Descriptor()
	res.Limitation = p.registry.Limitation(stream.Codec)
	return res, nil
}

// SelectVideoStream returns the first stream, in enumeration order, that
// is video and has a registered decoder. Its geometry and time base must
// be usable.
func SelectVideoStream(streams []ports.StreamInfo, registry *decode.Registry) (ports.StreamInfo, error) {
	var undecodable []ports.CodecID
	for _, s := range streams {
		if s.MediaType != ports.MediaVideo {
			continue
		}
		if !registry.Supports(s.Codec) {
			undecodable = append(undecodable, s.Codec)
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return ports.StreamInfo{}, fmt.Errorf("%w: stream %d has size %dx%d",
				ports.ErrInvalidStream, s.Index, s.Width, s.Height)
		}
		if !s.TimeBase.Valid() {
			return ports.StreamInfo{}, fmt.Errorf("%w: stream %d has time base %s",
				ports.ErrInvalidStream, s.Index, s.TimeBase)
		}
		return s, nil
	}
	if len(undecodable) > 0 {
		return ports.StreamInfo{}, fmt.Errorf("%w: %v", ports.ErrUnsupportedCodec, undecodable)
	}
	return ports.StreamInfo{}, ports.ErrNoVideoStream
}
