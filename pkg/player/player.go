// Package player reads paced, normalized frames from a video file.
//
// A Session ties the prober, decoder engine, normalizer and pacer
// together. Each ReadNextFrame call pulls as many packets as the codec
// needs for one frame, converts it to RGBA and, when pacing is enabled,
// blocks until the frame's presentation time.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/user/framepace/pkg/adapters/logger"
	"github.com/user/framepace/pkg/adapters/osfilesystem"
	"github.com/user/framepace/pkg/adapters/systemclock"
	"github.com/user/framepace/pkg/decode"
	"github.com/user/framepace/pkg/normalize"
	"github.com/user/framepace/pkg/pacing"
	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/probe"
)

// Options configures a session. Zero fields other than Pace take defaults.
type Options struct {
	Registry   *decode.Registry
	Mode       normalize.Mode
	Pace       bool
	Clock      ports.Clock
	Logger     ports.Logger
	FileSystem ports.FileSystem
	// MaxFrames stops the session after that many frames. Zero means no limit.
	MaxFrames int
	// MaxSleep bounds each sleep while waiting for a frame.
	MaxSleep time.Duration
}

// DefaultOptions returns paced grayscale playback on the system clock.
func DefaultOptions() Options {
	return Options{Pace: true, MaxSleep: pacing.DefaultMaxSleep}
}

func (o *Options) fill() {
	if o.Registry == nil {
		o.Registry = decode.DefaultRegistry()
	}
	if o.Clock == nil {
		o.Clock = systemclock.New()
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoop()
	}
	if o.FileSystem == nil {
		o.FileSystem = osfilesystem.New()
	}
	if o.MaxSleep <= 0 {
		o.MaxSleep = pacing.DefaultMaxSleep
	}
}

// Stats reports session progress.
type Stats struct {
	PacketsRead      int
	PacketsSubmitted int
	PacketsDiscarded int
	FramesDecoded    int
	FramesDelivered  int
	OutOfOrder       int
	LateFrames       int
	MaxLateness      time.Duration
	MeanLateness     time.Duration
	// MediaDuration is the presentation time of the last delivered frame.
	MediaDuration time.Duration
}

// Session is one open video. It is not safe for concurrent use.
type Session struct {
	path       string
	demuxer    ports.Demuxer
	stream     ports.StreamInfo
	streams    []ports.StreamInfo
	engine     *decode.Engine
	normalizer normalize.Normalizer
	pacer      *pacing.Pacer
	opts       Options
	log        ports.Logger

	packetsRead int
	delivered   int
	lastPTS     int64
	drained     bool
	ended       bool
	closed      bool
	// failed is the first decode or conversion error. The offending unit
	// is never skipped, so every later read reports it again.
	failed error
}

// Open probes path, selects its video stream and prepares a decoder.
func Open(ctx context.Context, path string, opts Options) (*Session, error) {
	opts.fill()
	prober := probe.New(opts.FileSystem, opts.Registry, opts.Logger.WithComponent("probe"))
	res, err := prober.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	s, err := newSession(path, res.Demuxer, res.Stream, res.Streams, opts)
	if err != nil {
		res.Close()
		return nil, err
	}
	return s, nil
}

// FromDemuxer builds a session over an already open demuxer. The session
// takes ownership of d, closing it on failure.
func FromDemuxer(path string, d ports.Demuxer, opts Options) (*Session, error) {
	opts.fill()
	streams := d.Streams()
	stream, err := probe.SelectVideoStream(streams, opts.Registry)
	if err != nil {
		d.Close()
		return nil, &ports.OpenError{Path: path, Err: err}
	}
	s, err := newSession(path, d, stream, streams, opts)
	if err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

func newSession(path string, d ports.Demuxer, stream ports.StreamInfo, streams []ports.StreamInfo, opts Options) (*Session, error) {
	codec, err := opts.Registry.New(stream)
	if err != nil {
		return nil, &ports.OpenError{Path: path, Err: err}
	}

	pacer := pacing.NewPacer(opts.Clock)
	pacer.MaxSleep = opts.MaxSleep

	log := opts.Logger.WithComponent("player")
	log.Debug("Selected stream %d (%s) out of %d", stream.Index, stream.Codec, len(streams))
	return &Session{
		path:       path,
		demuxer:    d,
		stream:     stream,
		streams:    streams,
		engine:     decode.NewEngine(stream.Descriptor(), codec, opts.Logger.WithComponent("decode")),
		normalizer: normalize.Normalizer{Mode: opts.Mode},
		pacer:      pacer,
		opts:       opts,
		log:        log,
	}, nil
}

// Path returns the opened file path.
func (s *Session) Path() string {
	return s.path
}

// Descriptor returns the selected stream's descriptor.
func (s *Session) Descriptor() ports.StreamDescriptor {
	return s.stream.Descriptor()
}

// Streams returns every stream in the container.
func (s *Session) Streams() []ports.StreamInfo {
	return s.streams
}

// ReadNextFrame returns the next frame, waiting for its presentation time
// when pacing is enabled. It returns ports.ErrEndOfStream once every frame
// has been delivered, and keeps returning it on later calls. A decode or
// conversion failure is likewise returned by every later call until Close.
func (s *Session) ReadNextFrame(ctx context.Context) (*ports.NormalizedFrame, error) {
	if s.closed {
		return nil, ports.ErrClosed
	}
	if s.failed != nil {
		return nil, s.failed
	}
	if s.ended {
		return nil, ports.ErrEndOfStream
	}
	if s.opts.MaxFrames > 0 && s.delivered >= s.opts.MaxFrames {
		s.finish("frame limit")
		return nil, ports.ErrEndOfStream
	}

	raw, err := s.nextRaw(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrEndOfStream) {
			s.finish("end of stream")
		} else {
			s.fail(err)
		}
		return nil, err
	}

	frame, err := s.normalizer.Normalize(raw)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	tb := s.stream.TimeBase
	frame.Seconds = pacing.ToPresentationSeconds(frame.PTS, tb)
	target := pacing.ToDuration(frame.PTS, tb)

	if s.opts.Pace {
		late, err := s.pacer.Wait(ctx, target)
		if err != nil {
			return nil, err
		}
		if late > s.pacer.LateTolerance {
			s.log.Debug("Frame pts %d presented %s late", frame.PTS, late)
		}
	} else {
		s.pacer.Present(target)
	}

	s.delivered++
	s.lastPTS = frame.PTS
	return frame, nil
}

// nextRaw runs the submit/drain loop until the engine yields a frame or
// reports the end of the stream.
func (s *Session) nextRaw(ctx context.Context) (*ports.RawFrame, error) {
	for {
		res, err := s.engine.TryReceiveFrame()
		if err != nil {
			return nil, err
		}
		switch res.Status {
		case decode.FrameReady:
			return res.Frame, nil
		case decode.EndOfStream:
			return nil, ports.ErrEndOfStream
		}

		if s.drained {
			// flushed and still asking for input: nothing left
			return nil, ports.ErrEndOfStream
		}

		pkt, err := s.demuxer.ReadPacket(ctx)
		switch {
		case errors.Is(err, io.EOF):
			s.drained = true
			if err := s.engine.SubmitFlush(); err != nil {
				return nil, err
			}
			continue
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &ports.DecodeSubmitError{Stream: s.stream.Index, Err: fmt.Errorf("read packet: %w", err)}
		}

		s.packetsRead++
		if err := s.engine.SubmitPacket(pkt); err != nil {
			return nil, err
		}
	}
}

// fail latches err. Cancellation only interrupts the current call.
func (s *Session) fail(err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if s.failed == nil {
		s.failed = err
		s.log.Error("Playback stopped: %v", err)
	}
}

func (s *Session) finish(reason string) {
	s.ended = true
	s.log.Info("Playback finished (%s) after %d frames", reason, s.delivered)
}

// Stats returns current counters.
func (s *Session) Stats() Stats {
	es := s.engine.Stats()
	ps := s.pacer.Stats()
	st := Stats{
		PacketsRead:      s.packetsRead,
		PacketsSubmitted: es.PacketsSubmitted,
		PacketsDiscarded: es.PacketsDiscarded,
		FramesDecoded:    es.FramesDecoded,
		FramesDelivered:  s.delivered,
		OutOfOrder:       es.OutOfOrder,
		LateFrames:       ps.Late,
		MaxLateness:      ps.MaxLateness,
		MeanLateness:     ps.MeanLateness(),
	}
	if s.delivered > 0 {
		st.MediaDuration = pacing.ToDuration(s.lastPTS, s.stream.TimeBase)
	}
	return st
}

// Close releases the decoder and the container. It is safe to call more
// than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.engine.Close()
	return s.demuxer.Close()
}

// Play reads every frame of s and uploads it to sink. It returns the
// number of frames uploaded. The sink is not closed.
func Play(ctx context.Context, s *Session, sink ports.FrameSink) (int, error) {
	n := 0
	for {
		frame, err := s.ReadNextFrame(ctx)
		if errors.Is(err, ports.ErrEndOfStream) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := sink.Upload(frame); err != nil {
			return n, fmt.Errorf("upload frame %d: %w", n, err)
		}
		n++
	}
}
