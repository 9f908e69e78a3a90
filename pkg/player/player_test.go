package player

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/framepace/pkg/adapters/ivfdemux"
	"github.com/user/framepace/pkg/decode"
	"github.com/user/framepace/pkg/mocks"
	"github.com/user/framepace/pkg/pacing"
	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/synth"
)

var thirtyFPS = ports.Rational{Num: 1, Den: 30}

// mockSetup is a two-stream container: audio on stream 0, video on 1.
func mockSetup(frames int, delay int) (*mocks.Demuxer, *mocks.Codec, Options) {
	streams := []ports.StreamInfo{
		{Index: 0, MediaType: ports.MediaAudio, Codec: ports.CodecAAC, TimeBase: ports.Rational{Num: 1, Den: 48000}},
		{Index: 1, MediaType: ports.MediaVideo, Codec: ports.CodecH264, Width: 8, Height: 4, TimeBase: thirtyFPS},
	}
	var packets []ports.Packet
	for i := 0; i < frames; i++ {
		packets = append(packets,
			ports.Packet{StreamIndex: 0, PTS: int64(i * 1600), Data: []byte{0xFF}},
			ports.Packet{StreamIndex: 1, PTS: int64(i), Data: []byte{byte(10 * (i + 1))}},
		)
	}
	codec := mocks.NewCodec(8, 4)
	codec.Delay = delay
	codec.Padding = 3

	registry := decode.NewRegistry()
	registry.Register(ports.CodecH264, func(ports.StreamInfo) (ports.Codec, error) {
		return codec, nil
	})
	opts := Options{
		Registry: registry,
		Clock:    mocks.NewClock(0),
	}
	return mocks.NewDemuxer(streams, packets), codec, opts
}

func readAll(t *testing.T, s *Session) []*ports.NormalizedFrame {
	t.Helper()
	var frames []*ports.NormalizedFrame
	for {
		f, err := s.ReadNextFrame(context.Background())
		if errors.Is(err, ports.ErrEndOfStream) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func TestSessionDeliversEveryFrame(t *testing.T) {
	demux, _, opts := mockSetup(5, 2)
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 1, s.Descriptor().Index)

	frames := readAll(t, s)
	require.Len(t, frames, 5)
	for i, f := range frames {
		assert.Equal(t, int64(i), f.PTS)
		assert.InDelta(t, float64(i)/30, f.Seconds, 1e-9)
		require.Len(t, f.Pix, 8*4*4)
		level := byte(10 * (i + 1))
		assert.Equal(t, []byte{level, level, level, 0xFF}, f.Pix[len(f.Pix)-4:])
	}

	st := s.Stats()
	assert.Equal(t, 10, st.PacketsRead)
	assert.Equal(t, 5, st.PacketsSubmitted)
	assert.Equal(t, 5, st.PacketsDiscarded)
	assert.Equal(t, 5, st.FramesDecoded)
	assert.Equal(t, 5, st.FramesDelivered)
	assert.Equal(t, 4*time.Second/30, st.MediaDuration)
}

func TestSessionEndOfStreamRepeats(t *testing.T) {
	demux, _, opts := mockSetup(1, 0)
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)
	defer s.Close()

	require.Len(t, readAll(t, s), 1)
	reads := demux.Reads
	for i := 0; i < 3; i++ {
		_, err := s.ReadNextFrame(context.Background())
		assert.ErrorIs(t, err, ports.ErrEndOfStream)
	}
	assert.Equal(t, reads, demux.Reads)
}

func TestSessionPacesAgainstClock(t *testing.T) {
	demux, _, opts := mockSetup(3, 0)
	clock := mocks.NewClock(time.Hour)
	opts.Clock = clock
	opts.Pace = true
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadNextFrame(context.Background())
	require.NoError(t, err)
	assert.Empty(t, clock.Sleeps)

	readAll(t, s)
	assert.Equal(t, 66666667*time.Nanosecond, clock.TotalSlept())
	for _, d := range clock.Sleeps {
		assert.LessOrEqual(t, d, 50*time.Millisecond)
	}
	assert.Zero(t, s.Stats().LateFrames)
}

func TestSessionCountsLateFrames(t *testing.T) {
	demux, codec, opts := mockSetup(3, 0)
	clock := mocks.NewClock(0)
	opts.Clock = clock
	opts.Pace = true
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadNextFrame(context.Background())
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = s.ReadNextFrame(context.Background())
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, 1, st.LateFrames)
	assert.Equal(t, time.Second-pacing.ToDuration(1, thirtyFPS), st.MaxLateness)
	assert.False(t, codec.Closed)
}

func TestSessionMaxFrames(t *testing.T) {
	demux, _, opts := mockSetup(5, 0)
	opts.MaxFrames = 2
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)
	defer s.Close()

	assert.Len(t, readAll(t, s), 2)
}

func TestSessionClose(t *testing.T) {
	demux, codec, opts := mockSetup(2, 0)
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, demux.Closed)
	assert.True(t, codec.Closed)

	_, err = s.ReadNextFrame(context.Background())
	assert.ErrorIs(t, err, ports.ErrClosed)
}

func TestSessionReadErrorIsSubmitError(t *testing.T) {
	demux, _, opts := mockSetup(3, 0)
	demux.FailAt = 1
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadNextFrame(context.Background())
	var submitErr *ports.DecodeSubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, 1, submitErr.Stream)
	assert.ErrorIs(t, err, mocks.ErrInjected)
}

func TestSessionDecodeErrorIsSticky(t *testing.T) {
	demux, codec, opts := mockSetup(3, 0)
	codec.FailSendPTS = map[int64]bool{1: true}
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)
	defer s.Close()

	f, err := s.ReadNextFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.PTS)

	_, err = s.ReadNextFrame(context.Background())
	var submitErr *ports.DecodeSubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, int64(1), submitErr.PTS)
	reads := demux.Reads

	for i := 0; i < 3; i++ {
		_, again := s.ReadNextFrame(context.Background())
		assert.Same(t, err, again)
	}
	assert.Equal(t, reads, demux.Reads, "no packet past the failed one is read")
	assert.Equal(t, 1, s.Stats().FramesDelivered)

	require.NoError(t, s.Close())
	_, err = s.ReadNextFrame(context.Background())
	assert.ErrorIs(t, err, ports.ErrClosed)
}

func TestSessionRejectsFrameSizeMismatch(t *testing.T) {
	demux, codec, opts := mockSetup(2, 0)
	codec.Width, codec.Height = 16, 8
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadNextFrame(context.Background())
	var recvErr *ports.DecodeReceiveError
	require.ErrorAs(t, err, &recvErr)
	assert.ErrorIs(t, err, decode.ErrFrameSize)

	_, err = s.ReadNextFrame(context.Background())
	assert.ErrorIs(t, err, decode.ErrFrameSize)
	assert.Equal(t, 0, s.Stats().FramesDelivered)
}

func TestSessionCancelledRead(t *testing.T) {
	demux, codec, opts := mockSetup(3, 0)
	ctx, cancel := context.WithCancel(context.Background())
	demux.ReadFunc = func(ctx context.Context) (ports.Packet, error) {
		cancel()
		return ports.Packet{}, ctx.Err()
	}
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)

	_, err = s.ReadNextFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, s.Close())
	assert.True(t, codec.Closed)
}

func TestFromDemuxerWithoutVideo(t *testing.T) {
	demux := mocks.NewDemuxer([]ports.StreamInfo{
		{Index: 0, MediaType: ports.MediaAudio, Codec: ports.CodecOpus},
	}, nil)

	_, err := FromDemuxer("audio.mp4", demux, Options{})
	var openErr *ports.OpenError
	require.ErrorAs(t, err, &openErr)
	assert.ErrorIs(t, err, ports.ErrNoVideoStream)
	assert.Equal(t, 1, demux.Closed)
}

func TestPlayUploadsToSink(t *testing.T) {
	demux, _, opts := mockSetup(4, 1)
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)
	defer s.Close()

	sink := mocks.NewFrameSink()
	n, err := Play(context.Background(), s, sink)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, sink.Frames, 4)
	assert.False(t, sink.Closed)
}

func TestPlaySinkError(t *testing.T) {
	demux, _, opts := mockSetup(4, 0)
	s, err := FromDemuxer("mock", demux, opts)
	require.NoError(t, err)
	defer s.Close()

	sink := mocks.NewFrameSink()
	sink.UploadFunc = func(*ports.NormalizedFrame) error { return mocks.ErrInjected }
	_, err = Play(context.Background(), s, sink)
	assert.ErrorIs(t, err, mocks.ErrInjected)
}

func TestOpenSynthesizedClips(t *testing.T) {
	tests := []struct {
		name        string
		container   string
		progressive bool
	}{
		{"fragmented mp4", synth.ContainerMP4, false},
		{"progressive mp4", synth.ContainerMP4, true},
		{"ivf", synth.ContainerIVF, false},
	}
	for _, tt := range tests {
		container := tt.container
		t.Run(tt.name, func(t *testing.T) {
			o := synth.DefaultOptions()
			o.Container = container
			o.Progressive = tt.progressive
			o.Width, o.Height = 32, 16
			o.Frames = 4
			o.Flat = true
			o.Gray = true
			o.WithAudio = container == synth.ContainerMP4
			data, err := synth.Bytes(o)
			require.NoError(t, err)

			fs := mocks.NewFileSystem()
			require.NoError(t, fs.WriteFile("clip", data))

			s, err := Open(context.Background(), "clip", Options{FileSystem: fs, Clock: mocks.NewClock(0)})
			require.NoError(t, err)
			defer s.Close()

			frames := readAll(t, s)
			require.Len(t, frames, 4)
			for i, f := range frames {
				assert.Equal(t, 32, f.Width)
				assert.Equal(t, 16, f.Height)
				assert.InDelta(t, float64(i)/30, f.Seconds, 1e-6)
				assert.InDelta(t, int(synth.FlatLevel(i)), int(f.Pix[0]), 3)
				assert.Equal(t, byte(0xFF), f.Pix[3])
			}
		})
	}
}

// ivfClip writes an MJPEG IVF file whose frames are the given payloads.
// A nil payload is replaced by a valid w x h JPEG.
func ivfClip(t *testing.T, width, height int, payloads ...[]byte) []byte {
	t.Helper()
	o := synth.DefaultOptions()
	o.Width, o.Height = width, height
	o.Flat = true

	var buf bytes.Buffer
	w, err := ivfdemux.NewWriter(&buf, "MJPG", width, height, 30, 1, uint32(len(payloads)))
	require.NoError(t, err)
	for i, p := range payloads {
		if p == nil {
			p, err = synth.EncodeJPEG(synth.Frame(o, i), true, 90)
			require.NoError(t, err)
		}
		require.NoError(t, w.WriteFrame(p, uint64(i)))
	}
	return buf.Bytes()
}

func openClip(t *testing.T, data []byte) *Session {
	t.Helper()
	fs := mocks.NewFileSystem()
	require.NoError(t, fs.WriteFile("clip.ivf", data))
	s, err := Open(context.Background(), "clip.ivf", Options{FileSystem: fs, Clock: mocks.NewClock(0)})
	require.NoError(t, err)
	return s
}

func TestOpenCorruptFrameStopsPlayback(t *testing.T) {
	s := openClip(t, ivfClip(t, 16, 16, nil, []byte{0xde, 0xad}, nil))
	defer s.Close()

	f, err := s.ReadNextFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.PTS)

	_, err = s.ReadNextFrame(context.Background())
	var submitErr *ports.DecodeSubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, int64(1), submitErr.PTS)

	_, err = s.ReadNextFrame(context.Background())
	assert.ErrorAs(t, err, &submitErr, "the frame after the corrupt one is not delivered")
}

func TestOpenFrameLargerThanHeader(t *testing.T) {
	o := synth.DefaultOptions()
	o.Width, o.Height = 32, 8
	o.Flat = true
	jpg, err := synth.EncodeJPEG(synth.Frame(o, 0), true, 90)
	require.NoError(t, err)

	s := openClip(t, ivfClip(t, 16, 16, jpg))
	defer s.Close()
	assert.Equal(t, 16, s.Descriptor().Width)

	_, err = s.ReadNextFrame(context.Background())
	var recvErr *ports.DecodeReceiveError
	require.ErrorAs(t, err, &recvErr)
	assert.ErrorIs(t, err, decode.ErrFrameSize)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), "nope.mp4", Options{FileSystem: mocks.NewFileSystem()})
	var openErr *ports.OpenError
	assert.ErrorAs(t, err, &openErr)
}
