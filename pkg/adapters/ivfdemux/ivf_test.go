package ivfdemux

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/framepace/pkg/ports"
)

func buildIVF(t *testing.T, fourcc string, frames [][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, fourcc, 64, 48, 30, 1, uint32(len(frames)))
	require.NoError(t, err)
	for i, f := range frames {
		require.NoError(t, w.WriteFrame(f, uint64(i)))
	}
	return buf.Bytes()
}

func TestOpen_Header(t *testing.T) {
	data := buildIVF(t, "VP80", nil)
	require.Len(t, data, headerSize)

	d, err := Open(bytes.NewReader(data))
	require.NoError(t, err)

	streams := d.Streams()
	require.Len(t, streams, 1)
	s := streams[0]
	assert.Equal(t, 0, s.Index)
	assert.Equal(t, ports.MediaVideo, s.MediaType)
	assert.Equal(t, ports.CodecVP8, s.Codec)
	assert.Equal(t, 64, s.Width)
	assert.Equal(t, 48, s.Height)
	assert.Equal(t, ports.Rational{Num: 1, Den: 30}, s.TimeBase)
}

func TestOpen_BadSignature(t *testing.T) {
	data := buildIVF(t, "VP80", nil)
	copy(data, "RIFF")

	_, err := Open(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestOpen_Truncated(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte("DKIF")))
	assert.Error(t, err)
}

func TestReadPacket_Sequence(t *testing.T) {
	frames := [][]byte{{0x00, 0x01}, {0x01, 0x02, 0x03}, {0x00}}
	d, err := Open(bytes.NewReader(buildIVF(t, "VP80", frames)))
	require.NoError(t, err)

	ctx := context.Background()
	for i, want := range frames {
		pkt, err := d.ReadPacket(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, pkt.Data)
		assert.Equal(t, int64(i), pkt.PTS)
		assert.Equal(t, 0, pkt.StreamIndex)
	}

	_, err = d.ReadPacket(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadPacket_VP8KeyframeFlag(t *testing.T) {
	d, err := Open(bytes.NewReader(buildIVF(t, "VP80", [][]byte{{0x00}, {0x01}})))
	require.NoError(t, err)

	key, err := d.ReadPacket(context.Background())
	require.NoError(t, err)
	inter, err := d.ReadPacket(context.Background())
	require.NoError(t, err)

	assert.True(t, key.Keyframe)
	assert.False(t, inter.Keyframe)
}

func TestReadPacket_TruncatedFrame(t *testing.T) {
	data := buildIVF(t, "MJPG", [][]byte{{1, 2, 3, 4}})
	d, err := Open(bytes.NewReader(data[:len(data)-2]))
	require.NoError(t, err)

	_, err = d.ReadPacket(context.Background())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadPacket_Cancelled(t *testing.T) {
	d, err := Open(bytes.NewReader(buildIVF(t, "VP80", [][]byte{{0}})))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.ReadPacket(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose_Idempotent(t *testing.T) {
	d, err := Open(bytes.NewReader(buildIVF(t, "VP80", nil)))
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err = d.ReadPacket(context.Background())
	assert.ErrorIs(t, err, ports.ErrClosed)
}

func TestNewWriter_BadFourCC(t *testing.T) {
	_, err := NewWriter(io.Discard, "VP8", 1, 1, 30, 1, 0)
	assert.Error(t, err)
}
