package mp4mux

import (
	"bytes"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuxer_EncodeDecodes(t *testing.T) {
	m := New()
	id := m.AddVideoTrack("jpeg", 32, 16, 30)
	for i := 0; i < 3; i++ {
		require.NoError(t, m.AddSample(id, Sample{
			Data:       []byte{byte(i), 0xAA},
			DecodeTime: uint64(i),
			Dur:        1,
			Sync:       true,
		}))
	}

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))

	file, err := mp4.DecodeFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, file.IsFragmented())
	require.NotNil(t, file.Init)
	require.Len(t, file.Init.Moov.Traks, 1)
	assert.Equal(t, uint32(30), file.Init.Moov.Traks[0].Mdia.Mdhd.Timescale)
}

func TestMuxer_UnknownTrack(t *testing.T) {
	m := New()
	err := m.AddSample(42, Sample{Data: []byte{1}})
	assert.ErrorIs(t, err, ErrUnknownTrack)
}

func TestMuxer_NoSamples(t *testing.T) {
	m := New()
	m.AddVideoTrack("jpeg", 8, 8, 30)
	assert.ErrorIs(t, m.Encode(&bytes.Buffer{}), ErrNoSamples)
}

func TestMuxer_TrackIDsIncrement(t *testing.T) {
	m := New()
	audio := m.AddAudioTrack(48000)
	video := m.AddVideoTrack("vp08", 8, 8, 30)
	assert.NotEqual(t, audio, video)
}

func TestMuxer_AudioFirstKeepsVideoDescription(t *testing.T) {
	m := New()
	audio := m.AddAudioTrack(48000)
	video := m.AddVideoTrack("jpeg", 64, 48, 90000)
	require.NoError(t, m.AddSample(audio, Sample{Data: []byte{1}, Dur: 1600, Sync: true}))
	require.NoError(t, m.AddSample(video, Sample{Data: []byte{2}, Dur: 3000, Sync: true}))

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))

	file, err := mp4.DecodeFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	traks := file.Init.Moov.Traks
	require.Len(t, traks, 2)

	assert.Equal(t, "soun", traks[0].Mdia.Hdlr.HandlerType)
	assert.Empty(t, traks[0].Mdia.Minf.Stbl.Stsd.Children)

	assert.Equal(t, "vide", traks[1].Mdia.Hdlr.HandlerType)
	require.Len(t, traks[1].Mdia.Minf.Stbl.Stsd.Children, 1)
	assert.Equal(t, "jpeg", traks[1].Mdia.Minf.Stbl.Stsd.Children[0].Type())
	assert.Equal(t, 64, int(traks[1].Tkhd.Width)>>16)
	assert.Equal(t, 48, int(traks[1].Tkhd.Height)>>16)
}

func TestMuxer_EncodeProgressive(t *testing.T) {
	m := New()
	id := m.AddVideoTrack("jpeg", 32, 16, 30)
	for i := 0; i < 5; i++ {
		require.NoError(t, m.AddSample(id, Sample{Data: []byte{byte(i)}, Dur: 1, Sync: i%2 == 0}))
	}

	var buf bytes.Buffer
	require.NoError(t, m.EncodeProgressive(&buf, ProgressiveOptions{SamplesPerChunk: 2}))

	file, err := mp4.DecodeFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.False(t, file.IsFragmented())
	require.NotNil(t, file.Moov)
	stbl := file.Moov.Traks[0].Mdia.Minf.Stbl

	assert.Equal(t, uint32(5), stbl.Stsz.SampleNumber)
	require.NotNil(t, stbl.Stco)
	assert.Len(t, stbl.Stco.ChunkOffset, 3)
	assert.Nil(t, stbl.Co64)
	require.NotNil(t, stbl.Stss)
	assert.Equal(t, []uint32{1, 3, 5}, stbl.Stss.SampleNumber)
}

func TestMuxer_EncodeProgressiveCo64(t *testing.T) {
	m := New()
	id := m.AddVideoTrack("jpeg", 8, 8, 30)
	require.NoError(t, m.AddSample(id, Sample{Data: []byte{1}, Dur: 1, Sync: true}))

	var buf bytes.Buffer
	require.NoError(t, m.EncodeProgressive(&buf, ProgressiveOptions{Co64: true}))

	file, err := mp4.DecodeFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	stbl := file.Moov.Traks[0].Mdia.Minf.Stbl
	assert.Nil(t, stbl.Stco)
	require.NotNil(t, stbl.Co64)
	assert.Len(t, stbl.Co64.ChunkOffset, 1)
	assert.Nil(t, stbl.Stss)
}

func TestMuxer_EncodeProgressiveEmptyFirstTrack(t *testing.T) {
	m := New()
	m.AddAudioTrack(48000)
	video := m.AddVideoTrack("jpeg", 8, 8, 30)
	require.NoError(t, m.AddSample(video, Sample{Data: []byte{1}, Dur: 1, Sync: true}))

	assert.ErrorIs(t, m.EncodeProgressive(&bytes.Buffer{}, ProgressiveOptions{}), ErrEmptyFirstTrack)
}
