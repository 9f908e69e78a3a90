package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/framepace/pkg/mocks"
	"github.com/user/framepace/pkg/ports"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []ports.CodecID{ports.CodecMJPEG, ports.CodecVP8}, r.Codecs())
	assert.True(t, r.Supports(ports.CodecVP8))
	assert.False(t, r.Supports(ports.CodecH264))

	codec, err := r.New(ports.StreamInfo{Codec: ports.CodecMJPEG})
	require.NoError(t, err)
	codec.Close()
}

func TestRegistryUnsupported(t *testing.T) {
	r := NewRegistry()
	_, err := r.New(ports.StreamInfo{Codec: ports.CodecAV1})
	assert.ErrorIs(t, err, ports.ErrUnsupportedCodec)
}

func TestRegistryRegisterOverrides(t *testing.T) {
	r := DefaultRegistry()
	mock := mocks.NewCodec(2, 2)
	r.Register(ports.CodecH264, func(ports.StreamInfo) (ports.Codec, error) {
		return mock, nil
	})

	codec, err := r.New(ports.StreamInfo{Codec: ports.CodecH264})
	require.NoError(t, err)
	assert.Same(t, mock, codec)
}

func TestRegistryLimitations(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, LimitKeyFramesOnly, r.Limitation(ports.CodecVP8))
	assert.Empty(t, r.Limitation(ports.CodecMJPEG))
	assert.Empty(t, r.Limitation(ports.CodecH264))

	r.Register(ports.CodecVP8, func(ports.StreamInfo) (ports.Codec, error) {
		return mocks.NewCodec(2, 2), nil
	})
	assert.Empty(t, r.Limitation(ports.CodecVP8))
}
