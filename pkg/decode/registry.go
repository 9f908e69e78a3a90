package decode

import (
	"fmt"
	"sort"

	"github.com/user/framepace/pkg/adapters/jpegcodec"
	"github.com/user/framepace/pkg/adapters/vp8codec"
	"github.com/user/framepace/pkg/ports"
)

// Factory creates a codec for a stream.
type Factory func(stream ports.StreamInfo) (ports.Codec, error)

// LimitKeyFramesOnly marks a decoder that rejects predicted frames.
const LimitKeyFramesOnly = "key frames only"

// Registry maps codec identifiers to factories.
type Registry struct {
	factories map[ports.CodecID]Factory
	limits    map[ports.CodecID]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[ports.CodecID]Factory),
		limits:    make(map[ports.CodecID]string),
	}
}

// DefaultRegistry returns a registry with every built-in decoder.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterLimited(ports.CodecVP8, func(ports.StreamInfo) (ports.Codec, error) {
		return vp8codec.New(), nil
	}, LimitKeyFramesOnly)
	r.Register(ports.CodecMJPEG, func(ports.StreamInfo) (ports.Codec, error) {
		return jpegcodec.New(), nil
	})
	return r
}

// Register adds or replaces the factory for id.
func (r *Registry) Register(id ports.CodecID, f Factory) {
	r.factories[id] = f
	delete(r.limits, id)
}

// RegisterLimited adds a factory whose decoder handles only part of the
// codec. limit describes what is missing.
func (r *Registry) RegisterLimited(id ports.CodecID, f Factory, limit string) {
	r.factories[id] = f
	r.limits[id] = limit
}

// Limitation returns the limit recorded for id, or "" when the decoder
// is complete or absent.
func (r *Registry) Limitation(id ports.CodecID) string {
	return r.limits[id]
}

// Supports reports whether a decoder is registered for id.
func (r *Registry) Supports(id ports.CodecID) bool {
	_, ok := r.factories[id]
	return ok
}

// Codecs lists registered codec identifiers in sorted order.
func (r *Registry) Codecs() []ports.CodecID {
	ids := make([]ports.CodecID, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// New creates a codec for stream.
func (r *Registry) New(stream ports.StreamInfo) (ports.Codec, error) {
	f, ok := r.factories[stream.Codec]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnsupportedCodec, stream.Codec)
	}
	return f(stream)
}
