// Package report summarises a playback session as Markdown or JSON.
package report

import (
	"time"

	"github.com/user/framepace/pkg/player"
	"github.com/user/framepace/pkg/ports"
)

// Summary contains everything known about one playback run.
type Summary struct {
	GeneratedAt time.Time `json:"generatedAt"`

	Input    InputInfo    `json:"input"`
	Stream   StreamInfo   `json:"stream"`
	Playback PlaybackInfo `json:"playback"`
}

// InputInfo describes the opened file.
type InputInfo struct {
	Path    string `json:"path"`
	Streams int    `json:"streams"`
}

// StreamInfo describes the selected video stream.
type StreamInfo struct {
	Index    int    `json:"index"`
	Codec    string `json:"codec"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	TimeBase string `json:"timeBase"`
}

// PlaybackInfo contains counters and timing.
type PlaybackInfo struct {
	Paced            bool    `json:"paced"`
	FramesDelivered  int     `json:"framesDelivered"`
	FramesDecoded    int     `json:"framesDecoded"`
	PacketsRead      int     `json:"packetsRead"`
	PacketsDiscarded int     `json:"packetsDiscarded"`
	OutOfOrder       int     `json:"outOfOrder"`
	LateFrames       int     `json:"lateFrames"`
	MaxLatenessMs    float64 `json:"maxLatenessMs"`
	MeanLatenessMs   float64 `json:"meanLatenessMs"`
	MediaDurationMs  float64 `json:"mediaDurationMs"`
	WallDurationMs   float64 `json:"wallDurationMs"`
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder stamped with the current time.
func NewBuilder() *Builder {
	return &Builder{summary: &Summary{GeneratedAt: time.Now()}}
}

// WithInput sets the file path and stream count.
func (b *Builder) WithInput(path string, streams int) *Builder {
	b.summary.Input = InputInfo{Path: path, Streams: streams}
	return b
}

// WithStream sets the selected stream.
func (b *Builder) WithStream(d ports.StreamDescriptor) *Builder {
	b.summary.Stream = StreamInfo{
		Index:    d.Index,
		Codec:    string(d.Codec),
		Width:    d.Width,
		Height:   d.Height,
		TimeBase: d.TimeBase.String(),
	}
	return b
}

// WithStats copies session counters.
func (b *Builder) WithStats(st player.Stats, paced bool, wall time.Duration) *Builder {
	b.summary.Playback = PlaybackInfo{
		Paced:            paced,
		FramesDelivered:  st.FramesDelivered,
		FramesDecoded:    st.FramesDecoded,
		PacketsRead:      st.PacketsRead,
		PacketsDiscarded: st.PacketsDiscarded,
		OutOfOrder:       st.OutOfOrder,
		LateFrames:       st.LateFrames,
		MaxLatenessMs:    ms(st.MaxLateness),
		MeanLatenessMs:   ms(st.MeanLateness),
		MediaDurationMs:  ms(st.MediaDuration),
		WallDurationMs:   ms(wall),
	}
	return b
}

// FromSession fills input, stream and playback sections from s.
func (b *Builder) FromSession(s *player.Session, paced bool, wall time.Duration) *Builder {
	return b.WithInput(s.Path(), len(s.Streams())).
		WithStream(s.Descriptor()).
		WithStats(s.Stats(), paced, wall)
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
