// Package vp8codec decodes VP8 key frames with golang.org/x/image/vp8.
package vp8codec

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/image/vp8"

	"github.com/user/framepace/pkg/adapters/internal/framequeue"
	"github.com/user/framepace/pkg/ports"
)

var (
	// ErrEmptyPacket is returned when a packet carries no data.
	ErrEmptyPacket = errors.New("vp8codec: empty packet")
	// ErrInterFrame is returned for predicted frames, which the decoder
	// cannot reconstruct.
	ErrInterFrame = errors.New("vp8codec: inter frames are not supported")
)

// Codec implements ports.Codec for VP8.
type Codec struct {
	dec    *vp8.Decoder
	queue  framequeue.Queue
	closed bool
}

// New creates a VP8 codec.
func New() *Codec {
	return &Codec{dec: vp8.NewDecoder()}
}

// SendPacket decodes one VP8 frame. Hidden frames are decoded but not
// queued. A nil packet starts the flush.
func (c *Codec) SendPacket(pkt *ports.Packet) error {
	if c.closed {
		return ports.ErrClosed
	}
	if pkt == nil {
		c.queue.Flush()
		return nil
	}
	if c.queue.Flushing() {
		return framequeue.ErrAfterFlush
	}
	if len(pkt.Data) == 0 {
		return ErrEmptyPacket
	}

	c.dec.Init(bytes.NewReader(pkt.Data), len(pkt.Data))
	fh, err := c.dec.DecodeFrameHeader()
	if err != nil {
		return fmt.Errorf("vp8codec: frame header: %w", err)
	}
	if !fh.KeyFrame {
		return ErrInterFrame
	}

	img, err := c.dec.DecodeFrame()
	if err != nil {
		return fmt.Errorf("vp8codec: %w", err)
	}
	if !fh.ShowFrame {
		return nil
	}

	// The decoder reuses its image for the next frame.
	b := img.Bounds()
	c.queue.Push(ports.RawFrame{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Format:   ports.FormatYUV420P,
		BitDepth: 8,
		Planes:   [][]byte{bytes.Clone(img.Y), bytes.Clone(img.Cb), bytes.Clone(img.Cr)},
		Strides:  []int{img.YStride, img.CStride, img.CStride},
		PTS:      pkt.PTS,
	})
	return nil
}

// ReceiveFrame returns the next decoded frame.
func (c *Codec) ReceiveFrame(dst *ports.RawFrame) error {
	if c.closed {
		return ports.ErrClosed
	}
	return c.queue.Pop(dst)
}

// Close releases buffered frames.
func (c *Codec) Close() {
	c.closed = true
	c.queue.Reset()
}

var _ ports.Codec = (*Codec)(nil)
