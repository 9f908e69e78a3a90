// Package jpegcodec decodes Motion-JPEG streams, one JPEG image per packet.
package jpegcodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/user/framepace/pkg/adapters/internal/framequeue"
	"github.com/user/framepace/pkg/ports"
)

// ErrEmptyPacket is returned when a packet carries no data.
var ErrEmptyPacket = errors.New("jpegcodec: empty packet")

// Codec implements ports.Codec for Motion-JPEG.
type Codec struct {
	queue  framequeue.Queue
	closed bool
}

// New creates a Motion-JPEG codec.
func New() *Codec {
	return &Codec{}
}

// SendPacket decodes one JPEG image. A nil packet starts the flush.
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

	img, err := jpeg.Decode(bytes.NewReader(pkt.Data))
	if err != nil {
		return fmt.Errorf("jpegcodec: %w", err)
	}
	c.queue.Push(rawFrame(img, pkt.PTS))
	return nil
}

// ReceiveFrame returns the next decoded image.
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

// rawFrame exposes the decoder's planes without copying. Layouts the
// normalizer cannot convert are passed through with FormatUnknown.
func rawFrame(img image.Image, pts int64) ports.RawFrame {
	b := img.Bounds()
	f := ports.RawFrame{
		Width:    b.Dx(),
		Height:   b.Dy(),
		BitDepth: 8,
		PTS:      pts,
	}

	switch m := img.(type) {
	case *image.Gray:
		f.Format = ports.FormatGray8
		f.Planes = [][]byte{m.Pix}
		f.Strides = []int{m.Stride}
	case *image.YCbCr:
		switch m.SubsampleRatio {
		case image.YCbCrSubsampleRatio420:
			f.Format = ports.FormatYUV420P
		case image.YCbCrSubsampleRatio422:
			f.Format = ports.FormatYUV422P
		case image.YCbCrSubsampleRatio444:
			f.Format = ports.FormatYUV444P
		default:
			f.Format = ports.FormatUnknown
		}
		f.Planes = [][]byte{m.Y, m.Cb, m.Cr}
		f.Strides = []int{m.YStride, m.CStride, m.CStride}
	case *image.CMYK:
		f.Format = ports.FormatUnknown
		f.Planes = [][]byte{m.Pix}
		f.Strides = []int{m.Stride}
	default:
		f.Format = ports.FormatUnknown
	}
	return f
}

var _ ports.Codec = (*Codec)(nil)
