package mocks

import (
	"errors"

	"github.com/user/framepace/pkg/ports"
)

// ErrInjected is the error returned by injected codec and demuxer failures.
var ErrInjected = errors.New("mocks: injected failure")

// Codec is a mock ports.Codec producing Gray8 frames.
//
// Each packet's first byte becomes the frame intensity. The codec holds
// Delay frames back before releasing them, as a decoder with lookahead
// would, and emits FramesPerPacket frames per packet.
type Codec struct {
	Width           int
	Height          int
	Delay           int
	FramesPerPacket int
	// Padding adds bytes to each row so Stride > Width.
	Padding int

	FailSendPTS    map[int64]bool
	FailReceiveAt  int
	Sent           []ports.Packet
	ReceiveCalls   int
	FlushReceived  bool
	Closed         bool
	pending        []ports.RawFrame
	released       []ports.RawFrame
	framesReleased int
}

// NewCodec creates a mock codec producing width x height frames.
func NewCodec(width, height int) *Codec {
	return &Codec{
		Width:           width,
		Height:          height,
		FramesPerPacket: 1,
		FailReceiveAt:   -1,
	}
}

func (c *Codec) SendPacket(pkt *ports.Packet) error {
	if c.Closed {
		return ports.ErrClosed
	}
	if pkt == nil {
		c.FlushReceived = true
		c.released = append(c.released, c.pending...)
		c.pending = nil
		return nil
	}
	if c.FailSendPTS[pkt.PTS] {
		return ErrInjected
	}
	c.Sent = append(c.Sent, *pkt)

	var level byte
	if len(pkt.Data) > 0 {
		level = pkt.Data[0]
	}
	for i := 0; i < c.FramesPerPacket; i++ {
		c.pending = append(c.pending, c.frame(level, pkt.PTS+int64(i)))
	}
	for len(c.pending) > c.Delay {
		c.released = append(c.released, c.pending[0])
		c.pending = c.pending[1:]
	}
	return nil
}

func (c *Codec) frame(level byte, pts int64) ports.RawFrame {
	stride := c.Width + c.Padding
	pix := make([]byte, stride*c.Height)
	for y := 0; y < c.Height; y++ {
		for x := 0; x < stride; x++ {
			if x < c.Width {
				pix[y*stride+x] = level
			} else {
				pix[y*stride+x] = 0xEE
			}
		}
	}
	return ports.RawFrame{
		Width:    c.Width,
		Height:   c.Height,
		Format:   ports.FormatGray8,
		BitDepth: 8,
		Planes:   [][]byte{pix},
		Strides:  []int{stride},
		PTS:      pts,
	}
}

func (c *Codec) ReceiveFrame(dst *ports.RawFrame) error {
	if c.Closed {
		return ports.ErrClosed
	}
	c.ReceiveCalls++
	if len(c.released) == 0 {
		if c.FlushReceived {
			return ports.ErrEndOfStream
		}
		return ports.ErrNeedMoreInput
	}
	if c.FailReceiveAt >= 0 && c.framesReleased == c.FailReceiveAt {
		return ErrInjected
	}
	f := c.released[0]
	c.released = c.released[1:]
	c.framesReleased++
	*dst = f
	return nil
}

func (c *Codec) Close() {
	c.Closed = true
}

var _ ports.Codec = (*Codec)(nil)
