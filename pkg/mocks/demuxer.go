package mocks

import (
	"context"
	"io"

	"github.com/user/framepace/pkg/ports"
)

// Demuxer is a mock ports.Demuxer replaying a fixed packet list.
type Demuxer struct {
	StreamList []ports.StreamInfo
	Packets    []ports.Packet
	// FailAt makes ReadPacket return ErrInjected at that packet index.
	FailAt int
	// ReadFunc, when set, replaces the default behaviour.
	ReadFunc func(ctx context.Context) (ports.Packet, error)

	Reads  int
	Closed int
	next   int
}

// NewDemuxer creates a mock demuxer.
func NewDemuxer(streams []ports.StreamInfo, packets []ports.Packet) *Demuxer {
	return &Demuxer{StreamList: streams, Packets: packets, FailAt: -1}
}

func (d *Demuxer) Streams() []ports.StreamInfo {
	return d.StreamList
}

func (d *Demuxer) ReadPacket(ctx context.Context) (ports.Packet, error) {
	d.Reads++
	if d.ReadFunc != nil {
		return d.ReadFunc(ctx)
	}
	if err := ctx.Err(); err != nil {
		return ports.Packet{}, err
	}
	if d.next == d.FailAt {
		return ports.Packet{}, ErrInjected
	}
	if d.next >= len(d.Packets) {
		return ports.Packet{}, io.EOF
	}
	pkt := d.Packets[d.next]
	d.next++
	return pkt, nil
}

func (d *Demuxer) Close() error {
	d.Closed++
	return nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
