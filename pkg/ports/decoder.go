package ports

import (
	"context"
	"time"
)

// Demuxer reads compressed packets from a container.
type Demuxer interface {
	// Streams returns every stream in container enumeration order.
	Streams() []StreamInfo

	// ReadPacket returns the next packet of any stream, or io.EOF once the
	// container is exhausted. It may block on storage I/O and returns early
	// with ctx.Err() when the context is cancelled.
	ReadPacket(ctx context.Context) (Packet, error)

	// Close releases the underlying resource.
	Close() error
}

// Codec is a packet-in/frame-out video decoder.
type Codec interface {
	// SendPacket submits one compressed unit. A nil packet signals that no
	// further input follows and buffered frames should be flushed.
	SendPacket(pkt *Packet) error

	// ReceiveFrame fills dst with the next decoded frame. It returns
	// ErrNeedMoreInput when another packet is required and ErrEndOfStream
	// once a flush has been fully drained.
	ReceiveFrame(dst *RawFrame) error

	// Close releases decoder resources.
	Close()
}

// Clock is the host's monotonic time source and wait primitive.
type Clock interface {
	// Now returns the time elapsed since an arbitrary fixed epoch.
	Now() time.Duration

	// Sleep waits for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}
