package ivfdemux

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Writer produces an IVF stream. The frame count in the header is written
// as given and is not patched afterwards.
type Writer struct {
	w io.Writer
}

// NewWriter writes the file header and returns a Writer for the frames.
func NewWriter(w io.Writer, fourcc string, width, height int, rate, scale uint32, frameCount uint32) (*Writer, error) {
	if len(fourcc) != 4 {
		return nil, fmt.Errorf("fourcc must be 4 bytes, got %q", fourcc)
	}
	hdr := Header{
		Version:    0,
		Size:       headerSize,
		Width:      uint16(width),
		Height:     uint16(height),
		FrameRate:  rate,
		FrameScale: scale,
		FrameCount: frameCount,
	}
	copy(hdr.Signature[:], signature)
	copy(hdr.FourCC[:], fourcc)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{w: w}, nil
}

// WriteFrame appends one frame with its presentation timestamp in ticks.
func (w *Writer) WriteFrame(data []byte, pts uint64) error {
	fh := frameHeader{Size: uint32(len(data)), PTS: pts}
	if err := binary.Write(w.w, binary.LittleEndian, &fh); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
