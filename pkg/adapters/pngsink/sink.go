// Package pngsink writes frames as numbered PNG files.
package pngsink

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/user/framepace/pkg/normalize"
	"github.com/user/framepace/pkg/ports"
)

// Options controls which frames are written and at what size.
type Options struct {
	Dir string
	// Width scales frames to this width, keeping the aspect ratio.
	// Zero keeps the source size.
	Width int
	// Every writes one frame out of every N. Values below 1 mean every frame.
	Every int
}

// Sink saves frames through a FileSystem.
type Sink struct {
	opts    Options
	fs      ports.FileSystem
	index   int
	written int
	ready   bool
}

// New creates a new Sink.
func New(fs ports.FileSystem, opts Options) *Sink {
	if opts.Every < 1 {
		opts.Every = 1
	}
	return &Sink{opts: opts, fs: fs}
}

// Upload encodes the frame as frame-NNNNNN.png, numbered by arrival order.
func (s *Sink) Upload(frame *ports.NormalizedFrame) error {
	idx := s.index
	s.index++
	if idx%s.opts.Every != 0 {
		return nil
	}

	if !s.ready {
		if err := s.fs.MkdirAll(s.opts.Dir); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		s.ready = true
	}

	var img image.Image = normalize.ToImage(frame)
	if s.opts.Width > 0 && s.opts.Width != frame.Width {
		img = Scale(img, s.opts.Width)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode PNG: %w", err)
	}
	path := filepath.Join(s.opts.Dir, fmt.Sprintf("frame-%06d.png", idx))
	if err := s.fs.WriteFile(path, buf.Bytes()); err != nil {
		return err
	}
	s.written++
	return nil
}

// Scale resizes img to width, keeping its aspect ratio.
func Scale(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Written returns the number of files written.
func (s *Sink) Written() int {
	return s.written
}

// Close does nothing; every frame is written on Upload.
func (s *Sink) Close() error {
	return nil
}

var _ ports.FrameSink = (*Sink)(nil)
