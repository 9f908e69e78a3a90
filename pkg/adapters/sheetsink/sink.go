// Package sheetsink renders sampled frames into a single contact sheet.
package sheetsink

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/fogleman/gg"

	"github.com/user/framepace/pkg/adapters/pngsink"
	"github.com/user/framepace/pkg/normalize"
	"github.com/user/framepace/pkg/ports"
)

// Layout controls the sheet geometry.
type Layout struct {
	Columns   int
	CellWidth int
	Gap       int
	Padding   int
	// Every samples one frame out of every N.
	Every int
	// MaxCells caps the number of sampled frames.
	MaxCells int

	Background color.Color
	Foreground color.Color
}

// DefaultLayout returns a four-column sheet of 160 px cells.
func DefaultLayout() Layout {
	return Layout{
		Columns:    4,
		CellWidth:  160,
		Gap:        8,
		Padding:    12,
		Every:      30,
		MaxCells:   48,
		Background: color.RGBA{0x20, 0x20, 0x24, 0xFF},
		Foreground: color.White,
	}
}

const labelHeight = 18

type cell struct {
	img     image.Image
	seconds float64
}

// Sink collects thumbnails and writes the sheet to Path on Close.
type Sink struct {
	path   string
	layout Layout
	fs     ports.FileSystem
	cells  []cell
	index  int
	closed bool
}

// New creates a new Sink.
func New(fs ports.FileSystem, path string, layout Layout) *Sink {
	def := DefaultLayout()
	if layout.Columns < 1 {
		layout.Columns = def.Columns
	}
	if layout.CellWidth < 1 {
		layout.CellWidth = def.CellWidth
	}
	if layout.Every < 1 {
		layout.Every = 1
	}
	if layout.MaxCells < 1 {
		layout.MaxCells = def.MaxCells
	}
	if layout.Background == nil {
		layout.Background = def.Background
	}
	if layout.Foreground == nil {
		layout.Foreground = def.Foreground
	}
	return &Sink{path: path, layout: layout, fs: fs}
}

// Upload samples the frame into a thumbnail.
func (s *Sink) Upload(frame *ports.NormalizedFrame) error {
	if s.closed {
		return ports.ErrClosed
	}
	idx := s.index
	s.index++
	if idx%s.layout.Every != 0 || len(s.cells) >= s.layout.MaxCells {
		return nil
	}
	// Scale copies, so the frame buffer is not retained.
	thumb := pngsink.Scale(normalize.ToImage(frame), s.layout.CellWidth)
	s.cells = append(s.cells, cell{img: thumb, seconds: frame.Seconds})
	return nil
}

// Cells returns the number of sampled frames.
func (s *Sink) Cells() int {
	return len(s.cells)
}

// Render draws the sheet. It returns nil when no frame was sampled.
func (s *Sink) Render() image.Image {
	if len(s.cells) == 0 {
		return nil
	}
	l := s.layout
	cols := l.Columns
	if len(s.cells) < cols {
		cols = len(s.cells)
	}
	rows := (len(s.cells) + cols - 1) / cols

	cellH := 0
	for _, c := range s.cells {
		if h := c.img.Bounds().Dy(); h > cellH {
			cellH = h
		}
	}
	cellH += labelHeight

	width := l.Padding*2 + cols*l.CellWidth + (cols-1)*l.Gap
	height := l.Padding*2 + rows*cellH + (rows-1)*l.Gap

	dc := gg.NewContext(width, height)
	dc.SetColor(l.Background)
	dc.Clear()

	for i, c := range s.cells {
		x := l.Padding + (i%cols)*(l.CellWidth+l.Gap)
		y := l.Padding + (i/cols)*(cellH+l.Gap)
		dc.DrawImage(c.img, x, y)

		dc.SetColor(l.Foreground)
		dc.DrawStringAnchored(formatSeconds(c.seconds),
			float64(x+l.CellWidth/2), float64(y+c.img.Bounds().Dy()+labelHeight/2), 0.5, 0.5)
	}
	return dc.Image()
}

func formatSeconds(s float64) string {
	m := int(s) / 60
	return fmt.Sprintf("%02d:%06.3f", m, s-float64(m*60))
}

// Close renders and writes the sheet. It is safe to call more than once.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	img := s.Render()
	if img == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode contact sheet: %w", err)
	}
	if err := s.fs.WriteFile(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("write contact sheet: %w", err)
	}
	return nil
}

var _ ports.FrameSink = (*Sink)(nil)
