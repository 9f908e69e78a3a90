// Package normalize converts decoded frames into packed RGBA buffers.
package normalize

import (
	"fmt"

	"github.com/user/framepace/pkg/ports"
)

// Mode selects how source pixels map to RGBA.
type Mode int

const (
	// ModeGrayscale replicates the luma or intensity plane into R, G and B.
	ModeGrayscale Mode = iota
	// ModeColor converts YUV sources with BT.601 limited-range coefficients.
	ModeColor
)

func (m Mode) String() string {
	switch m {
	case ModeGrayscale:
		return "grayscale"
	case ModeColor:
		return "color"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "grayscale", "gray":
		return ModeGrayscale, nil
	case "color", "colour":
		return ModeColor, nil
	default:
		return ModeGrayscale, fmt.Errorf("unknown normalize mode %q", s)
	}
}

// Normalizer is stateless; the zero value uses ModeGrayscale.
type Normalizer struct {
	Mode Mode
}

// chroma subsampling shifts per format
type layout struct {
	planes int
	xShift uint
	yShift uint
}

var layouts = map[ports.PixelFormat]layout{
	ports.FormatGray8:   {planes: 1},
	ports.FormatYUV420P: {planes: 3, xShift: 1, yShift: 1},
	ports.FormatYUV422P: {planes: 3, xShift: 1},
	ports.FormatYUV444P: {planes: 3},
}

// Normalize returns a new width*height*4 RGBA buffer for src.
// src is not modified and may be reused by its codec afterwards.
func (n Normalizer) Normalize(src *ports.RawFrame) (*ports.NormalizedFrame, error) {
	lay, err := validate(src)
	if err != nil {
		return nil, err
	}

	dst := &ports.NormalizedFrame{
		Width:  src.Width,
		Height: src.Height,
		Pix:    make([]byte, src.Width*src.Height*4),
		PTS:    src.PTS,
	}

	if n.Mode == ModeColor && lay.planes == 3 {
		convertYUV(dst, src, lay)
	} else {
		replicate(dst, src.Planes[0], src.Strides[0])
	}
	return dst, nil
}

func validate(src *ports.RawFrame) (layout, error) {
	fail := func(reason string) error {
		return &ports.UnsupportedLayoutError{
			Format:   src.Format,
			Planes:   len(src.Planes),
			BitDepth: src.BitDepth,
			Reason:   reason,
		}
	}

	lay, ok := layouts[src.Format]
	if !ok {
		return layout{}, fail("unrecognised pixel format")
	}
	if src.BitDepth != 8 {
		return layout{}, fail("only 8-bit samples are supported")
	}
	if len(src.Planes) != lay.planes || len(src.Strides) != lay.planes {
		return layout{}, fail(fmt.Sprintf("expected %d planes", lay.planes))
	}
	if src.Width <= 0 || src.Height <= 0 {
		return layout{}, fail("empty frame")
	}

	for i := 0; i < lay.planes; i++ {
		w, h := src.Width, src.Height
		if i > 0 {
			w = (w + (1 << lay.xShift) - 1) >> lay.xShift
			h = (h + (1 << lay.yShift) - 1) >> lay.yShift
		}
		stride := src.Strides[i]
		if stride < w {
			return layout{}, fail(fmt.Sprintf("plane %d stride %d is shorter than row width %d", i, stride, w))
		}
		if need := stride*(h-1) + w; len(src.Planes[i]) < need {
			return layout{}, fail(fmt.Sprintf("plane %d holds %d bytes, need %d", i, len(src.Planes[i]), need))
		}
	}
	return lay, nil
}

func replicate(dst *ports.NormalizedFrame, plane []byte, stride int) {
	out := dst.Pix
	for y := 0; y < dst.Height; y++ {
		row := plane[y*stride : y*stride+dst.Width]
		o := y * dst.Width * 4
		for _, v := range row {
			out[o+0] = v
			out[o+1] = v
			out[o+2] = v
			out[o+3] = 0xFF
			o += 4
		}
	}
}

func convertYUV(dst *ports.NormalizedFrame, src *ports.RawFrame, lay layout) {
	yp, up, vp := src.Planes[0], src.Planes[1], src.Planes[2]
	ys, cs := src.Strides[0], src.Strides[1]
	vs := src.Strides[2]
	out := dst.Pix
	for y := 0; y < dst.Height; y++ {
		cy := y >> lay.yShift
		o := y * dst.Width * 4
		for x := 0; x < dst.Width; x++ {
			cx := x >> lay.xShift
			r, g, b := bt601(yp[y*ys+x], up[cy*cs+cx], vp[cy*vs+cx])
			out[o+0] = r
			out[o+1] = g
			out[o+2] = b
			out[o+3] = 0xFF
			o += 4
		}
	}
}

func bt601(y, cb, cr byte) (byte, byte, byte) {
	c := 298 * (int32(y) - 16)
	d := int32(cb) - 128
	e := int32(cr) - 128
	r := (c + 409*e + 128) >> 8
	g := (c - 100*d - 208*e + 128) >> 8
	b := (c + 516*d + 128) >> 8
	return clamp(r), clamp(g), clamp(b)
}

func clamp(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
