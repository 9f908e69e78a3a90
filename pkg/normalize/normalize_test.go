package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/framepace/pkg/ports"
)

func paddedGray() *ports.RawFrame {
	plane := make([]byte, 8*4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			if x < 4 {
				plane[y*8+x] = byte(y*4 + x + 10)
			} else {
				plane[y*8+x] = 0xAB
			}
		}
	}
	return &ports.RawFrame{
		Width:    4,
		Height:   4,
		Format:   ports.FormatGray8,
		BitDepth: 8,
		Planes:   [][]byte{plane},
		Strides:  []int{8},
		PTS:      42,
	}
}

func TestNormalizeGrayWithPadding(t *testing.T) {
	out, err := Normalizer{}.Normalize(paddedGray())
	require.NoError(t, err)

	require.Len(t, out.Pix, 4*4*4)
	assert.Equal(t, 16, out.Stride())
	assert.Equal(t, int64(42), out.PTS)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := byte(y*4 + x + 10)
			px := out.Pix[(y*4+x)*4:]
			assert.Equal(t, []byte{want, want, want, 0xFF}, px[:4], "pixel %d,%d", x, y)
		}
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	src := paddedGray()
	a, err := Normalizer{}.Normalize(src)
	require.NoError(t, err)
	b, err := Normalizer{}.Normalize(src)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

func yuvFrame(format ports.PixelFormat, w, h, cw, ch int, yv, u, v byte) *ports.RawFrame {
	fill := func(n int, val byte) []byte {
		p := make([]byte, n)
		for i := range p {
			p[i] = val
		}
		return p
	}
	return &ports.RawFrame{
		Width:    w,
		Height:   h,
		Format:   format,
		BitDepth: 8,
		Planes:   [][]byte{fill(w*h, yv), fill(cw*ch, u), fill(cw*ch, v)},
		Strides:  []int{w, cw, cw},
	}
}

func TestNormalizeYUVGrayscaleUsesLuma(t *testing.T) {
	src := yuvFrame(ports.FormatYUV420P, 4, 2, 2, 1, 90, 10, 240)
	out, err := Normalizer{Mode: ModeGrayscale}.Normalize(src)
	require.NoError(t, err)
	assert.Equal(t, []byte{90, 90, 90, 0xFF}, out.Pix[:4])
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		name    string
		y, u, v byte
		want    [3]byte
	}{
		{"black", 16, 128, 128, [3]byte{0, 0, 0}},
		{"white", 235, 128, 128, [3]byte{255, 255, 255}},
		{"red", 81, 90, 240, [3]byte{255, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, f := range []struct {
				format ports.PixelFormat
				cw, ch int
			}{
				{ports.FormatYUV420P, 2, 1},
				{ports.FormatYUV422P, 2, 2},
				{ports.FormatYUV444P, 4, 2},
			} {
				src := yuvFrame(f.format, 4, 2, f.cw, f.ch, tt.y, tt.u, tt.v)
				out, err := Normalizer{Mode: ModeColor}.Normalize(src)
				require.NoError(t, err, f.format.String())
				for i := 0; i < 3; i++ {
					assert.InDelta(t, tt.want[i], out.Pix[i], 2, "%s channel %d", f.format, i)
				}
				assert.Equal(t, byte(0xFF), out.Pix[3])
			}
		})
	}
}

func TestNormalizeUnsupportedLayouts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *ports.RawFrame)
	}{
		{"unknown format", func(f *ports.RawFrame) { f.Format = ports.FormatUnknown }},
		{"16-bit", func(f *ports.RawFrame) { f.BitDepth = 16 }},
		{"extra plane", func(f *ports.RawFrame) {
			f.Planes = append(f.Planes, []byte{0})
			f.Strides = append(f.Strides, 1)
		}},
		{"short plane", func(f *ports.RawFrame) { f.Planes[0] = f.Planes[0][:20] }},
		{"stride below width", func(f *ports.RawFrame) { f.Strides[0] = 3 }},
		{"zero size", func(f *ports.RawFrame) { f.Width = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := paddedGray()
			tt.mutate(src)
			_, err := Normalizer{}.Normalize(src)
			var layoutErr *ports.UnsupportedLayoutError
			assert.ErrorAs(t, err, &layoutErr)
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("color")
	require.NoError(t, err)
	assert.Equal(t, ModeColor, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeGrayscale, m)

	_, err = ParseMode("sepia")
	assert.Error(t, err)
}

func TestToImageSharesBuffer(t *testing.T) {
	out, err := Normalizer{}.Normalize(paddedGray())
	require.NoError(t, err)

	img := ToImage(out)
	assert.Equal(t, 4, img.Bounds().Dx())
	r, g, b, a := img.At(1, 0).RGBA()
	assert.Equal(t, uint32(11), r>>8)
	assert.Equal(t, r, g)
	assert.Equal(t, r, b)
	assert.Equal(t, uint32(0xFFFF), a)

	img.Pix[0] = 1
	assert.Equal(t, byte(1), out.Pix[0])
}
