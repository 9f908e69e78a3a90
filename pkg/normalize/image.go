package normalize

import (
	"image"

	"github.com/user/framepace/pkg/ports"
)

// ToImage wraps a frame's buffer as an *image.RGBA without copying.
func ToImage(f *ports.NormalizedFrame) *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Stride(),
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}
