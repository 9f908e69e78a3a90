// Package synth generates Motion-JPEG test clips in MP4 or IVF containers.
package synth

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/framepace/pkg/adapters/ivfdemux"
	"github.com/user/framepace/pkg/adapters/mp4mux"
)

// Container formats Write can produce.
const (
	ContainerMP4 = "mp4"
	ContainerIVF = "ivf"
)

// Options describes a generated clip.
type Options struct {
	Width  int
	Height int
	Frames int
	// FrameRate is frames per second. Timestamps use a 1/FrameRate time
	// base in IVF and a 90 kHz timescale in MP4.
	FrameRate int
	Container string
	// Gray encodes single-channel JPEGs.
	Gray    bool
	Quality int
	// WithAudio adds an undecodable audio track before the video track
	// in MP4 output.
	WithAudio bool
	// Flat draws a uniform gray level per frame instead of the test card.
	Flat bool
	// Progressive writes MP4 with sample tables and interleaved chunks
	// instead of movie fragments.
	Progressive bool
}

// DefaultOptions returns a one-second 160x120 MP4 clip at 30 fps.
func DefaultOptions() Options {
	return Options{
		Width:     160,
		Height:    120,
		Frames:    30,
		FrameRate: 30,
		Container: ContainerMP4,
		Quality:   90,
	}
}

// Validate checks clip parameters.
func (o Options) Validate() error {
	var errs []error
	if o.Width <= 0 || o.Height <= 0 || o.Width > 0xFFFF || o.Height > 0xFFFF {
		errs = append(errs, fmt.Errorf("invalid size %dx%d", o.Width, o.Height))
	}
	if o.Frames <= 0 {
		errs = append(errs, fmt.Errorf("frames must be positive"))
	}
	if o.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("frame rate must be positive"))
	}
	if o.Container != ContainerMP4 && o.Container != ContainerIVF {
		errs = append(errs, fmt.Errorf("unknown container %q", o.Container))
	}
	return errors.Join(errs...)
}

// FlatLevel is the gray level of frame i in a flat clip.
func FlatLevel(i int) uint8 {
	return uint8(16 + (i*23)%224)
}

// Frame renders frame i of a clip.
func Frame(o Options, i int) image.Image {
	dc := gg.NewContext(o.Width, o.Height)
	if o.Flat {
		level := FlatLevel(i)
		dc.SetColor(color.Gray{Y: level})
		dc.Clear()
		return dc.Image()
	}

	dc.SetRGB(0.1, 0.1, 0.15)
	dc.Clear()

	bars := []color.Color{
		color.RGBA{0xC0, 0xC0, 0xC0, 0xFF}, color.RGBA{0xC0, 0xC0, 0x00, 0xFF},
		color.RGBA{0x00, 0xC0, 0xC0, 0xFF}, color.RGBA{0x00, 0xC0, 0x00, 0xFF},
		color.RGBA{0xC0, 0x00, 0xC0, 0xFF}, color.RGBA{0xC0, 0x00, 0x00, 0xFF},
		color.RGBA{0x00, 0x00, 0xC0, 0xFF},
	}
	barW := float64(o.Width) / float64(len(bars))
	barH := float64(o.Height) * 0.6
	for n, c := range bars {
		dc.SetColor(c)
		dc.DrawRectangle(float64(n)*barW, 0, barW+1, barH)
		dc.Fill()
	}

	// a marker sweeping across the lower band once per second
	phase := float64(i%o.FrameRate) / float64(o.FrameRate)
	size := float64(o.Height) * 0.2
	dc.SetRGB(1, 1, 1)
	dc.DrawCircle(phase*float64(o.Width), barH+size, size/2)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(fmt.Sprintf("%d", i), 4, float64(o.Height)-4, 0, 0)
	return dc.Image()
}

// EncodeJPEG encodes img, converting it to grayscale first when gray is set.
func EncodeJPEG(img image.Image, gray bool, quality int) ([]byte, error) {
	if gray {
		g := image.NewGray(img.Bounds())
		draw.Draw(g, g.Bounds(), img, img.Bounds().Min, draw.Src)
		img = g
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// Write generates the clip described by o into w.
func Write(w io.Writer, o Options) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.Quality <= 0 {
		o.Quality = 90
	}
	switch o.Container {
	case ContainerIVF:
		return writeIVF(w, o)
	default:
		return writeMP4(w, o)
	}
}

// Bytes generates the clip into memory.
func Bytes(o Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const mp4Timescale = 90000

func writeMP4(w io.Writer, o Options) error {
	mux := mp4mux.New()
	if o.WithAudio {
		audio := mux.AddAudioTrack(48000)
		for i := 0; i < o.Frames; i++ {
			err := mux.AddSample(audio, mp4mux.Sample{
				Data:       make([]byte, 4),
				DecodeTime: uint64(i * 1600),
				Dur:        1600,
				Sync:       true,
			})
			if err != nil {
				return err
			}
		}
	}

	video := mux.AddVideoTrack("jpeg", o.Width, o.Height, mp4Timescale)
	dur := uint32(mp4Timescale / o.FrameRate)
	for i := 0; i < o.Frames; i++ {
		data, err := EncodeJPEG(Frame(o, i), o.Gray, o.Quality)
		if err != nil {
			return err
		}
		err = mux.AddSample(video, mp4mux.Sample{
			Data:       data,
			DecodeTime: uint64(i) * uint64(dur),
			Dur:        dur,
			Sync:       true,
		})
		if err != nil {
			return err
		}
	}
	if o.Progressive {
		return mux.EncodeProgressive(w, mp4mux.ProgressiveOptions{SamplesPerChunk: 2})
	}
	return mux.Encode(w)
}

func writeIVF(w io.Writer, o Options) error {
	iw, err := ivfdemux.NewWriter(w, "MJPG", o.Width, o.Height, uint32(o.FrameRate), 1, uint32(o.Frames))
	if err != nil {
		return err
	}
	for i := 0; i < o.Frames; i++ {
		data, err := EncodeJPEG(Frame(o, i), o.Gray, o.Quality)
		if err != nil {
			return err
		}
		if err := iw.WriteFrame(data, uint64(i)); err != nil {
			return err
		}
	}
	return nil
}
