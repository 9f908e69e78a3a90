// Package codecdetect maps container codec tags to codec identifiers.
package codecdetect

import (
	"strings"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/framepace/pkg/ports"
)

var sampleEntryCodecs = map[string]ports.CodecID{
	"avc1": ports.CodecH264,
	"avc3": ports.CodecH264,
	"hvc1": ports.CodecH265,
	"hev1": ports.CodecH265,
	"av01": ports.CodecAV1,
	"vp08": ports.CodecVP8,
	"vp09": ports.CodecVP9,
	"jpeg": ports.CodecMJPEG,
	"mjpa": ports.CodecMJPEG,
	"mjpg": ports.CodecMJPEG,
	"mp4a": ports.CodecAAC,
	"opus": ports.CodecOpus,
}

var ivfCodecs = map[string]ports.CodecID{
	"VP80": ports.CodecVP8,
	"VP90": ports.CodecVP9,
	"AV01": ports.CodecAV1,
	"H264": ports.CodecH264,
	"MJPG": ports.CodecMJPEG,
}

// FromSampleEntry maps an MP4 sample entry type to a codec.
func FromSampleEntry(boxType string) ports.CodecID {
	if codec, ok := sampleEntryCodecs[strings.ToLower(boxType)]; ok {
		return codec
	}
	return ports.CodecUnknown
}

// FromFourCC maps an IVF header fourcc to a codec.
func FromFourCC(fourcc string) ports.CodecID {
	if codec, ok := ivfCodecs[strings.ToUpper(fourcc)]; ok {
		return codec
	}
	return ports.CodecUnknown
}

// MediaTypeFromHandler maps an MP4 hdlr handler type to a media type.
func MediaTypeFromHandler(handler string) ports.MediaType {
	switch handler {
	case "vide":
		return ports.MediaVideo
	case "soun":
		return ports.MediaAudio
	case "subt", "text", "sbtl", "clcp":
		return ports.MediaSubtitle
	case "":
		return ports.MediaUnknown
	default:
		return ports.MediaData
	}
}

// Track describes the codec-relevant parts of an MP4 track.
type Track struct {
	MediaType ports.MediaType
	Codec     ports.CodecID
	FourCC    string
	Width     int
	Height    int
}

// FromTrack inspects a trak box. Dimensions come from the visual sample
// entry and fall back to the track header.
func FromTrack(trak *mp4.TrakBox) Track {
	var t Track
	if trak == nil || trak.Mdia == nil {
		return t
	}
	if trak.Mdia.Hdlr != nil {
		t.MediaType = MediaTypeFromHandler(trak.Mdia.Hdlr.HandlerType)
	}
	t.Codec = ports.CodecUnknown

	if trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil && trak.Mdia.Minf.Stbl.Stsd != nil {
		for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
			t.FourCC = child.Type()
			t.Codec = FromSampleEntry(t.FourCC)
			if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
				t.Width = int(vse.Width)
				t.Height = int(vse.Height)
			}
			break
		}
	}

	if (t.Width == 0 || t.Height == 0) && trak.Tkhd != nil {
		t.Width = int(trak.Tkhd.Width) >> 16
		t.Height = int(trak.Tkhd.Height) >> 16
	}
	return t
}
