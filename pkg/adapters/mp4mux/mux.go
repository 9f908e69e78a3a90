// Package mp4mux writes fragmented or progressive MP4 files from
// already-encoded samples.
package mp4mux

import (
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
)

var (
	// ErrEmptyFirstTrack is returned by EncodeProgressive when the first
	// track has no samples. Readers take an empty first sample table as a
	// sign of a fragmented file.
	ErrEmptyFirstTrack = errors.New("mp4mux: first track has no samples")
	// ErrUnknownTrack is returned when a sample targets a track that was never added.
	ErrUnknownTrack = errors.New("mp4mux: unknown track")
	// ErrNoSamples is returned when Encode is called before any sample was added.
	ErrNoSamples = errors.New("mp4mux: no samples")
)

// Sample is one encoded access unit. Times are in the track timescale.
type Sample struct {
	Data              []byte
	DecodeTime        uint64
	Dur               uint32
	Sync              bool
	CompositionOffset int32
}

type track struct {
	id        uint32
	mediaType string
	timescale uint32
	entry     string
	width     int
	height    int
	samples   []Sample
}

// Muxer collects samples per track and writes them either as ftyp, moov
// and one moof/mdat fragment per track (Encode) or as ftyp, mdat and a
// moov with full sample tables (EncodeProgressive).
type Muxer struct {
	init   *mp4.InitSegment
	tracks []*track
}

// New creates an empty muxer.
func New() *Muxer {
	return &Muxer{init: mp4.CreateEmptyInit()}
}

// AddVideoTrack adds a video track with the given sample entry type
// (for example "jpeg" or "vp08") and returns its track ID.
func (m *Muxer) AddVideoTrack(sampleEntry string, width, height int, timescale uint32) uint32 {
	return m.addTrack(&track{
		mediaType: "video",
		timescale: timescale,
		entry:     sampleEntry,
		width:     width,
		height:    height,
	})
}

// AddAudioTrack adds an audio track without a sample description. It is
// used to build multi-stream files whose audio is never decoded.
func (m *Muxer) AddAudioTrack(timescale uint32) uint32 {
	return m.addTrack(&track{mediaType: "audio", timescale: timescale})
}

func (m *Muxer) addTrack(t *track) uint32 {
	m.init.AddEmptyTrack(t.timescale, t.mediaType, "und")
	// Moov.Trak only ever points at the first trak.
	trak := m.init.Moov.Traks[len(m.init.Moov.Traks)-1]
	describe(trak, t)
	t.id = trak.Tkhd.TrackID
	m.tracks = append(m.tracks, t)
	return t.id
}

// describe sets the sample entry and display size of a video trak.
func describe(trak *mp4.TrakBox, t *track) {
	if t.entry == "" {
		return
	}
	entry := mp4.CreateVisualSampleEntryBox(t.entry, uint16(t.width), uint16(t.height), nil)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(entry)
	trak.Tkhd.Width = mp4.Fixed32(t.width << 16)
	trak.Tkhd.Height = mp4.Fixed32(t.height << 16)
}

// AddSample appends a sample to a track.
func (m *Muxer) AddSample(trackID uint32, s Sample) error {
	for _, t := range m.tracks {
		if t.id == trackID {
			t.samples = append(t.samples, s)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownTrack, trackID)
}

func (m *Muxer) sampleCount() int {
	total := 0
	for _, t := range m.tracks {
		total += len(t.samples)
	}
	return total
}

// Encode writes the complete fragmented file to w.
func (m *Muxer) Encode(w io.Writer) error {
	if m.sampleCount() == 0 {
		return ErrNoSamples
	}

	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6", "mp41"})
	if err := ftyp.Encode(w); err != nil {
		return fmt.Errorf("encode ftyp: %w", err)
	}
	if err := m.init.Moov.Encode(w); err != nil {
		return fmt.Errorf("encode moov: %w", err)
	}

	seq := uint32(1)
	for _, t := range m.tracks {
		if len(t.samples) == 0 {
			continue
		}
		frag, err := mp4.CreateFragment(seq, t.id)
		if err != nil {
			return fmt.Errorf("create fragment: %w", err)
		}
		seq++

		for _, s := range t.samples {
			flags := mp4.NonSyncSampleFlags
			if s.Sync {
				flags = mp4.SyncSampleFlags
			}
			frag.AddFullSample(mp4.FullSample{
				Sample: mp4.Sample{
					Flags:                 flags,
					Size:                  uint32(len(s.Data)),
					Dur:                   s.Dur,
					CompositionTimeOffset: s.CompositionOffset,
				},
				DecodeTime: s.DecodeTime,
				Data:       s.Data,
			})
		}

		if err := frag.Encode(w); err != nil {
			return fmt.Errorf("encode fragment: %w", err)
		}
	}
	return nil
}

// ProgressiveOptions controls the sample layout of EncodeProgressive.
type ProgressiveOptions struct {
	// SamplesPerChunk is the number of consecutive samples of one track
	// stored together. Chunks of all tracks are interleaved round by round.
	// Zero means one sample per chunk.
	SamplesPerChunk int
	// Co64 stores chunk offsets in a co64 box instead of stco.
	Co64 bool
}

// EncodeProgressive writes a non-fragmented file: ftyp, one mdat holding
// interleaved chunks, then a moov whose sample tables index into it.
// Decode times follow from the sample durations and composition offsets
// are not written.
func (m *Muxer) EncodeProgressive(w io.Writer, opts ProgressiveOptions) error {
	if m.sampleCount() == 0 {
		return ErrNoSamples
	}
	if len(m.tracks[0].samples) == 0 {
		return ErrEmptyFirstTrack
	}
	perChunk := opts.SamplesPerChunk
	if perChunk <= 0 {
		perChunk = 1
	}

	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "mp41"})
	mdat := &mp4.MdatBox{}
	base := ftyp.Size() + mdat.HeaderSize()

	offsets := make([][]uint64, len(m.tracks))
	for round := 0; ; round++ {
		wrote := false
		for i, t := range m.tracks {
			start := round * perChunk
			if start >= len(t.samples) {
				continue
			}
			end := min(start+perChunk, len(t.samples))
			offsets[i] = append(offsets[i], base+mdat.DataLength())
			for _, s := range t.samples[start:end] {
				mdat.AddSampleData(s.Data)
			}
			wrote = true
		}
		if !wrote {
			break
		}
	}

	moov := mp4.NewMoovBox()
	mvhd := mp4.CreateMvhd()
	mvhd.NextTrackID = uint32(len(m.tracks) + 1)
	moov.AddChild(mvhd)
	for i, t := range m.tracks {
		trak := mp4.CreateEmptyTrak(t.id, t.timescale, t.mediaType, "und")
		describe(trak, t)
		if err := fillSampleTables(trak.Mdia.Minf.Stbl, t.samples, perChunk, offsets[i], opts.Co64); err != nil {
			return fmt.Errorf("track %d: %w", t.id, err)
		}
		moov.AddChild(trak)
	}

	if err := ftyp.Encode(w); err != nil {
		return fmt.Errorf("encode ftyp: %w", err)
	}
	if err := mdat.Encode(w); err != nil {
		return fmt.Errorf("encode mdat: %w", err)
	}
	if err := moov.Encode(w); err != nil {
		return fmt.Errorf("encode moov: %w", err)
	}
	return nil
}

func fillSampleTables(stbl *mp4.StblBox, samples []Sample, perChunk int, offsets []uint64, co64 bool) error {
	for _, s := range samples {
		last := len(stbl.Stts.SampleCount) - 1
		if last >= 0 && stbl.Stts.SampleTimeDelta[last] == s.Dur {
			stbl.Stts.SampleCount[last]++
		} else {
			stbl.Stts.SampleCount = append(stbl.Stts.SampleCount, 1)
			stbl.Stts.SampleTimeDelta = append(stbl.Stts.SampleTimeDelta, s.Dur)
		}
		stbl.Stsz.SampleSize = append(stbl.Stsz.SampleSize, uint32(len(s.Data)))
	}
	stbl.Stsz.SampleNumber = uint32(len(samples))

	if len(samples) > 0 {
		if err := stbl.Stsc.AddEntry(1, uint32(min(perChunk, len(samples))), 1); err != nil {
			return err
		}
		if rest := len(samples) % perChunk; rest != 0 && len(samples) > perChunk {
			if err := stbl.Stsc.AddEntry(uint32(len(offsets)), uint32(rest), 1); err != nil {
				return err
			}
		}
	}

	var sync []uint32
	for i, s := range samples {
		if s.Sync {
			sync = append(sync, uint32(i+1))
		}
	}
	if len(sync) != len(samples) {
		stbl.AddChild(&mp4.StssBox{SampleNumber: sync})
	}

	if !co64 {
		for _, off := range offsets {
			if off > 0xFFFFFFFF {
				return fmt.Errorf("chunk offset %d needs co64", off)
			}
			stbl.Stco.ChunkOffset = append(stbl.Stco.ChunkOffset, uint32(off))
		}
		return nil
	}

	box := &mp4.Co64Box{ChunkOffset: offsets}
	for i, child := range stbl.Children {
		if child == mp4.Box(stbl.Stco) {
			stbl.Children[i] = box
		}
	}
	stbl.Stco = nil
	stbl.Co64 = box
	return nil
}
