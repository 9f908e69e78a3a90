// Package mp4demux reads compressed packets from ISO-BMFF (MP4) containers.
package mp4demux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/framepace/pkg/adapters/codecdetect"
	"github.com/user/framepace/pkg/ports"
)

var (
	// ErrNoTracks is returned when the file has no moov box or no tracks.
	ErrNoTracks = errors.New("mp4demux: no tracks found")
)

// Demuxer implements ports.Demuxer for progressive and fragmented MP4.
type Demuxer struct {
	reader  io.ReadSeeker
	closer  io.Closer
	file    *mp4.File
	streams []ports.StreamInfo

	// progressive files
	tracks []*sampleTrack

	// fragmented files
	fragmented bool
	fragments  []*mp4.Fragment
	trexs      map[uint32]*mp4.TrexBox
	trackIndex map[uint32]int
	nextFrag   int
	pending    []ports.Packet

	closed bool
}

// sampleTrack is a read cursor over one progressive track's sample table.
type sampleTrack struct {
	stream int
	stbl   *mp4.StblBox
	count  uint32
	next   uint32
	sync   map[uint32]bool
}

// Open parses the container structure from r. If r also implements
// io.Closer it is closed by Close.
func Open(r io.ReadSeeker) (*Demuxer, error) {
	file, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	d := &Demuxer{
		reader:     r,
		file:       file,
		trexs:      make(map[uint32]*mp4.TrexBox),
		trackIndex: make(map[uint32]int),
	}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}

	moov := file.Moov
	if file.IsFragmented() && file.Init != nil && file.Init.Moov != nil {
		moov = file.Init.Moov
		d.fragmented = true
	}
	if moov == nil || len(moov.Traks) == 0 {
		return nil, ErrNoTracks
	}

	for i, trak := range moov.Traks {
		info := describeTrack(i, trak)
		d.streams = append(d.streams, info)
		if trak.Tkhd != nil {
			d.trackIndex[trak.Tkhd.TrackID] = i
		}
		if !d.fragmented {
			d.tracks = append(d.tracks, newSampleTrack(i, trak))
		}
	}

	if d.fragmented {
		if moov.Mvex != nil {
			for _, trex := range moov.Mvex.Trexs {
				d.trexs[trex.TrackID] = trex
			}
		}
		for _, seg := range file.Segments {
			d.fragments = append(d.fragments, seg.Fragments...)
		}
	}

	return d, nil
}

func describeTrack(index int, trak *mp4.TrakBox) ports.StreamInfo {
	track := codecdetect.FromTrack(trak)
	info := ports.StreamInfo{
		Index:     index,
		MediaType: track.MediaType,
		Codec:     track.Codec,
		FourCC:    track.FourCC,
		Width:     track.Width,
		Height:    track.Height,
	}
	if trak.Mdia != nil && trak.Mdia.Mdhd != nil {
		info.TimeBase = ports.Rational{Num: 1, Den: int64(trak.Mdia.Mdhd.Timescale)}
	}
	return info
}

func newSampleTrack(index int, trak *mp4.TrakBox) *sampleTrack {
	t := &sampleTrack{stream: index, next: 1}
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return t
	}
	t.stbl = trak.Mdia.Minf.Stbl
	if t.stbl.Stsz != nil {
		t.count = t.stbl.Stsz.SampleNumber
	}
	if t.stbl.Stss != nil {
		t.sync = make(map[uint32]bool, len(t.stbl.Stss.SampleNumber))
		for _, nr := range t.stbl.Stss.SampleNumber {
			t.sync[nr] = true
		}
	}
	return t
}

// Streams returns the tracks in moov order.
func (d *Demuxer) Streams() []ports.StreamInfo {
	out := make([]ports.StreamInfo, len(d.streams))
	copy(out, d.streams)
	return out
}

// Fragmented reports whether the file uses movie fragments.
func (d *Demuxer) Fragmented() bool {
	return d.fragmented
}

// ReadPacket returns the next sample of any track.
func (d *Demuxer) ReadPacket(ctx context.Context) (ports.Packet, error) {
	if d.closed {
		return ports.Packet{}, ports.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return ports.Packet{}, err
	}
	if d.fragmented {
		return d.readFragmented()
	}
	return d.readProgressive()
}

func (d *Demuxer) readFragmented() (ports.Packet, error) {
	for len(d.pending) == 0 {
		if d.nextFrag >= len(d.fragments) {
			return ports.Packet{}, io.EOF
		}
		frag := d.fragments[d.nextFrag]
		d.nextFrag++
		if err := d.queueFragment(frag); err != nil {
			return ports.Packet{}, err
		}
	}
	pkt := d.pending[0]
	d.pending = d.pending[1:]
	return pkt, nil
}

func (d *Demuxer) queueFragment(frag *mp4.Fragment) error {
	if frag.Moof == nil {
		return nil
	}
	for _, traf := range frag.Moof.Trafs {
		trackID := traf.Tfhd.TrackID
		stream, ok := d.trackIndex[trackID]
		if !ok {
			continue
		}

		var baseDecodeTime uint64
		if traf.Tfdt != nil {
			baseDecodeTime = traf.Tfdt.BaseMediaDecodeTime()
		}

		samples, err := frag.GetFullSamples(d.trexs[trackID])
		if err != nil {
			return fmt.Errorf("get samples for track %d: %w", trackID, err)
		}

		currentTime := baseDecodeTime
		for _, sample := range samples {
			dts := int64(currentTime)
			d.pending = append(d.pending, ports.Packet{
				StreamIndex: stream,
				Data:        sample.Data,
				DTS:         dts,
				PTS:         dts + int64(sample.CompositionTimeOffset),
				Duration:    int64(sample.Dur),
				Keyframe:    sample.Flags == mp4.SyncSampleFlags,
			})
			currentTime += uint64(sample.Dur)
		}
	}
	return nil
}

// readProgressive returns the pending sample with the lowest file offset,
// which follows the on-disk interleaving of the tracks.
func (d *Demuxer) readProgressive() (ports.Packet, error) {
	var (
		best       *sampleTrack
		bestOffset uint64 = math.MaxUint64
	)
	for _, t := range d.tracks {
		if t.stbl == nil || t.next > t.count {
			continue
		}
		offset, err := sampleOffset(t.stbl, t.next)
		if err != nil {
			return ports.Packet{}, fmt.Errorf("locate sample %d of track %d: %w", t.next, t.stream, err)
		}
		if offset < bestOffset {
			best, bestOffset = t, offset
		}
	}
	if best == nil {
		return ports.Packet{}, io.EOF
	}

	nr := best.next
	best.next++

	size := best.stbl.Stsz.GetSampleSize(int(nr))
	if _, err := d.reader.Seek(int64(bestOffset), io.SeekStart); err != nil {
		return ports.Packet{}, fmt.Errorf("seek to sample: %w", err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(d.reader, data); err != nil {
		return ports.Packet{}, fmt.Errorf("read sample: %w", err)
	}

	var decodeTime uint64
	var dur uint32
	if best.stbl.Stts != nil {
		decodeTime, dur = best.stbl.Stts.GetDecodeTime(nr)
	}

	return ports.Packet{
		StreamIndex: best.stream,
		Data:        data,
		DTS:         int64(decodeTime),
		PTS:         int64(decodeTime),
		Duration:    int64(dur),
		Keyframe:    best.sync == nil || best.sync[nr],
	}, nil
}

// sampleOffset returns the absolute file offset of a 1-based sample number.
func sampleOffset(stbl *mp4.StblBox, sampleNr uint32) (uint64, error) {
	if stbl.Stsc == nil || stbl.Stsz == nil {
		return 0, fmt.Errorf("missing stsc or stsz box")
	}

	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	switch {
	case stbl.Stco != nil:
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr %d out of range", chunkNr)
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return 0, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < sampleNr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	return offset, nil
}

// Close releases the underlying reader. It is safe to call more than once.
func (d *Demuxer) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.pending = nil
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
