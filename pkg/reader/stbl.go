package reader

import (
	"fmt"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/timeline"
)

// maxUnsizedSamples bounds sample tables read from sources of unknown size.
const maxUnsizedSamples = 1 << 24

// readSampleTable turns the chunk tables of a non-fragmented track into one
// run. It returns nil when the track has no samples in the moov.
func (r *Reader) readSampleTable(init *InitSegment, track ContextID, stbl *box.SampleTableBox, size int64) (*TrackDecInfo, error) {
	if stbl == nil || stbl.Stsz == nil || stbl.Stsz.SampleCount == 0 {
		return nil, nil
	}
	stsz := stbl.Stsz
	count := stsz.SampleCount
	switch {
	case stsz.SampleSize == 0 && uint64(len(stsz.EntrySizes)) < uint64(count):
		return nil, fmt.Errorf("%w: stsz lists %d of %d sizes", pkg.ErrTruncatedStream, len(stsz.EntrySizes), count)
	case stsz.SampleSize != 0 && size >= 0 && uint64(count)*uint64(stsz.SampleSize) > uint64(size):
		return nil, fmt.Errorf("%w: %d samples of %d bytes in a %d byte stream", pkg.ErrTruncatedStream, count, stsz.SampleSize, size)
	case size < 0 && count > maxUnsizedSamples:
		return nil, fmt.Errorf("%w: %d samples in a stream of unknown size", pkg.ErrInvalidSize, count)
	}
	if stbl.Stsc == nil || len(stbl.Stsc.Entries) == 0 {
		return nil, fmt.Errorf("%w: track %d has samples but no stsc", pkg.ErrInvalidFileHeader, track)
	}
	chunks := stbl.Stsc.Entries
	offsets := stbl.ChunkOffsets()
	samples := make([]SampleInfo, count)
	n, e := 0, 0
	for c := 0; c < len(offsets) && n < len(samples); c++ {
		chunk := uint32(c + 1)
		for e+1 < len(chunks) && chunks[e+1].FirstChunk <= chunk {
			e++
		}
		offset := int64(offsets[c])
		for j := uint32(0); j < chunks[e].SamplesPerChunk && n < len(samples); j++ {
			length := stsz.Size(n)
			if size >= 0 && offset+int64(length) > size {
				return nil, fmt.Errorf("%w: sample %d of track %d at %d+%d", pkg.ErrTruncatedStream, n, track, offset, length)
			}
			samples[n] = SampleInfo{
				DataOffset:             offset,
				DataLength:             length,
				SampleDescriptionIndex: chunks[e].SampleDescriptionIndex,
				Flags:                  box.SyncSampleFlags,
			}
			offset += int64(length)
			n++
		}
	}
	if n < len(samples) {
		return nil, fmt.Errorf("%w: chunk tables place %d of %d samples", pkg.ErrTruncatedStream, n, count)
	}
	if stbl.Stss != nil {
		for i := range samples {
			samples[i].Flags = box.NonSyncSampleFlags
		}
		for _, num := range stbl.Stss.SampleNumbers {
			if num >= 1 && int(num) <= len(samples) {
				samples[num-1].Flags = box.SyncSampleFlags
			}
		}
	}
	dec := &TrackDecInfo{}
	if err := r.appendRun(init, track, dec, samples, timeline.FromSampleTable(stbl.Stts, stbl.Ctts, count), 0); err != nil {
		return nil, err
	}
	return dec, nil
}
