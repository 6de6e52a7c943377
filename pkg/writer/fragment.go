package writer

import (
	"fmt"
	"math"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/util"
)

type trackSegment struct {
	track *track
	subs  []*subsegment
	frags [][]byte // moof+mdat per sub-segment
}

func (p *trackSegment) size() (n int) {
	for _, frag := range p.frags {
		n += len(frag)
	}
	return
}

// span is the presentation interval of the part in seconds.
func (p *trackSegment) span() (start, end util.Fraction) {
	first, last := int64(math.MaxInt64), int64(math.MinInt64)
	for _, sub := range p.subs {
		first = min(first, sub.earliestPTS())
		last = max(last, sub.presentationEnd())
	}
	ts := int64(p.track.meta.Timescale)
	return util.NewFraction(first, ts), util.NewFraction(last, ts)
}

func (w *SegmentWriter) encodeSegment(parts []trackSegment) (Segment, error) {
	for i := range parts {
		for _, sub := range parts[i].subs {
			w.fragment++
			frag, err := encodeFragment(w.fragment, parts[i].track.meta.TrackID, sub)
			if err != nil {
				return Segment{}, err
			}
			parts[i].frags = append(parts[i].frags, frag)
		}
	}
	start, end := parts[0].span()
	for _, p := range parts[1:] {
		s, e := p.span()
		if s.Cmp(start) < 0 {
			start = s
		}
		if e.Cmp(end) > 0 {
			end = e
		}
	}
	seg := Segment{Sequence: w.sequence, Start: start, Duration: end.Sub(start)}

	major := brand(w.cfg.SegmentBrand)
	styp := box.NewFileTypeBox(box.TypeSTYP, major, 0, major, box.TypeMSIX)
	boxes := []box.Box{styp}
	if !w.cfg.NoSidx {
		sidxs := make([]*box.SegmentIndexBox, len(parts))
		for i := range parts {
			sidxs[i] = segmentIndex(&parts[i])
		}
		// the i-th sidx skips the later sidx boxes and the fragments of earlier tracks
		for i, sidx := range sidxs {
			var offset int
			for _, later := range sidxs[i+1:] {
				offset += box.SizeOf(later)
			}
			for _, earlier := range parts[:i] {
				offset += earlier.size()
			}
			sidx.FirstOffset = uint64(offset)
			boxes = append(boxes, sidx)
		}
	}
	data := box.EncodeBox(boxes...)
	for _, p := range parts {
		for _, frag := range p.frags {
			data = append(data, frag...)
		}
	}
	seg.Data = data
	return seg, nil
}

func segmentIndex(p *trackSegment) *box.SegmentIndexBox {
	sidx := &box.SegmentIndexBox{
		FullBox:                  box.FullBox{Version: 1},
		ReferenceID:              p.track.meta.TrackID,
		Timescale:                p.track.meta.Timescale,
		EarliestPresentationTime: uint64(max(p.subs[0].earliestPTS(), 0)),
	}
	for i, sub := range p.subs {
		ref := box.SidxReference{
			ReferencedSize:     uint32(len(p.frags[i])),
			SubsegmentDuration: uint32(sub.duration),
		}
		if sub.samples[0].sync {
			ref.StartsWithSAP, ref.SAPType = true, 1
		}
		sidx.References = append(sidx.References, ref)
	}
	return sidx
}

// encodeFragment builds the moof and mdat of one sub-segment. The moof is
// sized first so the trun data offset can point past it into the mdat.
func encodeFragment(sequence, trackID uint32, sub *subsegment) ([]byte, error) {
	trun := &box.TrackRunBox{FullBox: box.FullBox{
		Version: 1,
		Flags:   box.TR_FLAG_DATA_OFFSET | box.TR_FLAG_DATA_SAMPLE_DURATION | box.TR_FLAG_DATA_SAMPLE_SIZE | box.TR_FLAG_DATA_SAMPLE_FLAGS,
	}}
	mdat := &box.MediaDataBox{}
	for _, s := range sub.samples {
		if s.cto < math.MinInt32 || s.cto > math.MaxInt32 {
			return nil, fmt.Errorf("%w: composition offset %d of track %d", pkg.ErrOperationFailed, s.cto, trackID)
		}
		entry := box.TrunEntry{
			Duration:              s.duration,
			Size:                  uint32(len(s.data)),
			Flags:                 box.NonSyncSampleFlags,
			CompositionTimeOffset: uint32(int32(s.cto)),
		}
		if s.sync {
			entry.Flags = box.SyncSampleFlags
		}
		if s.cto != 0 {
			trun.Flags |= box.TR_FLAG_DATA_SAMPLE_COMPOSITION_TIME
		}
		trun.Entries = append(trun.Entries, entry)
		mdat.Data = append(mdat.Data, s.data...)
	}
	tfhd := &box.TrackFragmentHeaderBox{FullBox: box.FullBox{Flags: box.TF_FLAG_DEFAULT_BASE_IS_MOOF}, TrackID: trackID}
	traf := &box.TrackFragmentBox{}
	traf.AddChild(tfhd)
	traf.AddChild(box.NewTrackFragmentBaseMediaDecodeTimeBox(uint64(sub.baseTime)))
	traf.AddChild(trun)
	moof := &box.MovieFragmentBox{}
	moof.AddChild(&box.MovieFragmentHeaderBox{SequenceNumber: sequence})
	moof.AddChild(traf)
	offset := box.SizeOf(moof) + mdat.HeaderSize()
	if offset > math.MaxInt32 {
		return nil, fmt.Errorf("%w: moof of %d bytes", pkg.ErrOperationFailed, offset)
	}
	trun.DataOffset = int32(offset)
	return box.EncodeBox(moof, mdat), nil
}
