package reader

import (
	"fmt"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/timeline"
	"m7s.live/omaf/pkg/util"
)

// fragmentState carries what one segment parse has learned so far. Nothing in
// it is visible to queries until commit.
type fragmentState struct {
	init     *InitSegment
	seg      *Segment
	earliest *int64
	sidxEPT  map[ContextID]int64
	next     map[ContextID]int64
	index    map[ContextID][]SegInfo
}

func newFragmentState(init *InitSegment, seg *Segment, earliest *int64) *fragmentState {
	return &fragmentState{
		init:     init,
		seg:      seg,
		earliest: earliest,
		sidxEPT:  make(map[ContextID]int64),
		next:     make(map[ContextID]int64),
		index:    make(map[ContextID][]SegInfo),
	}
}

// previous is the track table of the latest committed segment carrying track.
func (st *fragmentState) previous(track ContextID) *TrackDecInfo {
	for i := st.init.Sequences.Len() - 1; i >= 0; i-- {
		_, id := st.init.Sequences.At(i)
		if seg, ok := st.init.Segments[id]; ok && seg != st.seg {
			if dec, ok := seg.Tracks[track]; ok {
				return dec
			}
		}
	}
	return nil
}

// baseDecodeTime applies to the first traf of a track without tfdt.
func (st *fragmentState) baseDecodeTime(track ContextID) int64 {
	if t, ok := st.next[track]; ok {
		return t
	}
	if st.earliest != nil {
		return *st.earliest
	}
	if t, ok := st.sidxEPT[track]; ok {
		return t
	}
	if prev := st.previous(track); prev != nil {
		return prev.NextPTSTS
	}
	return 0
}

func (r *Reader) parseFragments(st *fragmentState, tops []*topBox) error {
	for _, top := range tops {
		switch b := top.Box.(type) {
		case nil:
		case *box.FileTypeBox:
			if b.BoxType == box.TypeSTYP && st.seg.Styp == nil {
				st.seg.Styp = b
			}
		case *box.SegmentIndexBox:
			st.indexSidx(b, top.End())
		case *box.MovieFragmentBox:
			if err := r.parseMoof(st, b, top.Offset); err != nil {
				return err
			}
		default:
			r.Debug("skip top-level box", "type", b.Type(), "offset", top.Offset, "size", top.Size)
		}
	}
	return nil
}

// indexSidx records the references of a sidx. The first reference starts
// first_offset bytes after the end of the sidx.
func (st *fragmentState) indexSidx(sidx *box.SegmentIndexBox, end int64) {
	track := ContextID(sidx.ReferenceID)
	ept := int64(sidx.EarliestPresentationTime)
	if _, ok := st.sidxEPT[track]; !ok {
		if basic, ok := st.init.Basic[track]; ok && sidx.Timescale != 0 && sidx.Timescale != basic.Timescale {
			st.sidxEPT[track] = util.Rescale(ept, uint64(sidx.Timescale), uint64(basic.Timescale))
		} else {
			st.sidxEPT[track] = ept
		}
	}
	offset := end + int64(sidx.FirstOffset)
	for _, ref := range sidx.References {
		st.index[track] = append(st.index[track], SegInfo{
			SegmentID:     st.seg.ID,
			ReferenceID:   sidx.ReferenceID,
			Timescale:     sidx.Timescale,
			EarliestPTS:   ept,
			Duration:      ref.SubsegmentDuration,
			DataOffset:    offset,
			DataSize:      ref.ReferencedSize,
			IndexRef:      ref.ReferenceType,
			StartsWithSAP: ref.StartsWithSAP,
			SAPType:       ref.SAPType,
		})
		ept += int64(ref.SubsegmentDuration)
		offset += int64(ref.ReferencedSize)
	}
}

type fragmentDefaults struct {
	sampleDescriptionIndex uint32
	duration               uint32
	size                   uint32
	flags                  box.SampleFlags
}

func defaultsOf(trex *box.TrackExtendsBox, tfhd *box.TrackFragmentHeaderBox) (d fragmentDefaults) {
	d.sampleDescriptionIndex = 1
	if trex != nil {
		d.sampleDescriptionIndex = trex.DefaultSampleDescriptionIndex
		d.duration = trex.DefaultSampleDuration
		d.size = trex.DefaultSampleSize
		d.flags = trex.DefaultSampleFlags
	}
	if tfhd.Has(box.TF_FLAG_SAMPLE_DESCRIPTION_INDEX) {
		d.sampleDescriptionIndex = tfhd.SampleDescriptionIndex
	}
	if tfhd.Has(box.TF_FLAG_DEFAULT_SAMPLE_DURATION) {
		d.duration = tfhd.DefaultSampleDuration
	}
	if tfhd.Has(box.TF_FLAG_DEFAULT_SAMPLE_SIZE) {
		d.size = tfhd.DefaultSampleSize
	}
	if tfhd.Has(box.TF_FLAG_DEFAULT_SAMPLE_FLAGS) {
		d.flags = tfhd.DefaultSampleFlags
	}
	return
}

func (r *Reader) parseMoof(st *fragmentState, moof *box.MovieFragmentBox, moofOffset int64) error {
	dataEnd := moofOffset
	for i, traf := range moof.Trafs {
		tfhd := traf.Tfhd
		if tfhd == nil {
			return fmt.Errorf("%w: traf without tfhd in moof at %d", pkg.ErrInvalidSegment, moofOffset)
		}
		track := ContextID(tfhd.TrackID)
		props, ok := st.init.Properties[track]
		if !ok {
			return fmt.Errorf("%w: traf for track %d", pkg.ErrInvalidContextID, track)
		}
		d := defaultsOf(props.Trex, tfhd)
		var base int64
		switch {
		case tfhd.Has(box.TF_FLAG_BASE_DATA_OFFSET):
			base = int64(tfhd.BaseDataOffset)
		case tfhd.Has(box.TF_FLAG_DEFAULT_BASE_IS_MOOF) || i == 0:
			base = moofOffset
		default:
			base = dataEnd
		}
		var decodeTime int64
		if traf.Tfdt != nil {
			decodeTime = int64(traf.Tfdt.BaseMediaDecodeTime)
		} else {
			decodeTime = st.baseDecodeTime(track)
		}
		dec := st.seg.Tracks[track]
		if dec == nil {
			dec = &TrackDecInfo{}
			st.seg.Tracks[track] = dec
		}
		pos := base
		for _, trun := range traf.Truns {
			if trun.Has(box.TR_FLAG_DATA_OFFSET) {
				pos = base + int64(trun.DataOffset)
			}
			samples := make([]SampleInfo, len(trun.Entries))
			for j, entry := range trun.Entries {
				length := d.size
				if trun.Has(box.TR_FLAG_DATA_SAMPLE_SIZE) {
					length = entry.Size
				}
				flags := d.flags
				if trun.Has(box.TR_FLAG_DATA_SAMPLE_FLAGS) {
					flags = entry.Flags
				} else if j == 0 && trun.Has(box.TR_FLAG_DATA_FIRST_SAMPLE_FLAGS) {
					flags = trun.FirstSampleFlags
				}
				if pos < 0 || (st.seg.Size >= 0 && pos+int64(length) > st.seg.Size) {
					return fmt.Errorf("%w: sample %d of track %d at %d+%d", pkg.ErrTruncatedStream, j, track, pos, length)
				}
				samples[j] = SampleInfo{
					DataOffset:             pos,
					DataLength:             length,
					SampleDescriptionIndex: d.sampleDescriptionIndex,
					Flags:                  flags,
				}
				pos += int64(length)
			}
			if err := r.appendRun(st.init, track, dec, samples, timeline.FromTrackRun(trun, d.duration), decodeTime); err != nil {
				return err
			}
			decodeTime = dec.NextPTSTS
		}
		st.next[track] = decodeTime
		dataEnd = pos
	}
	return nil
}

// appendRun times one run of samples and appends it to dec.
func (r *Reader) appendRun(init *InitSegment, track ContextID, dec *TrackDecInfo, samples []SampleInfo, timing []timeline.Sample, base int64) error {
	basic, props := init.Basic[track], init.Properties[track]
	d, err := timeline.New(timing, timeline.Params{
		MediaTimescale: basic.Timescale,
		MovieTimescale: init.MovieTimescale,
		BaseDecodeTime: base,
		EditList:       props.EditList,
	})
	if err != nil {
		return fmt.Errorf("track %d: %w", track, err)
	}
	ts, ns := d.CompositionTimes()
	decodeTimes, durations := d.DecodeTimes(), d.Durations()
	for i := range samples {
		s := &samples[i]
		s.Duration = durations[i]
		s.DecodeTimeTS = decodeTimes[i]
		s.CompositionTimesTS, s.CompositionTimes = ts[i], ns[i]
		s.Type = sampleType(s.Flags, len(ts[i]) > 0)
		if desc, ok := basic.SampleDescriptions[s.SampleDescriptionIndex]; ok {
			s.Width, s.Height = desc.Width, desc.Height
		}
	}
	offset := uint32(len(dec.Samples))
	shift := func(i uint32) uint32 { return i + offset }
	util.Merge(&dec.PMapTS, &d.PMapTS, shift)
	util.Merge(&dec.PMap, &d.PMap, shift)
	if len(dec.Samples) == 0 {
		dec.BaseDecodeTimeTS = base
	}
	dec.Samples = append(dec.Samples, samples...)
	dec.DurationTS += d.TotalDuration()
	dec.NextPTSTS = d.NextDecodeTime()
	return nil
}

func sampleType(flags box.SampleFlags, output bool) SampleType {
	switch {
	case !output:
		return NonOutputReference
	case flags.IsDependedOn() == 2:
		return OutputNonReference
	}
	return OutputReference
}
