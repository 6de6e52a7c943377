package reader

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/codec"
	"m7s.live/omaf/pkg/extractor"
	"m7s.live/omaf/pkg/util"
)

func (r *Reader) initSegment(id InitSegmentID) (*InitSegment, error) {
	init, ok := r.inits[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown id %d", pkg.ErrInvalidInitSegment, id)
	}
	return init, nil
}

func (r *Reader) track(initID InitSegmentID, track ContextID) (*InitSegment, error) {
	init, err := r.initSegment(initID)
	if err != nil {
		return nil, err
	}
	if _, ok := r.contexts[contextKey{initID, track}]; !ok {
		return nil, fmt.Errorf("%w: no track %d in init segment %d", pkg.ErrInvalidContextID, track, initID)
	}
	return init, nil
}

// sample is a located item.
type sample struct {
	init *InitSegment
	seg  *Segment
	dec  *TrackDecInfo
	*SampleInfo
}

func (r *Reader) locate(initID InitSegmentID, track ContextID, item ItemID) (sample, error) {
	init, err := r.track(initID, track)
	if err != nil {
		return sample{}, err
	}
	for _, seg := range init.segments() {
		if dec, ok := seg.Tracks[track]; ok && dec.contains(item) {
			return sample{init, seg, dec, &dec.Samples[item-dec.ItemIDBase]}, nil
		}
	}
	return sample{}, fmt.Errorf("%w: item %d of track %d", pkg.ErrInvalidItemID, item, track)
}

func (r *Reader) description(initID InitSegmentID, track ContextID, item ItemID) (*SampleDescription, error) {
	s, err := r.locate(initID, track, item)
	if err != nil {
		return nil, err
	}
	desc, ok := s.init.Basic[track].SampleDescriptions[s.SampleDescriptionIndex]
	if !ok {
		return nil, fmt.Errorf("%w: %d for item %d of track %d", pkg.ErrInvalidSampleDescriptionIndex, s.SampleDescriptionIndex, item, track)
	}
	return desc, nil
}

// GetSampleOffset tells where the bytes of an item live.
func (r *Reader) GetSampleOffset(initID InitSegmentID, track ContextID, item ItemID) (SegmentID, int64, uint32, error) {
	s, err := r.locate(initID, track, item)
	if err != nil {
		return 0, 0, 0, err
	}
	return s.seg.ID, s.DataOffset, s.DataLength, nil
}

// ReadSampleData copies an item into buf. Extractor samples are always
// resolved against their scal references; with annexB set, AVC and HEVC
// samples are then converted to start-code framing. When buf is too small
// the required size is returned together with an error wrapping
// pkg.ErrMemoryTooSmallBuffer.
func (r *Reader) ReadSampleData(initID InitSegmentID, track ContextID, item ItemID, buf []byte, annexB bool) (int, error) {
	s, err := r.locate(initID, track, item)
	if err != nil {
		return 0, err
	}
	desc := s.init.Basic[track].SampleDescriptions[s.SampleDescriptionIndex]
	if !annexB && (desc == nil || desc.Family != codec.FamilyHEVCExtractor) {
		if len(buf) < int(s.DataLength) {
			return int(s.DataLength), fmt.Errorf("%w: need %d bytes, have %d", pkg.ErrMemoryTooSmallBuffer, s.DataLength, len(buf))
		}
		data, err := readAt(s.seg.Source, s.DataOffset, int(s.DataLength))
		if err != nil {
			return 0, err
		}
		return copy(buf, data), nil
	}
	if desc == nil {
		return 0, fmt.Errorf("%w: %d for item %d of track %d", pkg.ErrInvalidSampleDescriptionIndex, s.SampleDescriptionIndex, item, track)
	}
	out, err := readAt(s.seg.Source, s.DataOffset, int(s.DataLength))
	if err != nil {
		return 0, err
	}
	switch desc.Family {
	case codec.FamilyAVC, codec.FamilyHEVC:
	case codec.FamilyHEVCExtractor:
		if out, err = r.resolveExtractors(s, track, desc, out); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("%w: %s samples have no start-code form", pkg.ErrUnsupportedCodec, desc.Type)
	}
	if annexB {
		if out, err = codec.ToAnnexB(out, desc.NALLengthSize); err != nil {
			return 0, err
		}
	}
	if len(buf) < len(out) {
		return len(out), fmt.Errorf("%w: need %d bytes, have %d", pkg.ErrMemoryTooSmallBuffer, len(out), len(buf))
	}
	return copy(buf, out), nil
}

// GetSampleData is ReadSampleData with an allocated buffer.
func (r *Reader) GetSampleData(initID InitSegmentID, track ContextID, item ItemID, annexB bool) ([]byte, error) {
	_, _, length, err := r.GetSampleOffset(initID, track, item)
	if err != nil {
		return nil, err
	}
	size := int(length)
	for {
		buf := make([]byte, size)
		n, err := r.ReadSampleData(initID, track, item, buf, annexB)
		if errors.Is(err, pkg.ErrMemoryTooSmallBuffer) && n > size {
			size = n
			continue
		}
		if err != nil {
			return nil, err
		}
		return buf[:n], nil
	}
}

// scalResolver serves the samples an extractor item references through the
// scal track references, at the same position in the same segment.
type scalResolver struct {
	seg   *Segment
	refs  []ContextID
	index int
}

func (sr *scalResolver) target(trackRefIndex uint8, sampleOffset int8) (*SampleInfo, error) {
	if trackRefIndex == 0 || int(trackRefIndex) > len(sr.refs) {
		return nil, fmt.Errorf("%w: scal reference %d of %d", pkg.ErrInvalidContextID, trackRefIndex, len(sr.refs))
	}
	track := sr.refs[trackRefIndex-1]
	dec, ok := sr.seg.Tracks[track]
	if !ok {
		return nil, fmt.Errorf("%w: track %d not in segment %d", pkg.ErrInvalidContextID, track, sr.seg.ID)
	}
	i := sr.index + int(sampleOffset)
	if i < 0 || i >= len(dec.Samples) {
		return nil, fmt.Errorf("%w: sample %d of track %d in segment %d", pkg.ErrInvalidItemID, i, track, sr.seg.ID)
	}
	return &dec.Samples[i], nil
}

func (sr *scalResolver) ReferencedSample(trackRefIndex uint8, sampleOffset int8) ([]byte, error) {
	s, err := sr.target(trackRefIndex, sampleOffset)
	if err != nil {
		return nil, err
	}
	return readAt(sr.seg.Source, s.DataOffset, int(s.DataLength))
}

func (sr *scalResolver) ReferencedSampleSize(trackRefIndex uint8, sampleOffset int8) (int, bool, error) {
	s, err := sr.target(trackRefIndex, sampleOffset)
	if err != nil {
		return 0, false, err
	}
	return int(s.DataLength), true, nil
}

func (r *Reader) resolveExtractors(s sample, track ContextID, desc *SampleDescription, data []byte) ([]byte, error) {
	units, err := extractor.ParseSample(data, desc.NALLengthSize)
	if err != nil {
		return nil, err
	}
	resolver := &scalResolver{
		seg:   s.seg,
		refs:  s.init.Properties[track].References[box.TypeSCAL],
		index: int(s.ID - s.dec.ItemIDBase),
	}
	size, err := extractor.RequiredSize(units, desc.NALLengthSize, resolver)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	n, err := extractor.Resolve(out, units, desc.NALLengthSize, resolver)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// GetDecoderConfiguration returns the parameter sets of the sample
// description an item uses. Video parameter sets carry start codes.
func (r *Reader) GetDecoderConfiguration(initID InitSegmentID, track ContextID, item ItemID) ([]DecoderSpecificInfo, error) {
	desc, err := r.description(initID, track, item)
	if err != nil {
		return nil, err
	}
	var ret []DecoderSpecificInfo
	switch desc.Family {
	case codec.FamilyAVC, codec.FamilyHEVC, codec.FamilyHEVCExtractor:
		for _, ps := range desc.ParameterSets {
			if ps.Kind == box.ParameterSetSEI {
				continue
			}
			units, err := codec.AnnexBUnits([][]byte{ps.Data})
			if err != nil {
				return nil, err
			}
			ret = append(ret, DecoderSpecificInfo{Kind: ps.Kind, Data: units[0]})
		}
	case codec.FamilyAAC:
		for _, ps := range desc.ParameterSets {
			ret = append(ret, DecoderSpecificInfo{Kind: ps.Kind, Data: ps.Data})
		}
	default:
		return nil, fmt.Errorf("%w: %s", pkg.ErrUnsupportedCodec, desc.Type)
	}
	return ret, nil
}

// GetTimestamps lists the presentation times of an item, empty when an edit
// list hides it.
func (r *Reader) GetTimestamps(initID InitSegmentID, track ContextID, item ItemID) ([]time.Duration, error) {
	s, err := r.locate(initID, track, item)
	if err != nil {
		return nil, err
	}
	return s.CompositionTimes, nil
}

func (r *Reader) GetTimestampsTS(initID InitSegmentID, track ContextID, item ItemID) ([]int64, error) {
	s, err := r.locate(initID, track, item)
	if err != nil {
		return nil, err
	}
	return s.CompositionTimesTS, nil
}

// presentation merges the segment PMaps of a track into item ids.
func (init *InitSegment) presentation(track ContextID) *util.OrderedMap[time.Duration, ItemID] {
	var m util.OrderedMap[time.Duration, ItemID]
	for _, seg := range init.segments() {
		if dec, ok := seg.Tracks[track]; ok {
			base := dec.ItemIDBase
			util.Merge(&m, &dec.PMap, func(i uint32) ItemID { return base + ItemID(i) })
		}
	}
	return &m
}

// GetTrackTimestamps lists (time, item) pairs of a track in presentation order.
func (r *Reader) GetTrackTimestamps(initID InitSegmentID, track ContextID) ([]TimestampItem, error) {
	init, err := r.track(initID, track)
	if err != nil {
		return nil, err
	}
	m := init.presentation(track)
	ret := make([]TimestampItem, 0, m.Len())
	m.Range(func(t time.Duration, item ItemID) bool {
		ret = append(ret, TimestampItem{Time: t, Item: item})
		return true
	})
	return ret, nil
}

// GetSamplesInDecodingOrder lists every item of a track by decode time. The
// presentation time is the first composition time, or the decode time for
// items an edit list hides.
func (r *Reader) GetSamplesInDecodingOrder(initID InitSegmentID, track ContextID) ([]DecodingOrderItem, error) {
	init, err := r.track(initID, track)
	if err != nil {
		return nil, err
	}
	var ret []DecodingOrderItem
	for _, seg := range init.segments() {
		dec, ok := seg.Tracks[track]
		if !ok {
			continue
		}
		for _, s := range dec.Samples {
			pts := s.DecodeTimeTS
			if len(s.CompositionTimesTS) > 0 {
				pts = s.CompositionTimesTS[0]
			}
			ret = append(ret, DecodingOrderItem{Item: s.ID, DecodeTimeTS: s.DecodeTimeTS, PresentationTimeTS: pts})
		}
	}
	slices.SortStableFunc(ret, func(a, b DecodingOrderItem) int {
		return cmp.Compare(a.DecodeTimeTS, b.DecodeTimeTS)
	})
	return ret, nil
}

func (r *Reader) GetSamplesByType(initID InitSegmentID, track ContextID, t SampleType) ([]ItemID, error) {
	init, err := r.track(initID, track)
	if err != nil {
		return nil, err
	}
	var ret []ItemID
	for _, seg := range init.segments() {
		if dec, ok := seg.Tracks[track]; ok {
			for _, s := range dec.Samples {
				if s.Type == t {
					ret = append(ret, s.ID)
				}
			}
		}
	}
	return ret, nil
}

// GetItemIDByTime finds the item presented at t. With syncOnly the result
// is the closest sync sample at or before it in decode order.
func (r *Reader) GetItemIDByTime(initID InitSegmentID, track ContextID, t time.Duration, syncOnly bool) (ItemID, error) {
	init, err := r.track(initID, track)
	if err != nil {
		return 0, err
	}
	_, item, ok := init.presentation(track).Floor(t)
	if !ok {
		return 0, fmt.Errorf("%w: nothing presented at %v on track %d", pkg.ErrInvalidItemID, t, track)
	}
	if !syncOnly {
		return item, nil
	}
	for {
		s, err := r.locate(initID, track, item)
		if err != nil {
			return 0, err
		}
		if s.Flags.IsSync() {
			return item, nil
		}
		if item == 0 {
			return 0, fmt.Errorf("%w: no sync sample before %v on track %d", pkg.ErrInvalidItemID, t, track)
		}
		item--
	}
}

// GetTrackDuration sums the durations of every registered segment of a track.
func (r *Reader) GetTrackDuration(initID InitSegmentID, track ContextID) (int64, uint32, error) {
	init, err := r.track(initID, track)
	if err != nil {
		return 0, 0, err
	}
	var total int64
	for _, seg := range init.segments() {
		if dec, ok := seg.Tracks[track]; ok {
			total += dec.DurationTS
		}
	}
	return total, init.Basic[track].Timescale, nil
}
