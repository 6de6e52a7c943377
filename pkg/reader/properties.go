package reader

import (
	"fmt"
	"slices"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/codec"
)

// property resolves the sample description of an item and picks one record
// out of it, failing with pkg.ErrPropertyNotFound when the record is absent.
func property[T any](r *Reader, initID InitSegmentID, track ContextID, item ItemID, name string, pick func(*SampleDescription) *T) (*T, error) {
	desc, err := r.description(initID, track, item)
	if err != nil {
		return nil, err
	}
	if v := pick(desc); v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s for item %d of track %d", pkg.ErrPropertyNotFound, name, item, track)
}

func (r *Reader) GetProjectionFormat(initID InitSegmentID, track ContextID, item ItemID) (*box.ProjectionFormatBox, error) {
	return property(r, initID, track, item, "prfr", func(d *SampleDescription) *box.ProjectionFormatBox { return d.ProjectionFormat })
}

func (r *Reader) GetRegionWisePacking(initID InitSegmentID, track ContextID, item ItemID) (*box.RegionWisePackingBox, error) {
	return property(r, initID, track, item, "rwpk", func(d *SampleDescription) *box.RegionWisePackingBox { return d.RegionWisePacking })
}

func (r *Reader) GetCoverageInformation(initID InitSegmentID, track ContextID, item ItemID) (*box.CoverageInformationBox, error) {
	return property(r, initID, track, item, "covi", func(d *SampleDescription) *box.CoverageInformationBox { return d.Coverage })
}

func (r *Reader) GetRotation(initID InitSegmentID, track ContextID, item ItemID) (*box.RotationBox, error) {
	return property(r, initID, track, item, "rotn", func(d *SampleDescription) *box.RotationBox { return d.Rotation })
}

// GetStereoVideo returns the OMAF stvi record.
func (r *Reader) GetStereoVideo(initID InitSegmentID, track ContextID, item ItemID) (*box.StereoVideoBox, error) {
	return property(r, initID, track, item, "stvi", func(d *SampleDescription) *box.StereoVideoBox { return d.StereoVideo })
}

// GetStereoVideoV2 returns the spherical v2 st3d record.
func (r *Reader) GetStereoVideoV2(initID InitSegmentID, track ContextID, item ItemID) (*box.StereoscopicVideoBox, error) {
	return property(r, initID, track, item, "st3d", func(d *SampleDescription) *box.StereoscopicVideoBox { return d.Stereo3D })
}

func (r *Reader) GetSphericalV1(initID InitSegmentID, track ContextID, item ItemID) (*box.SphericalVideoV1, error) {
	return property(r, initID, track, item, "spherical v1", func(d *SampleDescription) *box.SphericalVideoV1 { return d.SphericalV1 })
}

func (r *Reader) GetSphericalV2(initID InitSegmentID, track ContextID, item ItemID) (*box.SphericalVideoBox, error) {
	return property(r, initID, track, item, "sv3d", func(d *SampleDescription) *box.SphericalVideoBox { return d.SphericalV2 })
}

func (r *Reader) GetChannelLayout(initID InitSegmentID, track ContextID, item ItemID) (*box.ChannelLayoutBox, error) {
	return property(r, initID, track, item, "chnl", func(d *SampleDescription) *box.ChannelLayoutBox { return d.ChannelLayout })
}

func (r *Reader) GetSpatialAudio(initID InitSegmentID, track ContextID, item ItemID) (*box.SpatialAudioBox, error) {
	return property(r, initID, track, item, "SA3D", func(d *SampleDescription) *box.SpatialAudioBox { return d.SpatialAudio })
}

func (r *Reader) GetSchemeTypes(initID InitSegmentID, track ContextID, item ItemID) (*SchemeTypes, error) {
	return property(r, initID, track, item, "schm", func(d *SampleDescription) *SchemeTypes { return d.SchemeTypes })
}

func (r *Reader) GetURIMeta(initID InitSegmentID, track ContextID, item ItemID) (*URIMeta, error) {
	return property(r, initID, track, item, "urim", func(d *SampleDescription) *URIMeta { return d.URIMeta })
}

func (r *Reader) GetFileProperties(initID InitSegmentID) (FileProperties, error) {
	init, err := r.initSegment(initID)
	if err != nil {
		return FileProperties{}, err
	}
	return init.FileProperties, nil
}

// GetSegmentBrands returns the styp brands of a segment, major brand first.
func (r *Reader) GetSegmentBrands(initID InitSegmentID, id SegmentID) ([]box.BoxType, error) {
	init, err := r.initSegment(initID)
	if err != nil {
		return nil, err
	}
	seg, ok := init.Segments[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown id %d", pkg.ErrInvalidSegment, id)
	}
	if seg.Styp == nil {
		return nil, fmt.Errorf("%w: segment %d has no styp", pkg.ErrPropertyNotFound, id)
	}
	return append([]box.BoxType{seg.Styp.MajorBrand}, seg.Styp.CompatibleBrands...), nil
}

func (r *Reader) GetSegmentIndex(initID InitSegmentID, track ContextID) ([]SegInfo, error) {
	init, err := r.track(initID, track)
	if err != nil {
		return nil, err
	}
	return init.SegmentIndex[track], nil
}

// GetTrackInformation describes every track of every registered init segment,
// ordered by init segment id and then moov order.
func (r *Reader) GetTrackInformation() []TrackInformation {
	ids := make([]InitSegmentID, 0, len(r.inits))
	for id := range r.inits {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	var ret []TrackInformation
	for _, id := range ids {
		init := r.inits[id]
		for _, track := range init.TrackIDs {
			ret = append(ret, r.trackInformation(init, track))
		}
	}
	return ret
}

func (r *Reader) trackInformation(init *InitSegment, track ContextID) TrackInformation {
	basic, props := init.Basic[track], init.Properties[track]
	info := TrackInformation{
		InitSegmentID:  init.ID,
		TrackID:        track,
		AlternateGroup: props.AlternateGroup,
		Handler:        basic.Handler,
		Type:           r.contexts[contextKey{init.ID, track}],
		Timescale:      basic.Timescale,
		Width:          basic.Width,
		Height:         basic.Height,
		References:     props.References,
		TrackGroups:    props.TrackGroups,
	}
	indices := make([]uint32, 0, len(basic.SampleDescriptions))
	for index := range basic.SampleDescriptions {
		indices = append(indices, index)
	}
	slices.Sort(indices)
	for _, index := range indices {
		desc := basic.SampleDescriptions[index]
		info.SampleDescriptions = append(info.SampleDescriptions, desc)
		info.SampleEntryTypes = append(info.SampleEntryTypes, desc.Type)
		info.Features |= featuresOf(desc)
	}
	if props.HasEditList {
		info.Features |= FeatureEditList
	}
	if len(props.References[box.TypeSCAL]) > 0 {
		info.Features |= FeatureExtractor
	}
	for _, seg := range init.segments() {
		dec, ok := seg.Tracks[track]
		if !ok {
			continue
		}
		info.DurationTS += dec.DurationTS
		for _, s := range dec.Samples {
			info.Samples = append(info.Samples, SampleProperties{
				ID:                     s.ID,
				Segment:                seg.ID,
				Type:                   s.Type,
				SampleDescriptionIndex: s.SampleDescriptionIndex,
				Size:                   s.DataLength,
				Duration:               s.Duration,
				Sync:                   s.Flags.IsSync(),
			})
			info.MaxSampleSize = max(info.MaxSampleSize, s.DataLength)
		}
	}
	// tile tracks are the scal targets of an extractor track in the same init segment
	for _, other := range init.TrackIDs {
		if slices.Contains(init.Properties[other].References[box.TypeSCAL], track) {
			info.Features |= FeatureTileTrack
			break
		}
	}
	return info
}

func featuresOf(desc *SampleDescription) (f TrackFeature) {
	if desc.ProjectionFormat != nil {
		f |= FeatureVR
	}
	if desc.Family == codec.FamilyHEVCExtractor {
		f |= FeatureExtractor
	}
	if desc.StereoVideo != nil || desc.Stereo3D != nil {
		f |= FeatureStereo
	}
	if desc.SphericalV1 != nil || desc.SphericalV2 != nil {
		f |= FeatureSpherical
	}
	if desc.ChannelLayout != nil {
		f |= FeatureChannelLayout
	}
	if desc.SpatialAudio != nil {
		f |= FeatureSpatialAudio
	}
	if desc.URIMeta != nil {
		f |= FeatureURIMeta
	}
	return
}
