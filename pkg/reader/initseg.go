package reader

import (
	"fmt"

	"m7s.live/omaf/pkg"
	"m7s.live/omaf/pkg/box"
	"m7s.live/omaf/pkg/codec"
)

func (r *Reader) buildInit(id InitSegmentID, ftyp *box.FileTypeBox, moov *box.MovieBox) (*InitSegment, error) {
	if moov.Mvhd == nil {
		return nil, fmt.Errorf("%w: moov without mvhd", pkg.ErrInvalidFileHeader)
	}
	init := &InitSegment{
		ID: id,
		FileProperties: FileProperties{
			MajorBrand:       ftyp.MajorBrand,
			MinorVersion:     ftyp.MinorVersion,
			CompatibleBrands: ftyp.CompatibleBrands,
		},
		MovieTimescale: moov.Mvhd.Timescale,
		Fragmented:     moov.Mvex != nil,
		Basic:          make(map[ContextID]*TrackBasicInfo),
		Properties:     make(map[ContextID]*TrackProperties),
		Segments:       make(map[SegmentID]*Segment),
		SegmentIndex:   make(map[ContextID][]SegInfo),
	}
	for _, trak := range moov.Traks {
		if err := r.buildTrack(init, moov, trak); err != nil {
			return nil, err
		}
	}
	return init, nil
}

func (r *Reader) buildTrack(init *InitSegment, moov *box.MovieBox, trak *box.TrackBox) error {
	if trak.Tkhd == nil || trak.Mdia == nil || trak.Mdia.Mdhd == nil || trak.Mdia.Hdlr == nil {
		return fmt.Errorf("%w: track without tkhd, mdhd or hdlr", pkg.ErrInvalidFileHeader)
	}
	stbl := trak.Stbl()
	if stbl == nil || stbl.Stsd == nil {
		return fmt.Errorf("%w: track %d without stsd", pkg.ErrInvalidFileHeader, trak.Tkhd.TrackID)
	}
	id := ContextID(trak.Tkhd.TrackID)
	if _, ok := init.Basic[id]; ok {
		return fmt.Errorf("%w: duplicate track id %d", pkg.ErrInvalidFileHeader, id)
	}
	basic := &TrackBasicInfo{
		Timescale:          trak.Mdia.Mdhd.Timescale,
		Handler:            trak.Mdia.Hdlr.HandlerType,
		SampleDescriptions: make(map[uint32]*SampleDescription, len(stbl.Stsd.Entries)),
	}
	for i, entry := range stbl.Stsd.Entries {
		desc := r.describe(uint32(i+1), entry, trak)
		basic.SampleDescriptions[desc.Index] = desc
		if i == 0 {
			basic.SampleEntryType = desc.Type
			basic.Width, basic.Height = desc.Width, desc.Height
		}
	}
	if basic.Width == 0 && basic.Height == 0 {
		basic.Width, basic.Height = trak.Tkhd.Width>>16, trak.Tkhd.Height>>16
	}
	props := &TrackProperties{
		AlternateGroup: trak.Tkhd.AlternateGroup,
		References:     make(map[box.BoxType][]ContextID),
		TrackGroups:    make(map[box.BoxType][]uint32),
	}
	if trak.Tref != nil {
		for _, ref := range trak.Tref.References {
			for _, tid := range ref.TrackIDs {
				props.References[ref.ReferenceType] = append(props.References[ref.ReferenceType], ContextID(tid))
			}
		}
	}
	if trak.Trgr != nil {
		for _, g := range trak.Trgr.Groups {
			props.TrackGroups[g.GroupType] = append(props.TrackGroups[g.GroupType], g.TrackGroupID)
		}
	}
	if trak.Edts != nil && trak.Edts.Elst != nil {
		props.HasEditList = true
		props.EditList = trak.Edts.Elst.Entries
	}
	if moov.Mvex != nil {
		props.Trex = moov.Mvex.Trex(uint32(id))
	}
	init.TrackIDs = append(init.TrackIDs, id)
	init.Basic[id] = basic
	init.Properties[id] = props
	return nil
}

// describe collects the decoder and presentation records of one stsd entry.
// Records that fail to parse are logged and left out.
func (r *Reader) describe(index uint32, entry box.Box, trak *box.TrackBox) *SampleDescription {
	desc := &SampleDescription{Index: index, Entry: entry, Type: entry.Type(), OriginalFormat: entry.Type()}
	switch e := entry.(type) {
	case *box.VisualSampleEntry:
		desc.OriginalFormat = e.OriginalFormat()
		desc.Width, desc.Height = uint32(e.Width), uint32(e.Height)
		desc.ParameterSets = e.ParameterSets()
		desc.NALLengthSize = e.NALLengthSize()
		if povd := e.Povd(); povd != nil {
			desc.ProjectionFormat = povd.Prfr
			desc.RegionWisePacking = povd.Rwpk
			desc.Coverage = povd.Covi
			desc.Rotation = povd.Rotn
		}
		desc.StereoVideo = e.Stvi()
		desc.Stereo3D = e.St3d
		desc.SphericalV2 = e.Sv3d
		desc.SchemeTypes = schemeTypes(desc.OriginalFormat, e.Rinf, e.Sinf)
	case *box.AudioSampleEntry:
		if e.Sinf != nil && e.Sinf.Frma != nil {
			desc.OriginalFormat = e.Sinf.Frma.DataFormat
		}
		desc.ParameterSets = e.ParameterSets()
		desc.ChannelLayout = e.Chnl
		desc.SpatialAudio = e.SA3D
		desc.SchemeTypes = schemeTypes(desc.OriginalFormat, nil, e.Sinf)
	case *box.URIMetaSampleEntry:
		desc.URIMeta = &URIMeta{}
		if e.URI != nil {
			desc.URIMeta.URI = e.URI.URI
		}
		if e.URIInit != nil {
			desc.URIMeta.Init = e.URIInit.Data
		}
	}
	desc.Family = codec.FamilyOf(codec.FourCC(desc.OriginalFormat))
	switch desc.Family {
	case codec.FamilyAAC:
		for _, ps := range desc.ParameterSets {
			if ps.Kind != box.ParameterSetASC {
				continue
			}
			if conf, err := codec.ParseAACConfig(ps.Data); err == nil {
				desc.AAC = &conf
			} else {
				r.Warn("audio specific config", "index", index, "err", err)
			}
		}
	case codec.FamilyAVC, codec.FamilyHEVC, codec.FamilyHEVCExtractor:
		if desc.Width == 0 || desc.Height == 0 {
			desc.Width, desc.Height = spsDimensions(desc)
		}
	}
	if trak.SphericalV1 != nil {
		if v1, err := trak.SphericalV1.SphericalV1(); err == nil {
			desc.SphericalV1 = v1
		} else {
			r.Warn("spherical v1 metadata", "track", trak.Tkhd.TrackID, "err", err)
		}
	}
	return desc
}

func schemeTypes(original box.BoxType, rinf, sinf *box.SchemeInfoBox) *SchemeTypes {
	if (rinf == nil || rinf.Schm == nil) && (sinf == nil || sinf.Schm == nil) {
		return nil
	}
	st := &SchemeTypes{OriginalFormat: original}
	if rinf != nil {
		st.Restricted = rinf.Schm
	}
	if sinf != nil {
		st.Protected = sinf.Schm
	}
	return st
}

func spsDimensions(desc *SampleDescription) (width, height uint32) {
	for _, ps := range desc.ParameterSets {
		if ps.Kind != box.ParameterSetSPS {
			continue
		}
		var err error
		if desc.Family == codec.FamilyAVC {
			width, height, err = codec.H264Dimensions(ps.Data)
		} else {
			width, height, err = codec.H265Dimensions(ps.Data)
		}
		if err == nil {
			return
		}
	}
	return 0, 0
}
